package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecretsManager struct {
	out *secretsmanager.GetSecretValueOutput
	err error
	got string
}

func (f *fakeSecretsManager) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.got = aws.ToString(in.SecretId)
	return f.out, f.err
}

func TestAWSProvider_GetSecret(t *testing.T) {
	fake := &fakeSecretsManager{out: &secretsmanager.GetSecretValueOutput{
		SecretString: aws.String(`{"username":"jdoe","password":"pw","totp_secret":"JBSWY3DPEHPK3PXP"}`),
	}}
	p := &AWSSecretsManagerProvider{client: fake}

	got, err := p.GetSecret(context.Background(), "prod/degiro")
	require.NoError(t, err)
	assert.Equal(t, "prod/degiro", fake.got)
	assert.Equal(t, "jdoe", got["username"])
	assert.Equal(t, "JBSWY3DPEHPK3PXP", got["totp_secret"])
}

func TestAWSProvider_NotFound(t *testing.T) {
	fake := &fakeSecretsManager{err: &types.ResourceNotFoundException{Message: aws.String("nope")}}
	p := &AWSSecretsManagerProvider{client: fake}

	_, err := p.GetSecret(context.Background(), "prod/missing")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "prod/missing", nf.Name)
}

func TestAWSProvider_InvalidJSON(t *testing.T) {
	fake := &fakeSecretsManager{out: &secretsmanager.GetSecretValueOutput{SecretString: aws.String("plain-text")}}
	p := &AWSSecretsManagerProvider{client: fake}

	_, err := p.GetSecret(context.Background(), "prod/degiro")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid secret format")
}

func TestAWSProvider_BinarySecret(t *testing.T) {
	fake := &fakeSecretsManager{out: &secretsmanager.GetSecretValueOutput{SecretBinary: []byte{1, 2}}}
	p := &AWSSecretsManagerProvider{client: fake}

	_, err := p.GetSecret(context.Background(), "prod/degiro")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no string value")
}

func TestStaticProvider(t *testing.T) {
	p := StaticProvider{"dev/degiro": {"username": "u"}}

	got, err := p.GetSecret(context.Background(), "dev/degiro")
	require.NoError(t, err)
	assert.Equal(t, "u", got["username"])

	_, err = p.GetSecret(context.Background(), "dev/other")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}
