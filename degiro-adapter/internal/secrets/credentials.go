package secrets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Checker-Finance/trading-adapters/degiro-adapter/internal/degiro"
	"github.com/Checker-Finance/trading-adapters/degiro-adapter/pkg/config"
	intsecrets "github.com/Checker-Finance/trading-adapters/internal/secrets"
	pkgsecrets "github.com/Checker-Finance/trading-adapters/pkg/secrets"
)

// CredentialsResolver loads DEGIRO login credentials.
//
// Secret naming convention: {env}/degiro/{account}
// Secret JSON format:       {"username": "...", "password": "...", "totp_secret": "..."}
type CredentialsResolver struct {
	inner *intsecrets.Resolver[degiro.Credentials]
}

func NewCredentialsResolver(
	logger *zap.Logger,
	cfg config.Config,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[degiro.Credentials],
) *CredentialsResolver {
	return &CredentialsResolver{
		inner: intsecrets.NewResolver(logger, cfg.Env, cfg.Venue, provider, cache),
	}
}

// Resolve fetches or caches the credentials for account.
func (r *CredentialsResolver) Resolve(ctx context.Context, account string) (degiro.Credentials, error) {
	return r.inner.Resolve(ctx, account, parseCredentials)
}

// LoadCredentials picks the configured source. The AWS provider is only built when needed.
func LoadCredentials(ctx context.Context, logger *zap.Logger, cfg config.Config, newProvider func(ctx context.Context, region string) (pkgsecrets.Provider, error)) (degiro.Credentials, error) {
	switch cfg.CredentialsSource {
	case config.CredentialsFromEnv:
		return parseCredentials(map[string]string{
			"username":    cfg.Username,
			"password":    cfg.Password,
			"totp_secret": cfg.TOTPSecret,
		})
	case config.CredentialsFromAWS:
		provider, err := newProvider(ctx, cfg.AWSRegion)
		if err != nil {
			return degiro.Credentials{}, err
		}
		cache := pkgsecrets.NewCache[degiro.Credentials](cfg.SecretsCacheTTL)
		return NewCredentialsResolver(logger, cfg, provider, cache).Resolve(ctx, cfg.Account)
	default:
		return degiro.Credentials{}, fmt.Errorf("unknown credentials source %q", cfg.CredentialsSource)
	}
}

// AWSProvider adapts pkgsecrets.NewAWSProvider to LoadCredentials.
func AWSProvider(ctx context.Context, region string) (pkgsecrets.Provider, error) {
	p, err := pkgsecrets.NewAWSProvider(ctx, region)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func parseCredentials(m map[string]string) (degiro.Credentials, error) {
	creds := degiro.Credentials{
		Username:   m["username"],
		Password:   m["password"],
		TOTPSecret: m["totp_secret"],
	}
	if creds.Username == "" {
		return degiro.Credentials{}, fmt.Errorf("missing required field 'username'")
	}
	if creds.Password == "" {
		return degiro.Credentials{}, fmt.Errorf("missing required field 'password'")
	}
	if creds.TOTPSecret == "" {
		return degiro.Credentials{}, fmt.Errorf("missing required field 'totp_secret'")
	}
	return creds, nil
}
