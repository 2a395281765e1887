// Package totp derives RFC 6238 one-time passwords from a base32 shared secret.
package totp

import (
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// Period is the length of one code window.
	Period = 30 * time.Second
	// Skew is how many windows before and after the current one Validate accepts.
	Skew = 1
)

var (
	// ErrInvalidSecret means the shared secret is not valid base32.
	ErrInvalidSecret = errors.New("totp: invalid secret")
	// ErrGenerate means a code could not be derived for the given time.
	ErrGenerate = errors.New("totp: generate code")
)

var opts = totp.ValidateOpts{
	Period:    uint(Period / time.Second),
	Skew:      Skew,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Generator produces 6-digit codes for a single shared secret.
// The secret is decoded once in NewGenerator; a Generator is safe for concurrent use.
type Generator struct {
	secret string
}

// NewGenerator normalises and decodes encoded. Spaces, dashes and padding are
// ignored and lower-case input is accepted, so secrets can be pasted as shown
// by authenticator apps.
func NewGenerator(encoded string) (*Generator, error) {
	cleaned := normalise(encoded)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSecret)
	}
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSecret)
	}
	return &Generator{secret: base32.StdEncoding.EncodeToString(raw)}, nil
}

// Generate returns the code for the window containing t.
func (g *Generator) Generate(t time.Time) (string, error) {
	if t.IsZero() || t.Unix() < 0 {
		return "", fmt.Errorf("%w: invalid time %v", ErrGenerate, t)
	}
	code, err := totp.GenerateCodeCustom(g.secret, t, opts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerate, err)
	}
	return code, nil
}

// Validate reports whether code matches the window containing t or one of its
// immediate neighbours.
func (g *Generator) Validate(code string, t time.Time) bool {
	if t.IsZero() || t.Unix() < 0 {
		return false
	}
	ok, err := totp.ValidateCustom(code, g.secret, t, opts)
	return err == nil && ok
}

func normalise(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		switch r {
		case ' ', '\t', '\n', '\r', '-', '=':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
