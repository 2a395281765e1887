package secrets

import (
	"context"
	"fmt"
	"strings"

	pkgsecrets "github.com/Checker-Finance/trading-adapters/pkg/secrets"
	"go.uber.org/zap"
)

// Resolver resolves typed configuration from a secrets Provider,
// caching results locally to reduce API calls. It is generic over the
// resolved type T so the same core logic can serve every venue.
//
// Secret naming convention: {env}/{venue}/{account}
type Resolver[T any] struct {
	logger   *zap.Logger
	env      string
	venue    string
	provider pkgsecrets.Provider
	cache    *pkgsecrets.Cache[T]
}

// NewResolver constructs a generic config resolver.
func NewResolver[T any](
	logger *zap.Logger,
	env string,
	venue string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[T],
) *Resolver[T] {
	return &Resolver[T]{
		logger:   logger,
		env:      env,
		venue:    venue,
		provider: provider,
		cache:    cache,
	}
}

// SecretName builds the provider key for an account.
func (r *Resolver[T]) SecretName(account string) string {
	return strings.ToLower(fmt.Sprintf("%s/%s/%s", r.env, r.venue, account))
}

// Resolve fetches or caches T for the given account.
// parse extracts T from the raw secret map; it should validate required fields.
func (r *Resolver[T]) Resolve(ctx context.Context, account string, parse func(map[string]string) (T, error)) (T, error) {
	name := r.SecretName(account)

	if cfg, ok := r.cache.Get(name); ok {
		return cfg, nil
	}

	secretMap, err := r.provider.GetSecret(ctx, name)
	if err != nil {
		r.logger.Warn("secrets.fetch_failed",
			zap.String("key", name),
			zap.Error(err))
		var zero T
		return zero, fmt.Errorf("resolve %s secret for %q: %w", r.venue, account, err)
	}

	cfg, err := parse(secretMap)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("parse secret %q: %w", name, err)
	}

	r.cache.Put(name, cfg)

	r.logger.Info("secrets.resolved",
		zap.String("account", account),
		zap.String("venue", r.venue),
	)
	return cfg, nil
}
