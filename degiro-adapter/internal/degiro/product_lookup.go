package degiro

import (
	"context"

	"go.uber.org/zap"
)

// ProductCache stores product details between broker calls.
type ProductCache interface {
	GetMany(ctx context.Context, ids []string) (map[string]Product, error)
	PutMany(ctx context.Context, products map[string]Product) error
}

// productSource is the broker call ProductLookup falls back to.
type productSource interface {
	GetProductDetails(ctx context.Context, ids []string) (ProductInfo, error)
}

// ProductLookup resolves product details through a cache and only asks the
// broker for ids the cache does not hold. Cache failures are logged and the
// broker is asked for everything instead.
type ProductLookup struct {
	logger *zap.Logger
	source productSource
	cache  ProductCache
	onHit  func(hit bool)
}

func NewProductLookup(logger *zap.Logger, source productSource, cache ProductCache) *ProductLookup {
	return &ProductLookup{logger: logger, source: source, cache: cache}
}

// WithCacheObserver reports one hit or miss per requested id.
func (l *ProductLookup) WithCacheObserver(fn func(hit bool)) *ProductLookup {
	l.onHit = fn
	return l
}

// Lookup returns the details for ids. Ids unknown to the broker are absent.
func (l *ProductLookup) Lookup(ctx context.Context, ids []string) (ProductInfo, error) {
	ids = dedupe(ids)
	out := make(ProductInfo, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cached, err := l.cache.GetMany(ctx, ids)
	if err != nil {
		l.logger.Warn("degiro.product_cache_read_failed", zap.Error(err))
		cached = nil
	}

	var missing []string
	for _, id := range ids {
		if p, ok := cached[id]; ok {
			out[id] = p
			l.observe(true)
			continue
		}
		missing = append(missing, id)
		l.observe(false)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := l.source.GetProductDetails(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, p := range fetched {
		out[id] = p
	}
	if len(fetched) > 0 {
		if err := l.cache.PutMany(ctx, fetched); err != nil {
			l.logger.Warn("degiro.product_cache_write_failed",
				zap.Int("count", len(fetched)),
				zap.Error(err))
		}
	}

	l.logger.Debug("degiro.products_resolved",
		zap.Int("requested", len(ids)),
		zap.Int("from_cache", len(ids)-len(missing)),
		zap.Int("from_broker", len(fetched)))
	return out, nil
}

func (l *ProductLookup) observe(hit bool) {
	if l.onHit != nil {
		l.onHit(hit)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
