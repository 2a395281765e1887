package degiro

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mapCache struct {
	mu      sync.Mutex
	items   map[string]Product
	readErr error
	putErr  error
	puts    int
}

func newMapCache() *mapCache { return &mapCache{items: map[string]Product{}} }

func (m *mapCache) GetMany(_ context.Context, ids []string) (map[string]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	out := map[string]Product{}
	for _, id := range ids {
		if p, ok := m.items[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *mapCache) PutMany(_ context.Context, products map[string]Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	for id, p := range products {
		m.items[id] = p
	}
	return nil
}

type stubSource struct {
	known map[string]Product
	asked [][]string
	err   error
}

func (s *stubSource) GetProductDetails(_ context.Context, ids []string) (ProductInfo, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	s.asked = append(s.asked, sorted)
	if s.err != nil {
		return nil, s.err
	}
	out := ProductInfo{}
	for _, id := range ids {
		if p, ok := s.known[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func product(id, symbol string) Product {
	return Product{ID: id, Name: symbol, Symbol: symbol, Currency: "EUR", ContractSize: 1, Tradable: true}
}

// ─── Lookup ──────────────────────────────────────────────────────────────────

func TestLookup_OnlyMissingIDsHitBroker(t *testing.T) {
	cache := newMapCache()
	cache.items["1"] = product("1", "AA")
	src := &stubSource{known: map[string]Product{"2": product("2", "BB"), "3": product("3", "CC")}}

	var hits, misses int
	l := NewProductLookup(zap.NewNop(), src, cache).WithCacheObserver(func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	})

	got, err := l.Lookup(context.Background(), []string{"1", "2", "3", "2", ""})
	require.NoError(t, err)

	assert.Len(t, got, 3)
	assert.Equal(t, [][]string{{"2", "3"}}, src.asked)
	assert.Equal(t, 1, hits)
	assert.Equal(t, 2, misses)
	assert.Contains(t, cache.items, "3", "fetched products are written back")
}

func TestLookup_FullyCached(t *testing.T) {
	cache := newMapCache()
	cache.items["1"] = product("1", "AA")
	src := &stubSource{}

	got, err := NewProductLookup(zap.NewNop(), src, cache).Lookup(context.Background(), []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, "AA", got["1"].Symbol)
	assert.Empty(t, src.asked)
	assert.Zero(t, cache.puts)
}

func TestLookup_UnknownIDsAreAbsent(t *testing.T) {
	cache := newMapCache()
	src := &stubSource{known: map[string]Product{}}

	got, err := NewProductLookup(zap.NewNop(), src, cache).Lookup(context.Background(), []string{"404"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, cache.puts, "nothing to write back")
}

func TestLookup_CacheReadFailureFallsBack(t *testing.T) {
	cache := newMapCache()
	cache.readErr = errors.New("redis down")
	src := &stubSource{known: map[string]Product{"1": product("1", "AA")}}

	got, err := NewProductLookup(zap.NewNop(), src, cache).Lookup(context.Background(), []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, "AA", got["1"].Symbol)
}

func TestLookup_CacheWriteFailureIsNotFatal(t *testing.T) {
	cache := newMapCache()
	cache.putErr = errors.New("read only")
	src := &stubSource{known: map[string]Product{"1": product("1", "AA")}}

	got, err := NewProductLookup(zap.NewNop(), src, cache).Lookup(context.Background(), []string{"1"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, cache.puts)
}

func TestLookup_BrokerErrorPropagates(t *testing.T) {
	src := &stubSource{err: &HTTPStatusError{Status: 503}}

	_, err := NewProductLookup(zap.NewNop(), src, newMapCache()).Lookup(context.Background(), []string{"1"})
	assert.ErrorIs(t, err, ErrHTTPStatus)
}

func TestLookup_EmptyInput(t *testing.T) {
	src := &stubSource{}
	got, err := NewProductLookup(zap.NewNop(), src, newMapCache()).Lookup(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, src.asked)
}

func TestLookup_ThroughClient(t *testing.T) {
	c, b := activeClient(t)
	b.reply(http.MethodPost, "/product_search/secure/v5/products/info", http.StatusOK, twoProducts)

	l := NewProductLookup(zap.NewNop(), c, newMapCache())
	got, err := l.Lookup(context.Background(), []string{"1", "2"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = l.Lookup(context.Background(), []string{"1", "2"})
	require.NoError(t, err)
	assert.Len(t, b.requests(http.MethodPost, "/product_search/secure/v5/products/info"), 1)
}
