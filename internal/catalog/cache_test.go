package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	firms  map[string]string
	stock  map[string]StockLevel
	items  map[string]int64
	nextID int64

	manufacturerCalls [][]string
	stockCalls        [][]string
	ensureCalls       []string
	failLookups       bool
}

func newMockStore() *mockStore {
	return &mockStore{
		firms:  map[string]string{"A1": "ACME"},
		stock:  map[string]StockLevel{"A1": {TotalAvailable: decimal.NewFromInt(12), DipWarehouse: decimal.NewFromInt(3)}},
		items:  map[string]int64{"A1": 1},
		nextID: 100,
	}
}

func (m *mockStore) Manufacturers(_ context.Context, codes []string) (map[string]string, error) {
	m.manufacturerCalls = append(m.manufacturerCalls, codes)
	if m.failLookups {
		return nil, errors.New("db down")
	}
	out := map[string]string{}
	for _, c := range codes {
		if v, ok := m.firms[c]; ok {
			out[c] = v
		}
	}
	return out, nil
}

func (m *mockStore) StockLevels(_ context.Context, codes []string) (map[string]StockLevel, error) {
	m.stockCalls = append(m.stockCalls, codes)
	if m.failLookups {
		return nil, errors.New("db down")
	}
	out := map[string]StockLevel{}
	for _, c := range codes {
		if v, ok := m.stock[c]; ok {
			out[c] = v
		}
	}
	return out, nil
}

func (m *mockStore) EnsureItem(_ context.Context, code, description string) (int64, bool, error) {
	m.ensureCalls = append(m.ensureCalls, description)
	if id, ok := m.items[code]; ok {
		return id, false, nil
	}
	m.nextID++
	m.items[code] = m.nextID
	return m.nextID, true, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCacheLoadBatchesAndCachesMisses(t *testing.T) {
	store := newMockStore()
	cache := NewCache(store, discardLogger())
	ctx := context.Background()

	cache.Load(ctx, []string{"A1", "B2", "A1", ""})
	require.Len(t, store.manufacturerCalls, 1)
	assert.ElementsMatch(t, []string{"A1", "B2"}, store.manufacturerCalls[0])

	assert.Equal(t, "ACME", cache.Manufacturer(ctx, "A1"))
	assert.Equal(t, "", cache.Manufacturer(ctx, "B2"))
	assert.True(t, cache.Stock(ctx, "B2").TotalAvailable.IsZero())
	assert.Equal(t, "12", cache.Stock(ctx, "A1").TotalAvailable.String())

	cache.Load(ctx, []string{"A1", "B2"})
	assert.Len(t, store.manufacturerCalls, 1, "cached misses must not be looked up again")
	assert.Len(t, store.stockCalls, 1)
}

func TestCacheFallbackLookup(t *testing.T) {
	store := newMockStore()
	cache := NewCache(store, discardLogger())
	ctx := context.Background()

	assert.Equal(t, "ACME", cache.Manufacturer(ctx, "A1"))
	assert.Equal(t, "ACME", cache.Manufacturer(ctx, " A1 "))
	assert.Len(t, store.manufacturerCalls, 1)
}

func TestCacheLookupFailureIsNotFatal(t *testing.T) {
	store := newMockStore()
	store.failLookups = true
	cache := NewCache(store, discardLogger())

	cache.Load(context.Background(), []string{"A1"})
	assert.Equal(t, "", cache.Manufacturer(context.Background(), "A1"))
	assert.True(t, cache.Stock(context.Background(), "A1").DipWarehouse.IsZero())
}

func TestNilCacheIsUsable(t *testing.T) {
	var cache *Cache
	cache.Load(context.Background(), []string{"A1"})
	assert.Equal(t, "", cache.Manufacturer(context.Background(), "A1"))
	_, ok, err := cache.EnsureItem(context.Background(), "A1", "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnsureItemCreatesOnceAndTruncates(t *testing.T) {
	store := newMockStore()
	cache := NewCache(store, discardLogger())
	ctx := context.Background()
	long := strings.Repeat("é", 150)

	id, ok, err := cache.EnsureItem(ctx, "NEW", long)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(101), id)

	again, _, err := cache.EnsureItem(ctx, "NEW", long)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	require.Len(t, store.ensureCalls, 1)
	assert.Equal(t, MaxDescriptionLength, len([]rune(store.ensureCalls[0])))
	assert.Equal(t, 1, cache.CreatedItems())

	existing, _, err := cache.EnsureItem(ctx, "A1", "known")
	require.NoError(t, err)
	assert.Equal(t, int64(1), existing)
	assert.Equal(t, 1, cache.CreatedItems())
}
