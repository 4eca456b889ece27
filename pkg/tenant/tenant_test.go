package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/helix/pkg/cache"
)

func TestPermissions_Merge(t *testing.T) {
	merged, err := DefaultPermissions().Merge(map[string]bool{
		"reports":   true,
		"dashboard": false,
	})
	require.NoError(t, err)
	assert.True(t, merged.Reports)
	assert.False(t, merged.Dashboard)
	assert.True(t, merged.LegalCases, "flags absent from the patch are kept")

	_, err = DefaultPermissions().Merge(map[string]bool{"teleport": true})
	assert.ErrorContains(t, err, `unknown permission "teleport"`)
}

func TestTenant_JSONShape(t *testing.T) {
	data, err := json.Marshal(Tenant{ID: "t-1", Name: "Acme", Permissions: DefaultPermissions()})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "t-1", raw["tenantId"])
	perms, ok := raw["customerPermissions"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, perms, 16)
	assert.Equal(t, true, perms["aiInsights"])
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, "t-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Upsert(ctx, Tenant{ID: "t-1", Name: "Acme", Permissions: DefaultPermissions()}))
	got, err := store.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
	assert.False(t, got.UpdatedAt.IsZero())

	updated, err := store.UpdatePermissions(ctx, "t-1", Permissions{Reports: true})
	require.NoError(t, err)
	assert.Equal(t, "Acme", updated.Name, "name survives a permission update")
	assert.True(t, updated.Permissions.Reports)

	created, err := store.UpdatePermissions(ctx, "t-2", Permissions{Analytics: true})
	require.NoError(t, err)
	assert.Equal(t, "t-2", created.ID)
}

type countingStore struct {
	Store
	gets atomic.Int32
}

func (s *countingStore) Get(ctx context.Context, id string) (Tenant, error) {
	s.gets.Add(1)
	return s.Store.Get(ctx, id)
}

func newCachedStore(t *testing.T) (*CachedStore, *countingStore, *cache.Cache) {
	t.Helper()
	c, err := cache.New(cache.Config{})
	require.NoError(t, err)
	inner := &countingStore{Store: NewMemoryStore()}
	return NewCachedStore(inner, c, time.Minute), inner, c
}

func TestCachedStore_ReadsThroughCache(t *testing.T) {
	ctx := context.Background()
	store, inner, _ := newCachedStore(t)
	require.NoError(t, store.Upsert(ctx, Tenant{ID: "t-1", Name: "Acme"}))

	for range 3 {
		got, err := store.Get(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, "Acme", got.Name)
	}
	assert.Equal(t, int32(1), inner.gets.Load())
}

func TestCachedStore_NotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	store, inner, c := newCachedStore(t)

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(2), inner.gets.Load())
	assert.Equal(t, 0, c.Size())
}

func TestCachedStore_WritesInvalidate(t *testing.T) {
	ctx := context.Background()
	store, inner, _ := newCachedStore(t)
	require.NoError(t, store.Upsert(ctx, Tenant{ID: "t-1", Permissions: DefaultPermissions()}))

	_, err := store.Get(ctx, "t-1")
	require.NoError(t, err)

	_, err = store.UpdatePermissions(ctx, "t-1", Permissions{Reports: true})
	require.NoError(t, err)

	got, err := store.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.True(t, got.Permissions.Reports)
	assert.Equal(t, int32(2), inner.gets.Load())

	require.NoError(t, store.Upsert(ctx, Tenant{ID: "t-1", Name: "Renamed"}))
	got, err = store.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
}

func TestCachedStore_AllTag(t *testing.T) {
	ctx := context.Background()
	store, _, c := newCachedStore(t)
	require.NoError(t, store.Upsert(ctx, Tenant{ID: "a"}))
	require.NoError(t, store.Upsert(ctx, Tenant{ID: "b"}))
	_, _ = store.Get(ctx, "a")
	_, _ = store.Get(ctx, "b")

	assert.Equal(t, 2, c.DeleteByTags(AllTag))
}

func TestCachedStore_CompressedEntries(t *testing.T) {
	ctx := context.Background()
	c, err := cache.New(cache.Config{CompressThreshold: 64})
	require.NoError(t, err)
	inner := &countingStore{Store: NewMemoryStore()}
	store := NewCachedStore(inner, c, time.Minute)

	want := Tenant{ID: "t-1", Name: "Acme Regulatory Compliance GmbH", Permissions: DefaultPermissions()}
	require.NoError(t, store.Upsert(ctx, want))

	for range 2 {
		got, err := store.Get(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Permissions, got.Permissions)
	}
	assert.Equal(t, int32(1), inner.gets.Load())

	cached, ok := c.Get(cache.Key("tenant.Get", "t-1"))
	require.True(t, ok)
	assert.IsType(t, Tenant{}, cached)
}

func TestStoreFetcher(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Upsert(ctx, Tenant{ID: "t-1", Name: "Acme", Permissions: Permissions{Dashboard: true}}))

	obs, err := StoreFetcher{Store: store}.Fetch(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", obs.DisplayName)
	assert.True(t, obs.State.Dashboard)

	_, err = StoreFetcher{Store: store}.Fetch(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHTTPFetcher_URL(t *testing.T) {
	f, err := NewHTTPFetcher(HTTPFetcherConfig{BaseURL: "https://helix.example.com/"})
	require.NoError(t, err)

	u, err := f.URL("acme corp")
	require.NoError(t, err)
	assert.Equal(t, "https://helix.example.com/api/customer/tenant/acme%20corp", u)

	_, err = NewHTTPFetcher(HTTPFetcherConfig{})
	assert.Error(t, err)
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/customer/tenant/t-1", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Tenant{ID: "t-1", Name: "Acme", Permissions: Permissions{AuditLogs: true}})
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(HTTPFetcherConfig{BaseURL: srv.URL, Token: "secret", Client: srv.Client()})
	require.NoError(t, err)

	obs, err := f.Fetch(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", obs.DisplayName)
	assert.True(t, obs.State.AuditLogs)
}

func TestHTTPFetcher_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
	}{
		{
			name:    "non-success status",
			handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) },
			wantErr: "failed to fetch tenant data: 503",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("{not json"))
			},
			wantErr: "parsing tenant response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			f, err := NewHTTPFetcher(HTTPFetcherConfig{BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = f.Fetch(context.Background(), "t-1")
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestHTTPFetcher_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	f, err := NewHTTPFetcher(HTTPFetcherConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Fetch(ctx, "t-1")
	assert.True(t, errors.Is(err, context.Canceled))
}
