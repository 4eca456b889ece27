package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbsqlite "github.com/txn2/helix/pkg/database/sqlite"
	"github.com/txn2/helix/pkg/tenant"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := dbsqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	updated := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

	_, err := store.Get(ctx, "t-1")
	assert.ErrorIs(t, err, tenant.ErrNotFound)

	in := tenant.Tenant{ID: "t-1", Name: "Acme", Permissions: tenant.DefaultPermissions(), UpdatedAt: updated}
	require.NoError(t, store.Upsert(ctx, in))

	got, err := store.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, in, got)

	in.Name = "Acme Corp"
	require.NoError(t, store.Upsert(ctx, in))
	got, err = store.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.Name)
}

func TestStore_UpdatePermissions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Upsert(ctx, tenant.Tenant{ID: "t-1", Name: "Acme"}))

	got, err := store.UpdatePermissions(ctx, "t-1", tenant.Permissions{AdvancedAnalytics: true})
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name, "name survives a permission update")
	assert.True(t, got.Permissions.AdvancedAnalytics)

	created, err := store.UpdatePermissions(ctx, "t-2", tenant.Permissions{Reports: true})
	require.NoError(t, err)
	assert.Equal(t, "t-2", created.ID)
	assert.Empty(t, created.Name)

	fetched, err := store.Get(ctx, "t-2")
	require.NoError(t, err)
	assert.True(t, fetched.Permissions.Reports)
}
