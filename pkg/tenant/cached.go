package tenant

import (
	"context"
	"time"

	"github.com/txn2/helix/pkg/cache"
)

// AllTag is carried by every cached tenant entry.
const AllTag = "tenants"

// Tag returns the cache tag for one tenant.
func Tag(id string) string {
	return "tenant:" + id
}

// CachedStore reads tenants through the shared cache and drops the
// affected entries after every successful write.
type CachedStore struct {
	get    func(context.Context, string) (Tenant, error)
	upsert func(context.Context, Tenant) (struct{}, error)
	update func(context.Context, permissionUpdate) (Tenant, error)
}

type permissionUpdate struct {
	id          string
	permissions Permissions
}

// NewCachedStore wraps store. Entries live for ttl; zero uses the cache
// default. Tenants whose encoding exceeds the cache's compress threshold
// are stored compressed.
func NewCachedStore(store Store, c *cache.Cache, ttl time.Duration) *CachedStore {
	entryOpts := func(id string) []cache.Option {
		opts := []cache.Option{cache.WithTags(Tag(id), AllTag), cache.WithCompression()}
		if ttl > 0 {
			opts = append(opts, cache.WithTTL(ttl))
		}
		return opts
	}

	return &CachedStore{
		get: cache.WithCache(c, store.Get, func(id string) string {
			return cache.Key("tenant.Get", id)
		}, entryOpts),
		upsert: cache.WithInvalidation(c, func(ctx context.Context, t Tenant) (struct{}, error) {
			return struct{}{}, store.Upsert(ctx, t)
		}, func(t Tenant) []string { return []string{Tag(t.ID)} }),
		update: cache.WithInvalidation(c, func(ctx context.Context, u permissionUpdate) (Tenant, error) {
			return store.UpdatePermissions(ctx, u.id, u.permissions)
		}, func(u permissionUpdate) []string { return []string{Tag(u.id)} }),
	}
}

// Get returns the tenant, from cache when possible.
func (s *CachedStore) Get(ctx context.Context, id string) (Tenant, error) {
	return s.get(ctx, id)
}

// Upsert writes t and invalidates its cache entries.
func (s *CachedStore) Upsert(ctx context.Context, t Tenant) error {
	_, err := s.upsert(ctx, t)
	return err
}

// UpdatePermissions writes p and invalidates the tenant's cache entries.
func (s *CachedStore) UpdatePermissions(ctx context.Context, id string, p Permissions) (Tenant, error) {
	return s.update(ctx, permissionUpdate{id: id, permissions: p})
}

// Verify interface compliance.
var _ Store = (*CachedStore)(nil)
