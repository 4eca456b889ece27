package tenant

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store using an in-memory map.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[string]Tenant
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory tenant store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants: make(map[string]Tenant),
		now:     time.Now,
	}
}

// Get returns the tenant with id, or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, id string) (Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[id]
	if !ok {
		return Tenant{}, ErrNotFound
	}
	return t, nil
}

// Upsert creates or replaces a tenant.
func (s *MemoryStore) Upsert(_ context.Context, t Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = s.now().UTC()
	}
	s.tenants[t.ID] = t
	return nil
}

// UpdatePermissions replaces a tenant's permissions.
func (s *MemoryStore) UpdatePermissions(_ context.Context, id string, p Permissions) (Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tenants[id]
	t.ID = id
	t.Permissions = p
	t.UpdatedAt = s.now().UTC()
	s.tenants[id] = t
	return t, nil
}

// Verify interface compliance.
var _ Store = (*MemoryStore)(nil)
