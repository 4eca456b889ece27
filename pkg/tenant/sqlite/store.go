// Package sqlite provides SQLite storage for tenants.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/txn2/helix/pkg/tenant"
)

// Store implements tenant.Store using SQLite.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

type tenantRow struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	Permissions string `db:"permissions"`
	UpdatedAt   int64  `db:"updated_at"`
}

func (r tenantRow) toTenant() (tenant.Tenant, error) {
	t := tenant.Tenant{
		ID:        r.ID,
		Name:      r.Name,
		UpdatedAt: time.UnixMilli(r.UpdatedAt).UTC(),
	}
	if err := json.Unmarshal([]byte(r.Permissions), &t.Permissions); err != nil {
		return tenant.Tenant{}, fmt.Errorf("parsing permissions: %w", err)
	}
	return t, nil
}

// New creates a SQLite tenant store over a database opened with
// database/sqlite.Open.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Get returns the tenant with id, or tenant.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (tenant.Tenant, error) {
	var row tenantRow
	err := s.db.GetContext(ctx, &row,
		"SELECT id, name, permissions, updated_at FROM tenants WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return tenant.Tenant{}, tenant.ErrNotFound
	}
	if err != nil {
		return tenant.Tenant{}, fmt.Errorf("getting tenant %s: %w", id, err)
	}
	return row.toTenant()
}

// Upsert creates or replaces a tenant.
func (s *Store) Upsert(ctx context.Context, t tenant.Tenant) error {
	perms, err := json.Marshal(t.Permissions)
	if err != nil {
		return fmt.Errorf("marshaling permissions: %w", err)
	}
	updated := t.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, permissions, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			permissions = excluded.permissions,
			updated_at = excluded.updated_at`,
		t.ID, t.Name, string(perms), updated.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upserting tenant %s: %w", t.ID, err)
	}
	return nil
}

// UpdatePermissions replaces a tenant's permissions, creating the tenant
// if needed.
func (s *Store) UpdatePermissions(ctx context.Context, id string, p tenant.Permissions) (tenant.Tenant, error) {
	perms, err := json.Marshal(p)
	if err != nil {
		return tenant.Tenant{}, fmt.Errorf("marshaling permissions: %w", err)
	}

	var row tenantRow
	err = s.db.GetContext(ctx, &row, `
		INSERT INTO tenants (id, permissions, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			permissions = excluded.permissions,
			updated_at = excluded.updated_at
		RETURNING id, name, permissions, updated_at`,
		id, string(perms), s.now().UnixMilli(),
	)
	if err != nil {
		return tenant.Tenant{}, fmt.Errorf("updating permissions for %s: %w", id, err)
	}
	return row.toTenant()
}

// Verify interface compliance.
var _ tenant.Store = (*Store)(nil)
