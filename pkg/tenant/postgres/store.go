// Package postgres provides PostgreSQL storage for tenants.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/txn2/helix/pkg/tenant"
)

// Store implements tenant.Store using PostgreSQL.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new PostgreSQL tenant store.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Get returns the tenant with id, or tenant.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (tenant.Tenant, error) {
	query := `
		SELECT id, name, permissions, updated_at
		FROM tenants
		WHERE id = $1
	`
	return scanTenant(s.db.QueryRowContext(ctx, query, id))
}

// Upsert creates or replaces a tenant.
func (s *Store) Upsert(ctx context.Context, t tenant.Tenant) error {
	permsJSON, err := json.Marshal(t.Permissions)
	if err != nil {
		return fmt.Errorf("marshaling permissions: %w", err)
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = s.now().UTC()
	}

	query := `
		INSERT INTO tenants (id, name, permissions, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			permissions = EXCLUDED.permissions,
			updated_at = EXCLUDED.updated_at
	`
	_, err = s.db.ExecContext(ctx, query, t.ID, t.Name, permsJSON, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting tenant: %w", err)
	}
	return nil
}

// UpdatePermissions replaces a tenant's permissions, creating the tenant
// if needed.
func (s *Store) UpdatePermissions(ctx context.Context, id string, p tenant.Permissions) (tenant.Tenant, error) {
	permsJSON, err := json.Marshal(p)
	if err != nil {
		return tenant.Tenant{}, fmt.Errorf("marshaling permissions: %w", err)
	}

	query := `
		INSERT INTO tenants (id, permissions, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			permissions = EXCLUDED.permissions,
			updated_at = EXCLUDED.updated_at
		RETURNING id, name, permissions, updated_at
	`
	t, err := scanTenant(s.db.QueryRowContext(ctx, query, id, permsJSON, s.now().UTC()))
	if err != nil {
		return tenant.Tenant{}, fmt.Errorf("updating permissions: %w", err)
	}
	return t, nil
}

func scanTenant(row *sql.Row) (tenant.Tenant, error) {
	var t tenant.Tenant
	var permsJSON []byte

	err := row.Scan(&t.ID, &t.Name, &permsJSON, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return tenant.Tenant{}, tenant.ErrNotFound
	}
	if err != nil {
		return tenant.Tenant{}, fmt.Errorf("scanning tenant: %w", err)
	}

	if err := json.Unmarshal(permsJSON, &t.Permissions); err != nil {
		return tenant.Tenant{}, fmt.Errorf("parsing permissions: %w", err)
	}
	return t, nil
}

// Verify interface compliance.
var _ tenant.Store = (*Store)(nil)
