// Package auth provides authentication for the HTTP API.
package auth

import (
	"context"
	"errors"
	"slices"
)

// ErrUnauthenticated is returned when credentials are missing or invalid.
var ErrUnauthenticated = errors.New("unauthenticated")

// Principal kinds.
const (
	KindUser    = "user"
	KindService = "service"
)

// Well-known roles.
const (
	RoleAdmin   = "admin"
	RoleService = "service"
)

// contextKey is a private type for context keys.
type contextKey int

const (
	principalContextKey contextKey = iota
	tokenContextKey
)

// Principal is an authenticated caller.
type Principal struct {
	Subject  string   `json:"sub"`
	TenantID string   `json:"tenantId,omitempty"`
	Name     string   `json:"name,omitempty"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Kind     string   `json:"kind"`
}

// HasRole checks if the principal has a specific role.
func (p *Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// HasAnyRole checks if the principal has any of the specified roles.
func (p *Principal) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if p.HasRole(role) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}

// IsService reports whether the principal is a service caller.
func (p *Principal) IsService() bool {
	return p.Kind == KindService || p.HasRole(RoleService)
}

// CanAccessTenant reports whether the principal may read tenantID.
// Admins and services may read any tenant; users only their own.
func (p *Principal) CanAccessTenant(tenantID string) bool {
	if p.IsAdmin() || p.IsService() {
		return true
	}
	return p.TenantID != "" && p.TenantID == tenantID
}

// WithPrincipal adds the principal to the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFrom retrieves the principal from the context.
func PrincipalFrom(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalContextKey).(*Principal); ok {
		return p
	}
	return nil
}

// WithToken adds a raw credential to the context.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

// GetToken retrieves the raw credential from the context.
func GetToken(ctx context.Context) string {
	if t, ok := ctx.Value(tokenContextKey).(string); ok {
		return t
	}
	return ""
}
