// Package tenant models customer tenants and the permission flags that
// gate which product areas a tenant's users can see.
package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a tenant does not exist.
var ErrNotFound = errors.New("tenant not found")

// Permissions are the per-tenant feature flags.
type Permissions struct {
	Dashboard         bool `json:"dashboard"`
	RegulatoryUpdates bool `json:"regulatoryUpdates"`
	LegalCases        bool `json:"legalCases"`
	KnowledgeBase     bool `json:"knowledgeBase"`
	Newsletters       bool `json:"newsletters"`
	Analytics         bool `json:"analytics"`
	Reports           bool `json:"reports"`
	DataCollection    bool `json:"dataCollection"`
	GlobalSources     bool `json:"globalSources"`
	HistoricalData    bool `json:"historicalData"`
	Administration    bool `json:"administration"`
	UserManagement    bool `json:"userManagement"`
	SystemSettings    bool `json:"systemSettings"`
	AuditLogs         bool `json:"auditLogs"`
	AIInsights        bool `json:"aiInsights"`
	AdvancedAnalytics bool `json:"advancedAnalytics"`
}

// DefaultPermissions returns the flags a tenant gets before an
// administrator changes anything.
func DefaultPermissions() Permissions {
	return Permissions{
		Dashboard:         true,
		RegulatoryUpdates: true,
		LegalCases:        true,
		KnowledgeBase:     true,
		AIInsights:        true,
	}
}

// Merge returns p with every flag named in patch overwritten. Unknown
// flag names are rejected.
func (p Permissions) Merge(patch map[string]bool) (Permissions, error) {
	current, err := json.Marshal(p)
	if err != nil {
		return p, fmt.Errorf("encoding permissions: %w", err)
	}
	fields := make(map[string]bool)
	if err := json.Unmarshal(current, &fields); err != nil {
		return p, fmt.Errorf("decoding permissions: %w", err)
	}
	for name, v := range patch {
		if _, ok := fields[name]; !ok {
			return p, fmt.Errorf("unknown permission %q", name)
		}
		fields[name] = v
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return p, fmt.Errorf("encoding permissions: %w", err)
	}
	var out Permissions
	if err := json.Unmarshal(merged, &out); err != nil {
		return p, fmt.Errorf("decoding permissions: %w", err)
	}
	return out, nil
}

// Tenant is a customer organization.
type Tenant struct {
	ID          string      `json:"tenantId"`
	Name        string      `json:"name"`
	Permissions Permissions `json:"customerPermissions"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Store persists tenants.
type Store interface {
	// Get returns the tenant with id, or ErrNotFound.
	Get(ctx context.Context, id string) (Tenant, error)

	// Upsert creates or replaces a tenant.
	Upsert(ctx context.Context, t Tenant) error

	// UpdatePermissions replaces a tenant's permissions, creating the
	// tenant if it does not exist, and returns the stored tenant.
	UpdatePermissions(ctx context.Context, id string, p Permissions) (Tenant, error)
}
