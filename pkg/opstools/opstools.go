// Package opstools exposes read-only operator tools over MCP.
package opstools

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/helix/pkg/cache"
	"github.com/txn2/helix/pkg/notify"
	"github.com/txn2/helix/pkg/tenant"
)

// DefaultName is the MCP implementation name.
const DefaultName = "helix-ops"

// Deps are the services inspected by the tools. Tools whose dependency is
// nil are not registered.
type Deps struct {
	Cache         *cache.Cache
	Tenants       tenant.Store
	Notifications notify.Store
}

// Tools holds the registered tool handlers.
type Tools struct {
	deps Deps
}

type cacheStatsInput struct{}

type tenantPermissionsInput struct {
	TenantID string `json:"tenant_id" jsonschema:"Tenant identifier"`
}

type recentNotificationsInput struct {
	UserID     string `json:"user_id" jsonschema:"Recipient user identifier"`
	Limit      int    `json:"limit,omitempty" jsonschema:"Maximum results, default 20"`
	UnreadOnly bool   `json:"unread_only,omitempty" jsonschema:"Only unread notifications"`
}

// tenantPermissionsOutput reports whether the permissions were stored or
// are the defaults.
type tenantPermissionsOutput struct {
	Tenant tenant.Tenant `json:"tenant"`
	Stored bool          `json:"stored"`
}

// NewServer creates an MCP server with the operator tools registered.
func NewServer(version string, deps Deps) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: DefaultName, Version: version}, nil)
	(&Tools{deps: deps}).Register(server)
	return server
}

// Register adds the tools to server.
func (t *Tools) Register(server *mcp.Server) {
	if t.deps.Cache != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "cache_stats",
			Description: "Report cache hit rate, entry count and memory usage.",
		}, func(ctx context.Context, _ *mcp.CallToolRequest, _ cacheStatsInput) (*mcp.CallToolResult, any, error) {
			return t.handleCacheStats(ctx)
		})
	}

	if t.deps.Tenants != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "tenant_permissions",
			Description: "Show the customer permissions of a tenant.",
		}, func(ctx context.Context, _ *mcp.CallToolRequest, in tenantPermissionsInput) (*mcp.CallToolResult, any, error) {
			return t.handleTenantPermissions(ctx, in)
		})
	}

	if t.deps.Notifications != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "recent_notifications",
			Description: "List a user's most recent notifications, newest first.",
		}, func(ctx context.Context, _ *mcp.CallToolRequest, in recentNotificationsInput) (*mcp.CallToolResult, any, error) {
			return t.handleRecentNotifications(ctx, in)
		})
	}
}

func (t *Tools) handleCacheStats(_ context.Context) (*mcp.CallToolResult, any, error) {
	return jsonResult(t.deps.Cache.Stats())
}

func (t *Tools) handleTenantPermissions(ctx context.Context, in tenantPermissionsInput) (*mcp.CallToolResult, any, error) {
	if in.TenantID == "" {
		return errorResult("tenant_id is required"), nil, nil
	}

	tn, err := t.deps.Tenants.Get(ctx, in.TenantID)
	switch {
	case err == nil:
		return jsonResult(tenantPermissionsOutput{Tenant: tn, Stored: true})
	case errors.Is(err, tenant.ErrNotFound):
		return jsonResult(tenantPermissionsOutput{
			Tenant: tenant.Tenant{ID: in.TenantID, Permissions: tenant.DefaultPermissions()},
		})
	default:
		return errorResult("Error: " + err.Error()), nil, nil
	}
}

func (t *Tools) handleRecentNotifications(ctx context.Context, in recentNotificationsInput) (*mcp.CallToolResult, any, error) {
	if in.UserID == "" {
		return errorResult("user_id is required"), nil, nil
	}

	items, err := t.deps.Notifications.List(ctx, notify.ListFilter{
		RecipientID: in.UserID,
		UnreadOnly:  in.UnreadOnly,
		Limit:       in.Limit,
	})
	if err != nil {
		return errorResult("Error: " + err.Error()), nil, nil
	}
	if items == nil {
		items = []notify.Notification{}
	}
	return jsonResult(items)
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Error: " + err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
