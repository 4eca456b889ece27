// Package api provides the REST endpoints for tenants, notifications,
// domain events and cache administration.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/txn2/helix/pkg/auth"
	"github.com/txn2/helix/pkg/cache"
	"github.com/txn2/helix/pkg/clock"
	"github.com/txn2/helix/pkg/notify"
	"github.com/txn2/helix/pkg/tenant"
)

const pathParamID = "id"

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Deps are the services behind the API.
type Deps struct {
	Tenants       tenant.Store
	Notifications notify.Store
	Dispatcher    *notify.Dispatcher
	Cache         *cache.Cache
	Clock         clock.Clock
}

// Handler provides the REST API endpoints.
type Handler struct {
	mux        *http.ServeMux
	deps       Deps
	clock      clock.Clock
	authMiddle func(http.Handler) http.Handler
}

// errorResponse is the body of every error reply.
type errorResponse struct {
	Error string `json:"error"`
}

// statusResponse acknowledges a state change.
type statusResponse struct {
	Status string `json:"status"`
}

// NewHandler creates the API handler. authMiddle authenticates every
// request; role checks are applied per route.
func NewHandler(deps Deps, authMiddle func(http.Handler) http.Handler) *Handler {
	h := &Handler{
		mux:        http.NewServeMux(),
		deps:       deps,
		clock:      clock.OrReal(deps.Clock),
		authMiddle: authMiddle,
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.authMiddle != nil {
		h.authMiddle(h.mux).ServeHTTP(w, r)
		return
	}
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all API routes.
func (h *Handler) registerRoutes() {
	admin := auth.RequireRole(auth.RoleAdmin)
	producer := auth.RequireRole(auth.RoleAdmin, auth.RoleService)

	if h.deps.Tenants != nil {
		h.mux.HandleFunc("GET /api/customer/tenant/{id}", h.GetTenant)
		h.mux.Handle("PUT /api/admin/tenants/{id}/permissions", admin(http.HandlerFunc(h.UpdatePermissions)))
	}

	if h.deps.Notifications != nil {
		h.mux.HandleFunc("GET /api/notifications", h.ListNotifications)
		h.mux.HandleFunc("GET /api/notifications/unread-count", h.UnreadCount)
		h.mux.HandleFunc("POST /api/notifications/read-all", h.MarkAllRead)
		h.mux.HandleFunc("POST /api/notifications/{id}/read", h.MarkRead)
		h.mux.HandleFunc("GET /api/notifications/preferences", h.GetPreferences)
		h.mux.HandleFunc("PUT /api/notifications/preferences", h.UpdatePreferences)
	}

	if h.deps.Dispatcher != nil {
		h.mux.Handle("POST /api/events/notifications", producer(http.HandlerFunc(h.SendNotification)))
		h.mux.Handle("POST /api/events/notifications/bulk", producer(http.HandlerFunc(h.SendBulk)))
		h.mux.Handle("POST /api/events/regulatory-updates", producer(http.HandlerFunc(h.RegulatoryUpdate)))
		h.mux.Handle("POST /api/events/legal-cases", producer(http.HandlerFunc(h.LegalCase)))
		h.mux.Handle("POST /api/events/security-alerts", producer(http.HandlerFunc(h.SecurityAlert)))
	}

	if h.deps.Cache != nil {
		h.mux.Handle("GET /api/admin/cache/stats", admin(http.HandlerFunc(h.CacheStats)))
		h.mux.Handle("POST /api/admin/cache/invalidate", admin(http.HandlerFunc(h.InvalidateCache)))
	}
}

// principal returns the caller or writes 401.
func principal(w http.ResponseWriter, r *http.Request) *auth.Principal {
	p := auth.PrincipalFrom(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
	}
	return p
}

// decodeBody decodes a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeStoreError maps domain errors onto HTTP status codes.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tenant.ErrNotFound), errors.Is(err, notify.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, notify.ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "authentication required")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
