package api

import (
	"errors"
	"net/http"

	"github.com/txn2/helix/pkg/tenant"
)

// permissionsRequest is the body of PUT /api/admin/tenants/{id}/permissions.
// Only the named flags change.
type permissionsRequest struct {
	Permissions map[string]bool `json:"customerPermissions"`
}

// GetTenant handles GET /api/customer/tenant/{id}.
//
// A tenant with no stored record reports the default permission set.
//
// @Summary      Get tenant permissions
// @Description  Returns the tenant's customer permissions. Users may only read their own tenant.
// @Tags         Tenants
// @Produce      json
// @Param        id  path  string  true  "Tenant ID"
// @Success      200  {object}  tenant.Tenant
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /customer/tenant/{id} [get]
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	p := principal(w, r)
	if p == nil {
		return
	}
	id := r.PathValue(pathParamID)
	if !p.CanAccessTenant(id) {
		writeError(w, http.StatusForbidden, "access to tenant denied")
		return
	}

	t, err := h.deps.Tenants.Get(r.Context(), id)
	if errors.Is(err, tenant.ErrNotFound) {
		t = tenant.Tenant{ID: id, Permissions: tenant.DefaultPermissions()}
		err = nil
	}
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdatePermissions handles PUT /api/admin/tenants/{id}/permissions.
//
// @Summary      Update tenant permissions
// @Description  Applies a partial permission patch. Unknown permission names are rejected.
// @Tags         Tenants
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "Tenant ID"
// @Param        body  body  permissionsRequest  true  "Permission patch"
// @Success      200  {object}  tenant.Tenant
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /admin/tenants/{id}/permissions [put]
func (h *Handler) UpdatePermissions(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue(pathParamID)

	var req permissionsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Permissions) == 0 {
		writeError(w, http.StatusBadRequest, "customerPermissions is required")
		return
	}

	current := tenant.DefaultPermissions()
	existing, err := h.deps.Tenants.Get(r.Context(), id)
	switch {
	case err == nil:
		current = existing.Permissions
	case !errors.Is(err, tenant.ErrNotFound):
		writeStoreError(w, r, err)
		return
	}

	merged, err := current.Merge(req.Permissions)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.deps.Tenants.UpdatePermissions(r.Context(), id, merged)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
