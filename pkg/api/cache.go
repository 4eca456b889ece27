package api

import (
	"log/slog"
	"net/http"

	"github.com/txn2/helix/pkg/auth"
)

// invalidateRequest is the body of POST /api/admin/cache/invalidate.
type invalidateRequest struct {
	Tags []string `json:"tags"`
}

// invalidateResponse reports how many entries were removed.
type invalidateResponse struct {
	Removed int `json:"removed"`
}

// CacheStats handles GET /api/admin/cache/stats.
//
// @Summary      Cache statistics
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  cache.Stats
// @Failure      403  {object}  errorResponse
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /admin/cache/stats [get]
func (h *Handler) CacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Cache.Stats())
}

// InvalidateCache handles POST /api/admin/cache/invalidate.
//
// @Summary      Invalidate cache entries by tag
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        body  body  invalidateRequest  true  "Tags"
// @Success      200  {object}  invalidateResponse
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /admin/cache/invalidate [post]
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Tags) == 0 {
		writeError(w, http.StatusBadRequest, "tags are required")
		return
	}

	removed := h.deps.Cache.DeleteByTags(req.Tags...)
	if p := auth.PrincipalFrom(r.Context()); p != nil {
		slog.Info("cache invalidated", "by", p.Subject, "tags", req.Tags, "removed", removed)
	}
	writeJSON(w, http.StatusOK, invalidateResponse{Removed: removed})
}
