package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/txn2/helix/pkg/notify"
)

// notificationListResponse wraps a list of notifications.
type notificationListResponse struct {
	Data  []notify.Notification `json:"data"`
	Count int                   `json:"count"`
	Limit int                   `json:"limit"`
}

// countResponse carries the unread count.
type countResponse struct {
	Count int64 `json:"count"`
}

// updatedResponse reports how many records changed.
type updatedResponse struct {
	Updated int64 `json:"updated"`
}

// ListNotifications handles GET /api/notifications.
//
// @Summary      List notifications
// @Description  Returns the caller's notifications, newest first.
// @Tags         Notifications
// @Produce      json
// @Param        limit   query  integer  false  "Maximum results (default: 20, max: 200)"
// @Param        unread  query  boolean  false  "Only unread notifications"
// @Success      200  {object}  notificationListResponse
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /notifications [get]
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	p := principal(w, r)
	if p == nil {
		return
	}

	filter := notify.ListFilter{RecipientID: p.Subject}
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("unread"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unread must be a boolean")
			return
		}
		filter.UnreadOnly = b
	}

	items, err := h.deps.Notifications.List(r.Context(), filter)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if items == nil {
		items = []notify.Notification{}
	}
	writeJSON(w, http.StatusOK, notificationListResponse{
		Data:  items,
		Count: len(items),
		Limit: filter.EffectiveLimit(),
	})
}

// UnreadCount handles GET /api/notifications/unread-count.
//
// @Summary      Count unread notifications
// @Tags         Notifications
// @Produce      json
// @Success      200  {object}  countResponse
// @Failure      401  {object}  errorResponse
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /notifications/unread-count [get]
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	p := principal(w, r)
	if p == nil {
		return
	}
	n, err := h.deps.Notifications.CountUnread(r.Context(), p.Subject)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// MarkRead handles POST /api/notifications/{id}/read.
//
// @Summary      Mark notification read
// @Description  Marks one of the caller's notifications read. Notifications owned by someone else are reported as missing.
// @Tags         Notifications
// @Produce      json
// @Param        id  path  string  true  "Notification ID"
// @Success      200  {object}  statusResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /notifications/{id}/read [post]
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	p := principal(w, r)
	if p == nil {
		return
	}
	ok, err := h.deps.Notifications.MarkRead(r.Context(), p.Subject, r.PathValue(pathParamID), h.clock.Now())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "read"})
}

// MarkAllRead handles POST /api/notifications/read-all.
//
// @Summary      Mark all notifications read
// @Tags         Notifications
// @Produce      json
// @Success      200  {object}  updatedResponse
// @Failure      401  {object}  errorResponse
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /notifications/read-all [post]
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	p := principal(w, r)
	if p == nil {
		return
	}
	n, err := h.deps.Notifications.MarkAllRead(r.Context(), p.Subject, h.clock.Now())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updatedResponse{Updated: n})
}

// GetPreferences handles GET /api/notifications/preferences.
//
// @Summary      Get notification preferences
// @Description  Returns the caller's preferences, or the defaults when none are saved.
// @Tags         Notifications
// @Produce      json
// @Success      200  {object}  notify.Preferences
// @Failure      401  {object}  errorResponse
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /notifications/preferences [get]
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	p := principal(w, r)
	if p == nil {
		return
	}
	prefs, err := h.deps.Notifications.LoadPreferences(r.Context(), p.Subject)
	if errors.Is(err, notify.ErrNotFound) {
		prefs, err = notify.DefaultPreferences(), nil
	}
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences handles PUT /api/notifications/preferences.
//
// @Summary      Replace notification preferences
// @Tags         Notifications
// @Accept       json
// @Produce      json
// @Param        body  body  notify.Preferences  true  "Preferences"
// @Success      200  {object}  notify.Preferences
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /notifications/preferences [put]
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	p := principal(w, r)
	if p == nil {
		return
	}

	var prefs notify.Preferences
	if !decodeBody(w, r, &prefs) {
		return
	}
	if prefs.Frequency == "" {
		prefs.Frequency = notify.FrequencyImmediate
	}
	if prefs.Categories == nil {
		prefs.Categories = []notify.Category{}
	}
	if err := prefs.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.deps.Notifications.SavePreferences(r.Context(), p.Subject, prefs); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
