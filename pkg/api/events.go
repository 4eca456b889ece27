package api

import (
	"net/http"

	"github.com/txn2/helix/pkg/notify"
)

// maxBulkEvents caps a single bulk request.
const maxBulkEvents = 1000

// sendResponse reports whether the in-app record was stored.
type sendResponse struct {
	Persisted bool `json:"persisted"`
}

// bulkRequest is the body of POST /api/events/notifications/bulk.
type bulkRequest struct {
	Events []notify.Event `json:"events"`
}

// regulatoryUpdateRequest is the body of POST /api/events/regulatory-updates.
type regulatoryUpdateRequest struct {
	Update     notify.RegulatoryUpdate `json:"update"`
	Recipients []string                `json:"recipients"`
	TenantID   string                  `json:"tenantId"`
}

// legalCaseRequest is the body of POST /api/events/legal-cases.
type legalCaseRequest struct {
	Case       notify.LegalCase `json:"case"`
	Recipients []string         `json:"recipients"`
	TenantID   string           `json:"tenantId"`
}

// securityAlertRequest is the body of POST /api/events/security-alerts.
type securityAlertRequest struct {
	Alert    notify.SecurityAlert `json:"alert"`
	TenantID string               `json:"tenantId"`
}

// SendNotification handles POST /api/events/notifications.
//
// @Summary      Send a notification
// @Description  Stores an in-app notification and delivers it over the channels the recipient allows.
// @Tags         Events
// @Accept       json
// @Produce      json
// @Param        body  body  notify.Event  true  "Event"
// @Success      200  {object}  sendResponse
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /events/notifications [post]
func (h *Handler) SendNotification(w http.ResponseWriter, r *http.Request) {
	var ev notify.Event
	if !decodeBody(w, r, &ev) {
		return
	}
	if ev.Priority == "" {
		ev.Priority = notify.PriorityMedium
	}
	persisted, err := h.deps.Dispatcher.Send(r.Context(), ev)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{Persisted: persisted})
}

// SendBulk handles POST /api/events/notifications/bulk.
//
// @Summary      Send notifications in bulk
// @Description  Sends each event independently. Malformed events count as failures.
// @Tags         Events
// @Accept       json
// @Produce      json
// @Param        body  body  bulkRequest  true  "Events"
// @Success      200  {object}  notify.BulkResult
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /events/notifications/bulk [post]
func (h *Handler) SendBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Events) > maxBulkEvents {
		writeError(w, http.StatusBadRequest, "too many events")
		return
	}
	for i := range req.Events {
		if req.Events[i].Priority == "" {
			req.Events[i].Priority = notify.PriorityMedium
		}
	}
	writeJSON(w, http.StatusOK, h.deps.Dispatcher.SendBulk(r.Context(), req.Events))
}

// RegulatoryUpdate handles POST /api/events/regulatory-updates.
//
// @Summary      Announce a regulatory update
// @Tags         Events
// @Accept       json
// @Produce      json
// @Param        body  body  regulatoryUpdateRequest  true  "Update and recipients"
// @Success      200  {object}  notify.BulkResult
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /events/regulatory-updates [post]
func (h *Handler) RegulatoryUpdate(w http.ResponseWriter, r *http.Request) {
	var req regulatoryUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Update.ID == "" || req.Update.Title == "" {
		writeError(w, http.StatusBadRequest, "update id and title are required")
		return
	}
	if len(req.Recipients) > maxBulkEvents {
		writeError(w, http.StatusBadRequest, "too many recipients")
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Dispatcher.NotifyRegulatoryUpdate(r.Context(), req.Update, req.Recipients, req.TenantID))
}

// LegalCase handles POST /api/events/legal-cases.
//
// @Summary      Announce a legal case
// @Tags         Events
// @Accept       json
// @Produce      json
// @Param        body  body  legalCaseRequest  true  "Case and recipients"
// @Success      200  {object}  notify.BulkResult
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /events/legal-cases [post]
func (h *Handler) LegalCase(w http.ResponseWriter, r *http.Request) {
	var req legalCaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Case.ID == "" || req.Case.Title == "" {
		writeError(w, http.StatusBadRequest, "case id and title are required")
		return
	}
	if len(req.Recipients) > maxBulkEvents {
		writeError(w, http.StatusBadRequest, "too many recipients")
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Dispatcher.NotifyLegalCase(r.Context(), req.Case, req.Recipients, req.TenantID))
}

// SecurityAlert handles POST /api/events/security-alerts.
//
// @Summary      Raise a security alert
// @Description  Security alerts are urgent and always emailed to the affected user when email is enabled.
// @Tags         Events
// @Accept       json
// @Produce      json
// @Param        body  body  securityAlertRequest  true  "Alert"
// @Success      200  {object}  sendResponse
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Security     ApiKeyAuth
// @Security     BearerAuth
// @Router       /events/security-alerts [post]
func (h *Handler) SecurityAlert(w http.ResponseWriter, r *http.Request) {
	var req securityAlertRequest
	if !decodeBody(w, r, &req) {
		return
	}
	persisted, err := h.deps.Dispatcher.NotifySecurityAlert(r.Context(), req.Alert, req.TenantID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{Persisted: persisted})
}
