package notify

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
)

// MapPriority converts a source severity to a Priority. Unknown values
// map to low.
func MapPriority(severity string) Priority {
	switch strings.ToLower(severity) {
	case "critical", "urgent":
		return PriorityUrgent
	case "high":
		return PriorityHigh
	case "medium":
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// MapImpactLevel converts a legal case impact level to a Priority. Unlike
// MapPriority it does not accept "urgent".
func MapImpactLevel(level string) Priority {
	switch strings.ToLower(level) {
	case "critical":
		return PriorityUrgent
	case "high":
		return PriorityHigh
	case "medium":
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// RegulatoryUpdate is the subset of a regulatory update used to notify.
type RegulatoryUpdate struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Summary      string `json:"summary"`
	SourceID     string `json:"sourceId"`
	Jurisdiction string `json:"jurisdiction"`
	Priority     string `json:"priority"`
}

// LegalCase is the subset of a legal case used to notify.
type LegalCase struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	Court        string `json:"court"`
	Jurisdiction string `json:"jurisdiction"`
	DecisionDate string `json:"decisionDate"`
	ImpactLevel  string `json:"impactLevel"`
}

// SecurityAlert describes a security-relevant occurrence.
type SecurityAlert struct {
	Title     string `json:"title"`
	Message   string `json:"message"`
	IPAddress string `json:"ipAddress"`
	UserAgent string `json:"userAgent"`
	UserID    string `json:"userId"`
}

// systemRecipient receives security alerts not tied to a user.
const systemRecipient = "system"

const unknownValue = "unknown"

// NotifyRegulatoryUpdate notifies each recipient about u.
func (d *Dispatcher) NotifyRegulatoryUpdate(ctx context.Context, u RegulatoryUpdate, recipients []string, tenantID string) BulkResult {
	summary := u.Description
	if summary == "" {
		summary = u.Summary
	}
	vars := map[string]string{
		"title":    u.Title,
		"source":   u.SourceID,
		"region":   u.Jurisdiction,
		"priority": u.Priority,
		"summary":  summary,
		"url":      d.link("regulatory-updates", u.ID),
	}

	events := make([]Event, 0, len(recipients))
	for _, r := range recipients {
		events = append(events, Event{
			RecipientID: r,
			TenantID:    tenantID,
			Category:    CategoryRegulatoryUpdate,
			Title:       u.Title,
			Message:     summary,
			Payload: map[string]any{
				"updateId": u.ID,
				"source":   u.SourceID,
				"region":   u.Jurisdiction,
				"priority": u.Priority,
			},
			Priority:  MapPriority(u.Priority),
			Variables: vars,
		})
	}
	return d.SendBulk(ctx, events)
}

// NotifyLegalCase notifies each recipient about c.
func (d *Dispatcher) NotifyLegalCase(ctx context.Context, c LegalCase, recipients []string, tenantID string) BulkResult {
	vars := map[string]string{
		"title":        c.Title,
		"court":        c.Court,
		"jurisdiction": c.Jurisdiction,
		"decisionDate": c.DecisionDate,
		"impactLevel":  c.ImpactLevel,
		"summary":      c.Summary,
		"url":          d.link("legal-cases", c.ID),
	}

	events := make([]Event, 0, len(recipients))
	for _, r := range recipients {
		events = append(events, Event{
			RecipientID: r,
			TenantID:    tenantID,
			Category:    CategoryLegalCase,
			Title:       c.Title,
			Message:     c.Summary,
			Payload: map[string]any{
				"caseId":       c.ID,
				"court":        c.Court,
				"jurisdiction": c.Jurisdiction,
			},
			Priority:  MapImpactLevel(c.ImpactLevel),
			Variables: vars,
		})
	}
	return d.SendBulk(ctx, events)
}

// NotifySecurityAlert sends a at urgent priority to its user, or to the
// system recipient when no user is named.
func (d *Dispatcher) NotifySecurityAlert(ctx context.Context, a SecurityAlert, tenantID string) (bool, error) {
	recipient := orDefault(a.UserID, systemRecipient)
	return d.Send(ctx, Event{
		RecipientID: recipient,
		TenantID:    tenantID,
		Category:    CategorySecurity,
		Title:       a.Title,
		Message:     a.Message,
		Priority:    PriorityUrgent,
		Variables: map[string]string{
			"title":     a.Title,
			"timestamp": d.clock.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			"ipAddress": orDefault(a.IPAddress, unknownValue),
			"userAgent": orDefault(a.UserAgent, unknownValue),
			"message":   a.Message,
		},
	})
}

func (d *Dispatcher) link(section, id string) string {
	u, err := url.JoinPath(d.cfg.FrontendURL, section, id)
	if err != nil {
		slog.Warn("building notification link failed", "base", d.cfg.FrontendURL, "error", err)
		return d.cfg.FrontendURL + "/" + section + "/" + id
	}
	return u
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
