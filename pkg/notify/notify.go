// Package notify turns domain events into persisted in-app notifications
// and fans them out to email and push channels according to each
// recipient's preferences.
package notify

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	// ErrInvalidEvent is returned when an event fails validation.
	ErrInvalidEvent = errors.New("invalid notification event")

	// ErrNotFound is returned when a notification, preference set or
	// directory entry does not exist.
	ErrNotFound = errors.New("not found")
)

// Category classifies a notification.
type Category string

// Notification categories.
const (
	CategoryRegulatoryUpdate Category = "regulatory_update"
	CategoryLegalCase        Category = "legal_case"
	CategorySystem           Category = "system"
	CategorySecurity         Category = "security"
	CategoryNewsletter       Category = "newsletter"
)

// Categories returns every known category.
func Categories() []Category {
	return []Category{
		CategoryRegulatoryUpdate,
		CategoryLegalCase,
		CategorySystem,
		CategorySecurity,
		CategoryNewsletter,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return slices.Contains(Categories(), c)
}

// Priority is the urgency of a notification.
type Priority string

// Priorities, lowest first.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Frequency is the delivery cadence a user asked for. Only stored; digest
// scheduling happens elsewhere.
type Frequency string

// Frequencies.
const (
	FrequencyImmediate Frequency = "immediate"
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyImmediate, FrequencyDaily, FrequencyWeekly:
		return true
	}
	return false
}

// Notification is an in-app notification record.
type Notification struct {
	ID          string         `json:"id"`
	RecipientID string         `json:"recipientId"`
	TenantID    string         `json:"tenantId"`
	Category    Category       `json:"category"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Payload     map[string]any `json:"payload,omitempty"`
	Priority    Priority       `json:"priority"`
	IsRead      bool           `json:"isRead"`
	CreatedAt   time.Time      `json:"createdAt"`
	ReadAt      *time.Time     `json:"readAt,omitempty"`
}

// Preferences are a user's delivery settings.
type Preferences struct {
	Email      bool       `json:"email"`
	Push       bool       `json:"push"`
	InApp      bool       `json:"inApp"`
	Frequency  Frequency  `json:"frequency"`
	Categories []Category `json:"categories"`
}

// DefaultPreferences applies to users who never saved preferences.
func DefaultPreferences() Preferences {
	return Preferences{
		Email:      true,
		Push:       false,
		InApp:      true,
		Frequency:  FrequencyImmediate,
		Categories: Categories(),
	}
}

// Allows reports whether the user wants notifications of category c.
func (p Preferences) Allows(c Category) bool {
	return slices.Contains(p.Categories, c)
}

// Validate checks frequency and categories.
func (p Preferences) Validate() error {
	if !p.Frequency.Valid() {
		return fmt.Errorf("unknown frequency %q", p.Frequency)
	}
	for _, c := range p.Categories {
		if !c.Valid() {
			return fmt.Errorf("unknown category %q", c)
		}
	}
	return nil
}

// Event is a request to notify one recipient.
type Event struct {
	RecipientID string            `json:"recipientId"`
	TenantID    string            `json:"tenantId"`
	Category    Category          `json:"category"`
	Title       string            `json:"title"`
	Message     string            `json:"message"`
	Payload     map[string]any    `json:"payload,omitempty"`
	Priority    Priority          `json:"priority"`
	Variables   map[string]string `json:"variables,omitempty"`
}

// Validate reports a malformed event. The error wraps ErrInvalidEvent.
func (e Event) Validate() error {
	switch {
	case e.RecipientID == "":
		return fmt.Errorf("%w: recipient is required", ErrInvalidEvent)
	case !e.Category.Valid():
		return fmt.Errorf("%w: unknown category %q", ErrInvalidEvent, e.Category)
	case !e.Priority.Valid():
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidEvent, e.Priority)
	case e.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidEvent)
	}
	return nil
}

// ListFilter selects notifications for List.
type ListFilter struct {
	RecipientID string
	UnreadOnly  bool
	Limit       int
}

// Paging bounds for List.
const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

// EffectiveLimit returns the limit List applies.
func (f ListFilter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	}
	return f.Limit
}

// Store persists notifications and preferences.
type Store interface {
	// Insert persists a new notification.
	Insert(ctx context.Context, n Notification) error

	// List returns the recipient's notifications, newest first.
	List(ctx context.Context, filter ListFilter) ([]Notification, error)

	// MarkRead marks one of the recipient's notifications read. It
	// reports false when no such notification belongs to the recipient.
	MarkRead(ctx context.Context, recipientID, id string, at time.Time) (bool, error)

	// MarkAllRead marks every unread notification of the recipient read
	// and returns how many changed.
	MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error)

	// CountUnread returns the number of unread notifications.
	CountUnread(ctx context.Context, recipientID string) (int64, error)

	// LoadPreferences returns the user's preferences or ErrNotFound.
	LoadPreferences(ctx context.Context, userID string) (Preferences, error)

	// SavePreferences creates or replaces the user's preferences.
	SavePreferences(ctx context.Context, userID string, p Preferences) error
}

// Directory resolves user contact details.
type Directory interface {
	// EmailAddress returns the user's address or ErrNotFound.
	EmailAddress(ctx context.Context, userID string) (string, error)
}

// EmailSender delivers a rendered message to a recipient.
type EmailSender interface {
	SendEmail(ctx context.Context, recipientID string, msg Rendered) error
}

// PushSender delivers a push notification to a recipient.
type PushSender interface {
	SendPush(ctx context.Context, recipientID string, n Notification) error
}
