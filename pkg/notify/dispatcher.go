package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/txn2/helix/pkg/clock"
)

// DefaultBatchSize is how many events SendBulk runs concurrently.
const DefaultBatchSize = 10

// Config configures a Dispatcher.
type Config struct {
	// BatchSize bounds concurrent sends in SendBulk.
	BatchSize int

	// FrontendURL prefixes links rendered into notifications.
	FrontendURL string

	// Templates overrides the built-in templates per category.
	Templates Templates

	Clock clock.Clock
}

// BulkResult counts the outcome of SendBulk.
type BulkResult struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// Dispatcher persists notifications and delivers them over the enabled
// channels. A nil channel is skipped.
type Dispatcher struct {
	store     Store
	email     EmailSender
	push      PushSender
	templates Templates
	cfg       Config
	clock     clock.Clock
	newID     func() string
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(store Store, email EmailSender, push PushSender, cfg Config) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	templates := DefaultTemplates()
	maps.Copy(templates, cfg.Templates)

	return &Dispatcher{
		store:     store,
		email:     email,
		push:      push,
		templates: templates,
		cfg:       cfg,
		clock:     clock.OrReal(cfg.Clock),
		newID:     uuid.NewString,
	}
}

// Send notifies one recipient. An invalid event is rejected with an error
// wrapping ErrInvalidEvent before anything is stored. Otherwise Send
// reports whether the in-app record was persisted; channel failures are
// logged and never returned.
func (d *Dispatcher) Send(ctx context.Context, ev Event) (bool, error) {
	if err := ev.Validate(); err != nil {
		return false, err
	}

	slog.Info("sending notification",
		"recipient", ev.RecipientID, "category", ev.Category, "priority", ev.Priority)

	prefs := d.preferences(ctx, ev.RecipientID)

	n := Notification{
		ID:          d.newID(),
		RecipientID: ev.RecipientID,
		TenantID:    ev.TenantID,
		Category:    ev.Category,
		Title:       ev.Title,
		Body:        ev.Message,
		Payload:     ev.Payload,
		Priority:    ev.Priority,
		CreatedAt:   d.clock.Now().UTC(),
	}
	if n.Payload == nil {
		n.Payload = map[string]any{}
	}

	persisted := d.attempt("in_app", ev.RecipientID, func() error {
		return d.store.Insert(ctx, n)
	})

	if d.email != nil && shouldEmail(ev, prefs) {
		msg := d.render(ev)
		d.attempt("email", ev.RecipientID, func() error {
			return d.email.SendEmail(ctx, ev.RecipientID, msg)
		})
	}

	if d.push != nil && shouldPush(ev, prefs) {
		d.attempt("push", ev.RecipientID, func() error {
			return d.push.SendPush(ctx, ev.RecipientID, n)
		})
	}

	return persisted, nil
}

// SendBulk sends events in sequential batches. Events within a batch run
// concurrently; every event settles before the next batch starts, and a
// failed or invalid event only counts against Failed.
func (d *Dispatcher) SendBulk(ctx context.Context, events []Event) BulkResult {
	var success, failed atomic.Int64

	for start := 0; start < len(events); start += d.cfg.BatchSize {
		batch := events[start:min(start+d.cfg.BatchSize, len(events))]

		var g errgroup.Group
		for _, ev := range batch {
			g.Go(func() error {
				ok, err := d.safeSend(ctx, ev)
				if err != nil {
					slog.Warn("bulk notification rejected", "recipient", ev.RecipientID, "error", err)
				}
				if ok {
					success.Add(1)
				} else {
					failed.Add(1)
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	res := BulkResult{Success: int(success.Load()), Failed: int(failed.Load())}
	slog.Info("bulk notifications completed", "success", res.Success, "failed", res.Failed)
	return res
}

func (d *Dispatcher) safeSend(ctx context.Context, ev Event) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("notification send panicked: %v", r)
		}
	}()
	return d.Send(ctx, ev)
}

// preferences loads the recipient's preferences, falling back to the
// defaults when none are stored or the lookup fails.
func (d *Dispatcher) preferences(ctx context.Context, userID string) (prefs Preferences) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("loading notification preferences panicked", "user", userID, "panic", r)
			prefs = DefaultPreferences()
		}
	}()

	p, err := d.store.LoadPreferences(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		return DefaultPreferences()
	case err != nil:
		slog.Warn("loading notification preferences failed, using defaults", "user", userID, "error", err)
		return DefaultPreferences()
	}
	return p
}

// attempt runs one channel call, logging and absorbing errors and panics.
func (*Dispatcher) attempt(channel, recipientID string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("notification channel panicked", "channel", channel, "recipient", recipientID, "panic", r)
			ok = false
		}
	}()

	if err := fn(); err != nil {
		slog.Error("notification channel failed", "channel", channel, "recipient", recipientID, "error", err)
		return false
	}
	slog.Debug("notification channel delivered", "channel", channel, "recipient", recipientID)
	return true
}

func (d *Dispatcher) render(ev Event) Rendered {
	vars := map[string]string{
		"title":    ev.Title,
		"message":  ev.Message,
		"priority": string(ev.Priority),
	}
	maps.Copy(vars, ev.Variables)
	return d.templates[ev.Category].Render(vars)
}

// shouldEmail: urgent events bypass the category filter.
func shouldEmail(ev Event, prefs Preferences) bool {
	if !prefs.Email {
		return false
	}
	return ev.Priority == PriorityUrgent || prefs.Allows(ev.Category)
}

// shouldPush: push is reserved for high and urgent events in allowed
// categories.
func shouldPush(ev Event, prefs Preferences) bool {
	if !prefs.Push || !prefs.Allows(ev.Category) {
		return false
	}
	return ev.Priority == PriorityHigh || ev.Priority == PriorityUrgent
}
