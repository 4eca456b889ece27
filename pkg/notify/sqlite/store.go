// Package sqlite provides SQLite storage for notifications, preferences
// and the user email directory.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/txn2/helix/pkg/notify"
)

// Store implements notify.Store and notify.Directory using SQLite.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

type notificationRow struct {
	ID          string        `db:"id"`
	RecipientID string        `db:"recipient_id"`
	TenantID    string        `db:"tenant_id"`
	Category    string        `db:"category"`
	Title       string        `db:"title"`
	Body        string        `db:"body"`
	Payload     string        `db:"payload"`
	Priority    string        `db:"priority"`
	IsRead      bool          `db:"is_read"`
	CreatedAt   int64         `db:"created_at"`
	ReadAt      sql.NullInt64 `db:"read_at"`
}

func (r notificationRow) toNotification() notify.Notification {
	n := notify.Notification{
		ID:          r.ID,
		RecipientID: r.RecipientID,
		TenantID:    r.TenantID,
		Category:    notify.Category(r.Category),
		Title:       r.Title,
		Body:        r.Body,
		Payload:     map[string]any{},
		Priority:    notify.Priority(r.Priority),
		IsRead:      r.IsRead,
		CreatedAt:   time.UnixMilli(r.CreatedAt).UTC(),
	}
	_ = json.Unmarshal([]byte(r.Payload), &n.Payload)
	if r.ReadAt.Valid {
		t := time.UnixMilli(r.ReadAt.Int64).UTC()
		n.ReadAt = &t
	}
	return n
}

type preferencesRow struct {
	Email      bool   `db:"email"`
	Push       bool   `db:"push"`
	InApp      bool   `db:"in_app"`
	Frequency  string `db:"frequency"`
	Categories string `db:"categories"`
}

// New creates a SQLite notification store over a database opened with
// database/sqlite.Open.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Insert persists a new notification.
func (s *Store) Insert(ctx context.Context, n notify.Notification) error {
	payload := "{}"
	if n.Payload != nil {
		if data, err := json.Marshal(n.Payload); err == nil {
			payload = string(data)
		}
	}
	var readAt sql.NullInt64
	if n.ReadAt != nil {
		readAt = sql.NullInt64{Int64: n.ReadAt.UnixMilli(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications
			(id, recipient_id, tenant_id, category, title, body, payload, priority, is_read, created_at, read_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.RecipientID, n.TenantID, string(n.Category), n.Title, n.Body,
		payload, string(n.Priority), n.IsRead, n.CreatedAt.UnixMilli(), readAt,
	)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

// List returns the recipient's notifications, newest first.
func (s *Store) List(ctx context.Context, filter notify.ListFilter) ([]notify.Notification, error) {
	query := `SELECT id, recipient_id, tenant_id, category, title, body, payload, priority, is_read, created_at, read_at
		FROM notifications WHERE recipient_id = ?`
	args := []any{filter.RecipientID}
	if filter.UnreadOnly {
		query += " AND is_read = 0"
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, filter.EffectiveLimit())

	var rows []notificationRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}

	out := make([]notify.Notification, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toNotification())
	}
	return out, nil
}

// MarkRead marks one of the recipient's notifications read, keeping the
// first read time.
func (s *Store) MarkRead(ctx context.Context, recipientID, id string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = 1, read_at = COALESCE(read_at, ?)
		WHERE id = ? AND recipient_id = ?`,
		at.UnixMilli(), id, recipientID,
	)
	if err != nil {
		return false, fmt.Errorf("marking notification read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return n > 0, nil
}

// MarkAllRead marks every unread notification of the recipient read.
func (s *Store) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = 1, read_at = ?
		WHERE recipient_id = ? AND is_read = 0`,
		at.UnixMilli(), recipientID,
	)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return n, nil
}

// CountUnread returns the number of unread notifications.
func (s *Store) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND is_read = 0", recipientID)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

// LoadPreferences returns the user's preferences or notify.ErrNotFound.
func (s *Store) LoadPreferences(ctx context.Context, userID string) (notify.Preferences, error) {
	var row preferencesRow
	err := s.db.GetContext(ctx, &row, `
		SELECT email, push, in_app, frequency, categories
		FROM notification_preferences WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return notify.Preferences{}, notify.ErrNotFound
	}
	if err != nil {
		return notify.Preferences{}, fmt.Errorf("loading preferences: %w", err)
	}

	p := notify.Preferences{
		Email:      row.Email,
		Push:       row.Push,
		InApp:      row.InApp,
		Frequency:  notify.Frequency(row.Frequency),
		Categories: []notify.Category{},
	}
	if err := json.Unmarshal([]byte(row.Categories), &p.Categories); err != nil {
		return notify.Preferences{}, fmt.Errorf("parsing categories: %w", err)
	}
	return p, nil
}

// SavePreferences creates or replaces the user's preferences.
func (s *Store) SavePreferences(ctx context.Context, userID string, p notify.Preferences) error {
	categories := p.Categories
	if categories == nil {
		categories = []notify.Category{}
	}
	data, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("marshaling categories: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notification_preferences (user_id, email, push, in_app, frequency, categories, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			email = excluded.email,
			push = excluded.push,
			in_app = excluded.in_app,
			frequency = excluded.frequency,
			categories = excluded.categories,
			updated_at = excluded.updated_at`,
		userID, p.Email, p.Push, p.InApp, string(p.Frequency), string(data), s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}
	return nil
}

// EmailAddress returns the user's address or notify.ErrNotFound.
func (s *Store) EmailAddress(ctx context.Context, userID string) (string, error) {
	var addr string
	err := s.db.GetContext(ctx, &addr, "SELECT email FROM users WHERE id = ?", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notify.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("looking up email address: %w", err)
	}
	return addr, nil
}

// Verify interface compliance.
var (
	_ notify.Store     = (*Store)(nil)
	_ notify.Directory = (*Store)(nil)
)
