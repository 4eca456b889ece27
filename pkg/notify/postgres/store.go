// Package postgres provides PostgreSQL storage for notifications,
// notification preferences and the user email directory.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/txn2/helix/pkg/notify"
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// notificationColumns lists columns returned by notification SELECT queries.
var notificationColumns = []string{
	"id", "recipient_id", "tenant_id", "category", "title", "body",
	"payload", "priority", "is_read", "created_at", "read_at",
}

// Store implements notify.Store and notify.Directory using PostgreSQL.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new PostgreSQL notification store.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Insert persists a new notification.
func (s *Store) Insert(ctx context.Context, n notify.Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil || n.Payload == nil {
		payload = []byte("{}")
	}

	query, args, err := psq.Insert("notifications").
		Columns(notificationColumns...).
		Values(n.ID, n.RecipientID, n.TenantID, string(n.Category), n.Title, n.Body,
			payload, string(n.Priority), n.IsRead, n.CreatedAt, n.ReadAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

// List returns the recipient's notifications, newest first.
func (s *Store) List(ctx context.Context, filter notify.ListFilter) ([]notify.Notification, error) {
	qb := psq.Select(notificationColumns...).
		From("notifications").
		Where(sq.Eq{"recipient_id": filter.RecipientID})
	if filter.UnreadOnly {
		qb = qb.Where(sq.Eq{"is_read": false})
	}
	qb = qb.OrderBy("created_at DESC", "id DESC").Limit(uint64(filter.EffectiveLimit())) // #nosec G115 -- bounded by MaxListLimit

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []notify.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notification rows: %w", err)
	}
	return out, nil
}

// MarkRead marks one of the recipient's notifications read. Marking an
// already read notification keeps its original read time.
func (s *Store) MarkRead(ctx context.Context, recipientID, id string, at time.Time) (bool, error) {
	query, args, err := psq.Update("notifications").
		Set("is_read", true).
		Set("read_at", sq.Expr("COALESCE(read_at, ?)", at)).
		Where(sq.Eq{"id": id, "recipient_id": recipientID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
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
	query, args, err := psq.Update("notifications").
		Set("is_read", true).
		Set("read_at", at).
		Where(sq.Eq{"recipient_id": recipientID}).
		Where(sq.Eq{"is_read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
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
	query, args, err := psq.Select("COUNT(*)").
		From("notifications").
		Where(sq.Eq{"recipient_id": recipientID}).
		Where(sq.Eq{"is_read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building count query: %w", err)
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

// LoadPreferences returns the user's preferences or notify.ErrNotFound.
func (s *Store) LoadPreferences(ctx context.Context, userID string) (notify.Preferences, error) {
	query, args, err := psq.Select("email", "push", "in_app", "frequency", "categories").
		From("notification_preferences").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return notify.Preferences{}, fmt.Errorf("building query: %w", err)
	}

	var p notify.Preferences
	var frequency string
	var categories []string
	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&p.Email, &p.Push, &p.InApp, &frequency, pq.Array(&categories))
	if errors.Is(err, sql.ErrNoRows) {
		return notify.Preferences{}, notify.ErrNotFound
	}
	if err != nil {
		return notify.Preferences{}, fmt.Errorf("scanning preferences: %w", err)
	}

	p.Frequency = notify.Frequency(frequency)
	p.Categories = make([]notify.Category, 0, len(categories))
	for _, c := range categories {
		p.Categories = append(p.Categories, notify.Category(c))
	}
	return p, nil
}

// SavePreferences creates or replaces the user's preferences.
func (s *Store) SavePreferences(ctx context.Context, userID string, p notify.Preferences) error {
	categories := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		categories = append(categories, string(c))
	}

	query, args, err := psq.Insert("notification_preferences").
		Columns("user_id", "email", "push", "in_app", "frequency", "categories", "updated_at").
		Values(userID, p.Email, p.Push, p.InApp, string(p.Frequency), pq.Array(categories), s.now().UTC()).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			push = EXCLUDED.push,
			in_app = EXCLUDED.in_app,
			frequency = EXCLUDED.frequency,
			categories = EXCLUDED.categories,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("building upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("saving preferences: %w", err)
	}
	return nil
}

// EmailAddress returns the user's address or notify.ErrNotFound.
func (s *Store) EmailAddress(ctx context.Context, userID string) (string, error) {
	var addr string
	err := s.db.QueryRowContext(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&addr)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notify.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("looking up email address: %w", err)
	}
	return addr, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (notify.Notification, error) {
	var n notify.Notification
	var category, priority string
	var payload []byte
	var readAt sql.NullTime

	err := row.Scan(&n.ID, &n.RecipientID, &n.TenantID, &category, &n.Title, &n.Body,
		&payload, &priority, &n.IsRead, &n.CreatedAt, &readAt)
	if err != nil {
		return notify.Notification{}, fmt.Errorf("scanning notification: %w", err)
	}

	n.Category = notify.Category(category)
	n.Priority = notify.Priority(priority)
	n.Payload = map[string]any{}
	if len(payload) > 0 {
		_ = json.Unmarshal(payload, &n.Payload)
	}
	if readAt.Valid {
		t := readAt.Time
		n.ReadAt = &t
	}
	return n, nil
}

// Verify interface compliance.
var (
	_ notify.Store     = (*Store)(nil)
	_ notify.Directory = (*Store)(nil)
)
