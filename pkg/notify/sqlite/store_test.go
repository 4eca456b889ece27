package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbsqlite "github.com/txn2/helix/pkg/database/sqlite"
	"github.com/txn2/helix/pkg/notify"
)

var base = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := dbsqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db)
}

func insert(t *testing.T, s *Store, id, recipient string, offset time.Duration) {
	t.Helper()
	require.NoError(t, s.Insert(context.Background(), notify.Notification{
		ID:          id,
		RecipientID: recipient,
		TenantID:    "t-1",
		Category:    notify.CategorySystem,
		Title:       "title " + id,
		Body:        "body",
		Payload:     map[string]any{"n": id},
		Priority:    notify.PriorityMedium,
		CreatedAt:   base.Add(offset),
	}))
}

func TestStore_ListOrderingAndLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	insert(t, s, "a", "u-1", 0)
	insert(t, s, "b", "u-1", time.Minute)
	insert(t, s, "c", "u-1", 2*time.Minute)
	insert(t, s, "x", "u-2", 3*time.Minute)

	got, err := s.List(ctx, notify.ListFilter{RecipientID: "u-1"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "c", got[0].Payload["n"])
	assert.Equal(t, base.Add(2*time.Minute), got[0].CreatedAt)
	assert.Nil(t, got[0].ReadAt)

	got, err = s.List(ctx, notify.ListFilter{RecipientID: "u-1", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStore_ReadState(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	insert(t, s, "a", "u-1", 0)
	insert(t, s, "b", "u-1", time.Minute)
	insert(t, s, "c", "u-1", 2*time.Minute)

	count, err := s.CountUnread(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	ok, err := s.MarkRead(ctx, "u-2", "a", base)
	require.NoError(t, err)
	assert.False(t, ok, "foreign recipient must not mark")

	first := base.Add(time.Hour)
	ok, err = s.MarkRead(ctx, "u-1", "a", first)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.MarkRead(ctx, "u-1", "a", first.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	unread, err := s.List(ctx, notify.ListFilter{RecipientID: "u-1", UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	all, err := s.List(ctx, notify.ListFilter{RecipientID: "u-1"})
	require.NoError(t, err)
	read := all[2]
	assert.Equal(t, "a", read.ID)
	assert.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)
	assert.Equal(t, first, *read.ReadAt)

	n, err := s.MarkAllRead(ctx, "u-1", first)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err = s.CountUnread(ctx, "u-1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStore_Preferences(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.LoadPreferences(ctx, "u-1")
	assert.ErrorIs(t, err, notify.ErrNotFound)

	p := notify.Preferences{
		Email:      true,
		Push:       true,
		Frequency:  notify.FrequencyDaily,
		Categories: []notify.Category{notify.CategorySecurity},
	}
	require.NoError(t, s.SavePreferences(ctx, "u-1", p))

	got, err := s.LoadPreferences(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	p.Push = false
	p.Categories = nil
	require.NoError(t, s.SavePreferences(ctx, "u-1", p))
	got, err = s.LoadPreferences(ctx, "u-1")
	require.NoError(t, err)
	assert.False(t, got.Push)
	assert.Empty(t, got.Categories)
}

func TestStore_EmailAddress(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.db.ExecContext(ctx, "INSERT INTO users (id, email) VALUES (?, ?)", "u-1", "ada@example.com")
	require.NoError(t, err)

	addr, err := s.EmailAddress(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", addr)

	_, err = s.EmailAddress(ctx, "ghost")
	assert.ErrorIs(t, err, notify.ErrNotFound)
}
