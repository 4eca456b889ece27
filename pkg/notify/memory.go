package notify

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store and Directory in memory.
type MemoryStore struct {
	mu            sync.RWMutex
	notifications []Notification
	preferences   map[string]Preferences
	emails        map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		preferences: make(map[string]Preferences),
		emails:      make(map[string]string),
	}
}

// Insert persists a new notification.
func (s *MemoryStore) Insert(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
	return nil
}

// List returns the recipient's notifications, newest first.
func (s *MemoryStore) List(_ context.Context, filter ListFilter) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Notification
	for _, n := range s.notifications {
		if n.RecipientID != filter.RecipientID {
			continue
		}
		if filter.UnreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit := filter.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkRead marks one of the recipient's notifications read.
func (s *MemoryStore) MarkRead(_ context.Context, recipientID, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.notifications, func(n Notification) bool {
		return n.ID == id && n.RecipientID == recipientID
	})
	if i < 0 {
		return false, nil
	}
	if !s.notifications[i].IsRead {
		s.notifications[i].IsRead = true
		s.notifications[i].ReadAt = &at
	}
	return true, nil
}

// MarkAllRead marks every unread notification of the recipient read.
func (s *MemoryStore) MarkAllRead(_ context.Context, recipientID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	for i := range s.notifications {
		n := &s.notifications[i]
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &at
			changed++
		}
	}
	return changed, nil
}

// CountUnread returns the number of unread notifications.
func (s *MemoryStore) CountUnread(_ context.Context, recipientID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, n := range s.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// LoadPreferences returns the user's preferences or ErrNotFound.
func (s *MemoryStore) LoadPreferences(_ context.Context, userID string) (Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.preferences[userID]
	if !ok {
		return Preferences{}, ErrNotFound
	}
	p.Categories = slices.Clone(p.Categories)
	return p, nil
}

// SavePreferences creates or replaces the user's preferences.
func (s *MemoryStore) SavePreferences(_ context.Context, userID string, p Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.Categories = slices.Clone(p.Categories)
	s.preferences[userID] = p
	return nil
}

// SetEmailAddress records a user's address for EmailAddress.
func (s *MemoryStore) SetEmailAddress(userID, address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails[userID] = address
}

// EmailAddress returns the user's address or ErrNotFound.
func (s *MemoryStore) EmailAddress(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	addr, ok := s.emails[userID]
	if !ok {
		return "", ErrNotFound
	}
	return addr, nil
}

// Verify interface compliance.
var (
	_ Store     = (*MemoryStore)(nil)
	_ Directory = (*MemoryStore)(nil)
)
