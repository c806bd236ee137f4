package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/mymess-backend/internal/model"
	"github.com/iliyamo/mymess-backend/internal/repository"
)

// NotificationStore keeps inbox messages in insertion order.
type NotificationStore struct {
	mu    sync.Mutex
	items []model.Notification
}

// NewNotificationStore returns an empty NotificationStore.
func NewNotificationStore() *NotificationStore { return &NotificationStore{} }

// Create stores a copy of n.
func (s *NotificationStore) Create(_ context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, *n)
	return nil
}

// GetByID returns a copy of the notification or repository.ErrNotFound.
func (s *NotificationStore) GetByID(_ context.Context, id string) (*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.items {
		if n.ID == id {
			c := n
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

// List returns the matching notifications, newest first.
func (s *NotificationStore) List(_ context.Context, f repository.NotificationFilter) ([]model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Notification{}
	for i := len(s.items) - 1; i >= 0; i-- {
		if f.Match(&s.items[i]) {
			out = append(out, s.items[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// CountUnread counts unread messages for the recipient.
func (s *NotificationStore) CountUnread(_ context.Context, recipient string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.items {
		if it.RecipientEmail == recipient && !it.Read {
			n++
		}
	}
	return n, nil
}

// MarkRead flags one message as read.
func (s *NotificationStore) MarkRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Read = true
			return nil
		}
	}
	return repository.ErrNotFound
}

// MarkAllRead flags every unread message for the recipient.
func (s *NotificationStore) MarkAllRead(_ context.Context, recipient string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.items {
		if s.items[i].RecipientEmail == recipient && !s.items[i].Read {
			s.items[i].Read = true
			n++
		}
	}
	return n, nil
}

// Delete removes one message.
func (s *NotificationStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// DeleteAll removes every message for the recipient.
func (s *NotificationStore) DeleteAll(_ context.Context, recipient string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	for _, it := range s.items {
		if it.RecipientEmail != recipient {
			kept = append(kept, it)
		}
	}
	n := len(s.items) - len(kept)
	s.items = kept
	return n, nil
}

// All returns a snapshot of every stored message in insertion order.
func (s *NotificationStore) All() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Notification(nil), s.items...)
}
