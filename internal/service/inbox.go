package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/mymess-backend/internal/model"
	"github.com/iliyamo/mymess-backend/internal/repository"
)

const systemSenderName = "MyMess System"

// NotificationStore persists inbox messages.
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	GetByID(ctx context.Context, id string) (*model.Notification, error)
	List(ctx context.Context, f repository.NotificationFilter) ([]model.Notification, error)
	CountUnread(ctx context.Context, recipient string) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, recipient string) (int, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context, recipient string) (int, error)
}

// UserLookup is the part of IdentityLookup the inbox needs.
type UserLookup interface {
	UserByEmail(ctx context.Context, email string) (*model.User, error)
}

// InboxSink is the Sink that lands notifications in the recipient's
// inbox, filling in the sender's display name on the way.
type InboxSink struct {
	store NotificationStore
	users UserLookup
}

func NewInboxSink(store NotificationStore, users UserLookup) *InboxSink {
	return &InboxSink{store: store, users: users}
}

// Send implements Sink.
func (s *InboxSink) Send(ctx context.Context, n model.Notification) error {
	if n.SenderName == "" {
		n.SenderName = s.senderName(ctx, n.SenderEmail)
	}
	return s.store.Create(ctx, &n)
}

func (s *InboxSink) senderName(ctx context.Context, email string) string {
	if strings.EqualFold(email, model.SystemSenderEmail) {
		return systemSenderName
	}
	if s.users != nil {
		if u, err := s.users.UserByEmail(ctx, email); err == nil && u.Name != "" {
			return u.Name
		}
	}
	return email
}

// Inbox is the read side of the notification store.
type Inbox struct {
	store NotificationStore
}

func NewInbox(store NotificationStore) *Inbox { return &Inbox{store: store} }

// List returns a recipient's messages, newest first.
func (i *Inbox) List(ctx context.Context, recipient string, unreadOnly bool) ([]model.Notification, error) {
	return i.store.List(ctx, repository.NotificationFilter{RecipientEmail: recipient, UnreadOnly: unreadOnly})
}

func (i *Inbox) CountUnread(ctx context.Context, recipient string) (int, error) {
	return i.store.CountUnread(ctx, recipient)
}

// MarkRead flags one message as read. The message must belong to
// recipient; a foreign message is reported as missing.
func (i *Inbox) MarkRead(ctx context.Context, id, recipient string) (*model.Notification, error) {
	n, err := i.owned(ctx, id, recipient)
	if err != nil {
		return nil, err
	}
	if n.Read {
		return n, nil
	}
	if err := i.store.MarkRead(ctx, id); err != nil {
		return nil, err
	}
	n.Read = true
	return n, nil
}

// MarkAllRead flags every unread message of recipient and returns how
// many changed.
func (i *Inbox) MarkAllRead(ctx context.Context, recipient string) (int, error) {
	return i.store.MarkAllRead(ctx, recipient)
}

// Delete removes one message owned by recipient.
func (i *Inbox) Delete(ctx context.Context, id, recipient string) error {
	if _, err := i.owned(ctx, id, recipient); err != nil {
		return err
	}
	err := i.store.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return notificationNotFound(id)
	}
	return err
}

// DeleteAll clears recipient's inbox and returns how many messages went.
func (i *Inbox) DeleteAll(ctx context.Context, recipient string) (int, error) {
	return i.store.DeleteAll(ctx, recipient)
}

// owned loads a message and hides it when it belongs to someone else.
func (i *Inbox) owned(ctx context.Context, id, recipient string) (*model.Notification, error) {
	n, err := i.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !strings.EqualFold(n.RecipientEmail, recipient)) {
		return nil, notificationNotFound(id)
	}
	return n, err
}

func notificationNotFound(id string) error {
	return newError(ErrNotFound, "Notification not found with id: %s", id)
}
