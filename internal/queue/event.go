// Package queue carries slot notifications over RabbitMQ: a publisher that
// acts as the notifier's sink and a consumer that lands events in the inbox.
package queue

import (
	"time"

	"github.com/iliyamo/mymess-backend/internal/model"
)

// NotificationQueue is the durable queue both sides declare.
const NotificationQueue = "slot.notifications"

// NotificationEvent is the wire form of a model.Notification.
type NotificationEvent struct {
	ID              string `json:"id"`
	RecipientEmail  string `json:"recipient_email"`
	SenderEmail     string `json:"sender_email"`
	SenderName      string `json:"sender_name,omitempty"`
	Title           string `json:"title"`
	Message         string `json:"message"`
	Type            string `json:"type"`
	RelatedEntityID string `json:"related_entity_id"`
	CreatedAt       string `json:"created_at"`
}

func eventFrom(n model.Notification) NotificationEvent {
	return NotificationEvent{
		ID:              n.ID,
		RecipientEmail:  n.RecipientEmail,
		SenderEmail:     n.SenderEmail,
		SenderName:      n.SenderName,
		Title:           n.Title,
		Message:         n.Message,
		Type:            n.Type,
		RelatedEntityID: n.RelatedEntityID,
		CreatedAt:       n.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Notification converts the event back. An unparsable timestamp becomes
// the zero time.
func (ev NotificationEvent) Notification() model.Notification {
	created, _ := time.Parse(time.RFC3339Nano, ev.CreatedAt)
	return model.Notification{
		ID:              ev.ID,
		RecipientEmail:  ev.RecipientEmail,
		SenderEmail:     ev.SenderEmail,
		SenderName:      ev.SenderName,
		Title:           ev.Title,
		Message:         ev.Message,
		Type:            ev.Type,
		RelatedEntityID: ev.RelatedEntityID,
		CreatedAt:       created,
	}
}
