package model

import "time"

// Notification types emitted by slot transitions.
const (
	NotifyBookingRequest   = "BOOKING_REQUEST"
	NotifyBookingApproved  = "BOOKING_APPROVED"
	NotifyBookingConfirmed = "BOOKING_CONFIRMED"
	NotifyBookingCancelled = "BOOKING_CANCELLED"
	NotifyBookingCompleted = "BOOKING_COMPLETED"
)

// SystemSenderEmail is the sender address used for messages that do not
// originate from a person.
const SystemSenderEmail = "system@myMessApp.com"

// Notification is an inbox message for a user or mess owner. It maps to
// the `notifications` table.
type Notification struct {
	ID              string
	RecipientEmail  string
	SenderEmail     string
	SenderName      string
	Title           string
	Message         string
	Type            string
	RelatedEntityID string
	Read            bool
	CreatedAt       time.Time
}
