package repository

import (
	"time"

	"github.com/iliyamo/mymess-backend/internal/model"
)

// SlotFilter selects booking slots. Zero-valued fields are ignored, so an
// empty filter matches every row. Results are ordered by date and then by
// creation time.
type SlotFilter struct {
	UserEmail string
	MessEmail string
	Status    model.SlotStatus
	Date      *time.Time
	TimeSlot  string
}

// Match applies the filter to a single reservation. The MySQL store
// translates the same fields into a WHERE clause; the memory store calls
// Match directly.
func (f SlotFilter) Match(r *model.Reservation) bool {
	if f.UserEmail != "" && r.UserEmail != f.UserEmail {
		return false
	}
	if f.MessEmail != "" && r.MessEmail != f.MessEmail {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Date != nil && r.Date.Format(model.DateLayout) != f.Date.Format(model.DateLayout) {
		return false
	}
	if f.TimeSlot != "" && r.TimeSlot != f.TimeSlot {
		return false
	}
	return true
}

// PaymentFilter selects ledger entries. From and To bound the payment
// date inclusively when set. Results are ordered oldest first.
type PaymentFilter struct {
	UserEmail string
	MessID    string
	From      *time.Time
	To        *time.Time
}

// Match applies the filter to a single entry.
func (f PaymentFilter) Match(e *model.LedgerEntry) bool {
	if f.UserEmail != "" && e.UserEmail != f.UserEmail {
		return false
	}
	if f.MessID != "" && e.MessID != f.MessID {
		return false
	}
	if f.From != nil && e.PaymentDate.Before(*f.From) {
		return false
	}
	if f.To != nil && e.PaymentDate.After(*f.To) {
		return false
	}
	return true
}

// NotificationFilter selects inbox messages for one recipient, newest
// first. UnreadOnly drops messages already marked read.
type NotificationFilter struct {
	RecipientEmail string
	UnreadOnly     bool
}

// Match applies the filter to a single notification.
func (f NotificationFilter) Match(n *model.Notification) bool {
	if f.RecipientEmail != "" && n.RecipientEmail != f.RecipientEmail {
		return false
	}
	if f.UnreadOnly && n.Read {
		return false
	}
	return true
}
