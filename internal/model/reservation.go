package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SlotStatus is the lifecycle state of a booked meal slot.
type SlotStatus string

const (
	SlotPending   SlotStatus = "PENDING"
	SlotApproved  SlotStatus = "APPROVED"
	SlotConfirmed SlotStatus = "CONFIRMED"
	SlotCompleted SlotStatus = "COMPLETED"
	SlotCancelled SlotStatus = "CANCELLED"
)

// Valid reports whether s is one of the known statuses.
func (s SlotStatus) Valid() bool {
	switch s {
	case SlotPending, SlotApproved, SlotConfirmed, SlotCompleted, SlotCancelled:
		return true
	}
	return false
}

// Active reports whether a reservation in this status occupies a place
// in its slot. Only approved and confirmed bookings count.
func (s SlotStatus) Active() bool {
	return s == SlotApproved || s == SlotConfirmed
}

// Actor identifies which side of the marketplace performed an action.
type Actor string

const (
	ActorUser  Actor = "USER"
	ActorOwner Actor = "OWNER"
)

// DateLayout is the calendar-day format used for slot dates.
const DateLayout = "2006-01-02"

// Reservation is one requested meal slot at a mess. It corresponds to a
// row in the `booking_slots` table.
//
// Fields:
//
//	ID          – opaque UUID assigned on creation.
//	UserEmail   – requesting user.
//	UserName    – display name of the requesting user.
//	MessID      – mess the slot is booked at.
//	MessEmail   – mess owner's email; notifications to the owner go here.
//	MessName    – display name of the mess.
//	Date        – calendar day of the meal (UTC midnight).
//	TimeSlot    – free-form label such as "7:00 AM - 8:00 AM".
//	Status      – lifecycle state.
//	Paid        – true once confirmed with a payment reference.
//	PaymentID   – opaque payment token (nullable).
//	Amount      – requested amount (nullable).
//	CancelledBy – who cancelled the booking (nullable).
type Reservation struct {
	ID          string
	UserEmail   string
	UserName    string
	MessID      string
	MessEmail   string
	MessName    string
	Date        time.Time
	TimeSlot    string
	Status      SlotStatus
	Paid        bool
	PaymentID   *string
	Amount      decimal.NullDecimal
	CancelledBy *Actor
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ApprovedAt  *time.Time
	ConfirmedAt *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
}

// SlotKey returns the (mess, date, time slot) triple that capacity is
// counted against.
func (r *Reservation) SlotKey() SlotKey {
	return SlotKey{MessEmail: r.MessEmail, Date: r.Date, TimeSlot: r.TimeSlot}
}

// SlotKey addresses one bookable slot at one mess.
type SlotKey struct {
	MessEmail string
	Date      time.Time
	TimeSlot  string
}

// String renders the key for use as a lock name.
func (k SlotKey) String() string {
	return k.MessEmail + "|" + k.Date.Format(DateLayout) + "|" + k.TimeSlot
}

// Equal compares two keys by calendar day.
func (k SlotKey) Equal(o SlotKey) bool {
	return k.MessEmail == o.MessEmail && k.TimeSlot == o.TimeSlot &&
		k.Date.Format(DateLayout) == o.Date.Format(DateLayout)
}

// SlotPatch carries the fields a partial update may change. Nil fields
// are left untouched.
type SlotPatch struct {
	Date     *time.Time
	TimeSlot *string
	Amount   *decimal.Decimal
}

// Empty reports whether the patch changes nothing.
func (p SlotPatch) Empty() bool {
	return p.Date == nil && p.TimeSlot == nil && p.Amount == nil
}
