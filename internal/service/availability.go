package service

import (
	"context"
	"time"

	"github.com/iliyamo/mymess-backend/internal/model"
)

// DefaultSlotCapacity is the number of approved or confirmed bookings a
// single (mess, date, time slot) accepts when no capacity is configured.
const DefaultSlotCapacity = 5

// ActiveCounter counts reservations that occupy a place in a slot.
type ActiveCounter interface {
	CountActive(ctx context.Context, key model.SlotKey) (int, error)
}

// Availability answers whether a slot still has room. It only reads; the
// caller must hold the slot lock across the check and the write that
// consumes the place.
type Availability struct {
	counter  ActiveCounter
	capacity int
}

// NewAvailability returns a checker with the given ceiling. Non-positive
// capacities fall back to DefaultSlotCapacity.
func NewAvailability(counter ActiveCounter, capacity int) *Availability {
	if capacity <= 0 {
		capacity = DefaultSlotCapacity
	}
	return &Availability{counter: counter, capacity: capacity}
}

// Capacity returns the configured ceiling.
func (a *Availability) Capacity() int { return a.capacity }

// Check reports whether fewer than Capacity APPROVED/CONFIRMED
// reservations exist for the triple.
func (a *Availability) Check(ctx context.Context, date time.Time, timeSlot, messEmail string) (bool, error) {
	return a.HasRoom(ctx, model.SlotKey{MessEmail: messEmail, Date: date, TimeSlot: timeSlot})
}

// HasRoom is Check addressed by key.
func (a *Availability) HasRoom(ctx context.Context, key model.SlotKey) (bool, error) {
	n, err := a.counter.CountActive(ctx, key)
	if err != nil {
		return false, err
	}
	return n < a.capacity, nil
}
