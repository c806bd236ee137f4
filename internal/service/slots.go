package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/mymess-backend/internal/lock"
	"github.com/iliyamo/mymess-backend/internal/model"
	"github.com/iliyamo/mymess-backend/internal/repository"
)

// SlotStore is the persistence the state machine needs. Transition must
// run fn and write the result back atomically with respect to other
// Transition calls on the same id.
type SlotStore interface {
	ActiveCounter
	Create(ctx context.Context, res *model.Reservation) error
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	List(ctx context.Context, f repository.SlotFilter) ([]model.Reservation, error)
	Transition(ctx context.Context, id string, fn func(*model.Reservation) error) (*model.Reservation, error)
	Delete(ctx context.Context, id string) error
}

// SlotOptions tunes the state machine.
type SlotOptions struct {
	// Capacity is the per-slot ceiling of approved and confirmed bookings.
	Capacity int
	// AllowDirectConfirm lets Confirm move a PENDING booking straight to
	// CONFIRMED, skipping approval. Capacity is still enforced.
	AllowDirectConfirm bool
	// LockTimeout bounds how long a request waits for a busy slot.
	LockTimeout time.Duration
}

// SlotService implements the meal-slot reservation lifecycle:
//
//	PENDING -> APPROVED -> CONFIRMED -> COMPLETED
//	PENDING | APPROVED -> CANCELLED
//
// Each transition checks its precondition inside the store's atomic
// read-modify-write, then fires notifications through the Notifier.
// Operations that consume capacity hold the slot lock across the
// availability check and the write.
type SlotService struct {
	store              SlotStore
	avail              *Availability
	locks              lock.Locker
	notify             *Notifier
	allowDirectConfirm bool
	lockTimeout        time.Duration
	now                func() time.Time
}

// NewSlotService wires the state machine. A nil locker falls back to an
// in-process lock.
func NewSlotService(store SlotStore, locks lock.Locker, notify *Notifier, opts SlotOptions) *SlotService {
	if locks == nil {
		locks = lock.NewLocal()
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 3 * time.Second
	}
	return &SlotService{
		store:              store,
		avail:              NewAvailability(store, opts.Capacity),
		locks:              locks,
		notify:             notify,
		allowDirectConfirm: opts.AllowDirectConfirm,
		lockTimeout:        opts.LockTimeout,
		now:                time.Now,
	}
}

// Availability exposes the checker the service enforces.
func (s *SlotService) Availability() *Availability { return s.avail }

// BookingRequest is the input to Create.
type BookingRequest struct {
	UserEmail string
	UserName  string
	MessID    string
	MessEmail string
	MessName  string
	Date      time.Time
	TimeSlot  string
	Amount    *decimal.Decimal
}

func (r BookingRequest) validate() error {
	missing := []string{}
	if strings.TrimSpace(r.UserEmail) == "" {
		missing = append(missing, "userEmail")
	}
	if strings.TrimSpace(r.MessID) == "" {
		missing = append(missing, "messId")
	}
	if strings.TrimSpace(r.MessEmail) == "" {
		missing = append(missing, "messEmail")
	}
	if r.Date.IsZero() {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(r.TimeSlot) == "" {
		missing = append(missing, "timeSlot")
	}
	if len(missing) > 0 {
		return newError(ErrValidation, "missing required fields: %s", strings.Join(missing, ", "))
	}
	if r.Amount != nil && r.Amount.IsNegative() {
		return newError(ErrValidation, "amount must not be negative")
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Create books a new slot in PENDING and notifies the mess owner.
func (s *SlotService) Create(ctx context.Context, req BookingRequest) (*model.Reservation, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	res := &model.Reservation{
		ID:        uuid.NewString(),
		UserEmail: strings.TrimSpace(req.UserEmail),
		UserName:  req.UserName,
		MessID:    strings.TrimSpace(req.MessID),
		MessEmail: strings.TrimSpace(req.MessEmail),
		MessName:  req.MessName,
		Date:      dateOnly(req.Date),
		TimeSlot:  strings.TrimSpace(req.TimeSlot),
		Status:    model.SlotPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Amount != nil {
		res.Amount = decimal.NewNullDecimal(*req.Amount)
	}

	key := res.SlotKey()
	err := s.withSlotLock(ctx, key, func() error {
		if err := s.ensureRoom(ctx, key); err != nil {
			return err
		}
		return s.store.Create(ctx, res)
	})
	if err != nil {
		return nil, err
	}

	s.notify.Dispatch(ctx, model.Notification{
		RecipientEmail:  res.MessEmail,
		SenderEmail:     res.UserEmail,
		Title:           "New Booking Request",
		Message:         fmt.Sprintf("You have received a new booking request for %s at %s from %s", res.Date.Format(model.DateLayout), res.TimeSlot, res.UserName),
		Type:            model.NotifyBookingRequest,
		RelatedEntityID: res.ID,
	})
	return res, nil
}

// Get loads one reservation.
func (s *SlotService) Get(ctx context.Context, id string) (*model.Reservation, error) {
	res, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, slotNotFound(id)
	}
	return res, err
}

// List returns the reservations matching f.
func (s *SlotService) List(ctx context.Context, f repository.SlotFilter) ([]model.Reservation, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, newError(ErrValidation, "unknown status %q", string(f.Status))
	}
	return s.store.List(ctx, f)
}

// CheckAvailability reports whether the slot has room for another
// approved booking. It does not reserve anything.
func (s *SlotService) CheckAvailability(ctx context.Context, date time.Time, timeSlot, messEmail string) (bool, error) {
	return s.avail.Check(ctx, dateOnly(date), timeSlot, messEmail)
}

// Approve moves a PENDING booking to APPROVED. Approval is what takes a
// place in the slot, so capacity is re-checked under the slot lock.
func (s *SlotService) Approve(ctx context.Context, id string) (*model.Reservation, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.Status != model.SlotPending {
		return nil, badTransition(id, cur.Status, model.SlotApproved)
	}

	var out *model.Reservation
	key := cur.SlotKey()
	err = s.withSlotLock(ctx, key, func() error {
		if err := s.ensureRoom(ctx, key); err != nil {
			return err
		}
		var terr error
		out, terr = s.transition(ctx, id, func(r *model.Reservation) error {
			if r.Status != model.SlotPending {
				return badTransition(id, r.Status, model.SlotApproved)
			}
			if !r.SlotKey().Equal(key) {
				return rescheduled(id)
			}
			now := s.now().UTC()
			r.Status = model.SlotApproved
			r.ApprovedAt = &now
			r.UpdatedAt = now
			return nil
		})
		return terr
	})
	if err != nil {
		return nil, err
	}

	s.notify.Dispatch(ctx, model.Notification{
		RecipientEmail:  out.UserEmail,
		SenderEmail:     out.MessEmail,
		Title:           "Booking Request Approved",
		Message:         fmt.Sprintf("Your booking request for %s at %s has been approved. Please proceed with payment to confirm.", out.Date.Format(model.DateLayout), out.TimeSlot),
		Type:            model.NotifyBookingApproved,
		RelatedEntityID: out.ID,
	})
	return out, nil
}

// Confirm records the payment reference on an APPROVED booking and marks
// it CONFIRMED and paid. PENDING bookings are accepted only when direct
// confirmation is enabled.
func (s *SlotService) Confirm(ctx context.Context, id, paymentRef string) (*model.Reservation, error) {
	paymentRef = strings.TrimSpace(paymentRef)
	if paymentRef == "" {
		return nil, newError(ErrValidation, "paymentId is required")
	}
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// key is set when the caller holds that slot's lock and checked room in it.
	confirm := func(from model.SlotStatus, key *model.SlotKey) func(*model.Reservation) error {
		return func(r *model.Reservation) error {
			if r.Status != from {
				return badTransition(id, r.Status, model.SlotConfirmed)
			}
			if key != nil && !r.SlotKey().Equal(*key) {
				return rescheduled(id)
			}
			now := s.now().UTC()
			ref := paymentRef
			r.Status = model.SlotConfirmed
			r.Paid = true
			r.PaymentID = &ref
			r.ConfirmedAt = &now
			r.UpdatedAt = now
			return nil
		}
	}

	var out *model.Reservation
	switch {
	case cur.Status == model.SlotApproved:
		out, err = s.transition(ctx, id, confirm(model.SlotApproved, nil))
	case cur.Status == model.SlotPending && s.allowDirectConfirm:
		key := cur.SlotKey()
		err = s.withSlotLock(ctx, key, func() error {
			if err := s.ensureRoom(ctx, key); err != nil {
				return err
			}
			var terr error
			out, terr = s.transition(ctx, id, confirm(model.SlotPending, &key))
			return terr
		})
	default:
		return nil, badTransition(id, cur.Status, model.SlotConfirmed)
	}
	if err != nil {
		return nil, err
	}

	day := out.Date.Format(model.DateLayout)
	s.notify.Dispatch(ctx,
		model.Notification{
			RecipientEmail:  out.UserEmail,
			SenderEmail:     out.MessEmail,
			Title:           "Booking Confirmed",
			Message:         fmt.Sprintf("Your booking for %s at %s has been confirmed.", day, out.TimeSlot),
			Type:            model.NotifyBookingConfirmed,
			RelatedEntityID: out.ID,
		},
		model.Notification{
			RecipientEmail:  out.MessEmail,
			SenderEmail:     out.UserEmail,
			Title:           "Booking Confirmed",
			Message:         fmt.Sprintf("A booking for %s at %s has been confirmed by %s", day, out.TimeSlot, out.UserName),
			Type:            model.NotifyBookingConfirmed,
			RelatedEntityID: out.ID,
		},
	)
	return out, nil
}

// Cancel moves a PENDING or APPROVED booking to CANCELLED. Confirmed
// bookings are paid for and cannot be cancelled here. The counterparty of
// by is notified: a user cancellation informs the mess owner and an owner
// cancellation informs the user. An empty by means the user.
func (s *SlotService) Cancel(ctx context.Context, id string, by model.Actor) (*model.Reservation, error) {
	if by == "" {
		by = model.ActorUser
	}
	if by != model.ActorUser && by != model.ActorOwner {
		return nil, newError(ErrValidation, "cancelledBy must be USER or OWNER")
	}
	out, err := s.transition(ctx, id, func(r *model.Reservation) error {
		if r.Status != model.SlotPending && r.Status != model.SlotApproved {
			return badTransition(id, r.Status, model.SlotCancelled)
		}
		now := s.now().UTC()
		actor := by
		r.Status = model.SlotCancelled
		r.CancelledAt = &now
		r.CancelledBy = &actor
		r.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	day := out.Date.Format(model.DateLayout)
	n := model.Notification{
		Title:           "Booking Cancelled",
		Type:            model.NotifyBookingCancelled,
		RelatedEntityID: out.ID,
	}
	if by == model.ActorUser {
		n.RecipientEmail, n.SenderEmail = out.MessEmail, out.UserEmail
		n.Message = fmt.Sprintf("A booking for %s at %s has been cancelled by %s", day, out.TimeSlot, out.UserName)
	} else {
		n.RecipientEmail, n.SenderEmail = out.UserEmail, out.MessEmail
		n.Message = fmt.Sprintf("Your booking for %s at %s has been cancelled by the mess owner.", day, out.TimeSlot)
	}
	s.notify.Dispatch(ctx, n)
	return out, nil
}

// Complete marks a CONFIRMED booking as served.
func (s *SlotService) Complete(ctx context.Context, id string) (*model.Reservation, error) {
	out, err := s.transition(ctx, id, func(r *model.Reservation) error {
		if r.Status != model.SlotConfirmed {
			return badTransition(id, r.Status, model.SlotCompleted)
		}
		now := s.now().UTC()
		r.Status = model.SlotCompleted
		r.CompletedAt = &now
		r.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify.Dispatch(ctx, model.Notification{
		RecipientEmail:  out.UserEmail,
		SenderEmail:     out.MessEmail,
		Title:           "Booking Completed",
		Message:         fmt.Sprintf("Your booking for %s at %s has been completed.", out.Date.Format(model.DateLayout), out.TimeSlot),
		Type:            model.NotifyBookingCompleted,
		RelatedEntityID: out.ID,
	})
	return out, nil
}

// Update applies a partial change of date, time slot or amount. Status is
// untouched and updatedAt is always refreshed. Moving an approved or
// confirmed booking to another slot needs room in the target slot.
func (s *SlotService) Update(ctx context.Context, id string, patch model.SlotPatch) (*model.Reservation, error) {
	if patch.TimeSlot != nil && strings.TrimSpace(*patch.TimeSlot) == "" {
		return nil, newError(ErrValidation, "timeSlot must not be empty")
	}
	if patch.Amount != nil && patch.Amount.IsNegative() {
		return nil, newError(ErrValidation, "amount must not be negative")
	}
	if patch.Date != nil {
		d := dateOnly(*patch.Date)
		patch.Date = &d
	}

	for attempt := 0; ; attempt++ {
		out, err := s.update(ctx, id, patch)
		if !errors.Is(err, errStaleRead) {
			return out, err
		}
		if attempt == maxUpdateAttempts-1 {
			return nil, newError(ErrInvalidTransition, "Booking slot %s is being modified concurrently", id)
		}
	}
}

// errStaleRead reports that the booking changed status or slot between
// the read that chose the locking path and the write.
var errStaleRead = errors.New("stale read")

const maxUpdateAttempts = 3

func (s *SlotService) update(ctx context.Context, id string, patch model.SlotPatch) (*model.Reservation, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	source := cur.SlotKey()
	active := cur.Status.Active()
	target := source
	if patch.Date != nil {
		target.Date = *patch.Date
	}
	if patch.TimeSlot != nil {
		target.TimeSlot = strings.TrimSpace(*patch.TimeSlot)
	}

	apply := func(r *model.Reservation) error {
		if r.Status.Active() != active || !r.SlotKey().Equal(source) {
			return errStaleRead
		}
		if patch.Date != nil {
			r.Date = *patch.Date
		}
		if patch.TimeSlot != nil {
			r.TimeSlot = strings.TrimSpace(*patch.TimeSlot)
		}
		if patch.Amount != nil {
			r.Amount = decimal.NewNullDecimal(*patch.Amount)
		}
		r.UpdatedAt = s.now().UTC()
		return nil
	}

	if !active || target.Equal(source) {
		return s.transition(ctx, id, apply)
	}

	var out *model.Reservation
	err = s.withSlotLock(ctx, target, func() error {
		if err := s.ensureRoom(ctx, target); err != nil {
			return err
		}
		var terr error
		out, terr = s.transition(ctx, id, apply)
		return terr
	})
	return out, err
}

// Delete hard-removes a reservation. No notification is sent.
func (s *SlotService) Delete(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return slotNotFound(id)
	}
	return err
}

func (s *SlotService) transition(ctx context.Context, id string, fn func(*model.Reservation) error) (*model.Reservation, error) {
	out, err := s.store.Transition(ctx, id, fn)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, slotNotFound(id)
	}
	return out, err
}

func (s *SlotService) ensureRoom(ctx context.Context, key model.SlotKey) error {
	ok, err := s.avail.HasRoom(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return newError(ErrCapacityExceeded, "No capacity left for %s at %s (limit %d)",
			key.Date.Format(model.DateLayout), key.TimeSlot, s.avail.Capacity())
	}
	return nil
}

func (s *SlotService) withSlotLock(ctx context.Context, key model.SlotKey, fn func() error) error {
	lctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	unlock, err := s.locks.Lock(lctx, key.String())
	if err != nil {
		return fmt.Errorf("lock slot %s: %w", key, err)
	}
	defer unlock()
	return fn()
}

func slotNotFound(id string) error {
	return newError(ErrNotFound, "Booking slot not found with id: %s", id)
}

func rescheduled(id string) error {
	return newError(ErrInvalidTransition, "Booking slot %s was rescheduled concurrently", id)
}

func badTransition(id string, from, to model.SlotStatus) error {
	return newError(ErrInvalidTransition, "Booking slot %s cannot move from %s to %s", id, from, to)
}
