package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/mymess-backend/internal/model"
	"github.com/iliyamo/mymess-backend/internal/repository"
)

// flatFeeThreshold separates the two readings of a mess subscription
// plan: above it the value is a flat fee, at or below it a day count.
const flatFeeThreshold = 100

// PaymentStore is the append-only ledger persistence.
type PaymentStore interface {
	Append(ctx context.Context, e *model.LedgerEntry) error
	Latest(ctx context.Context, userEmail, messID string) (*model.LedgerEntry, error)
	List(ctx context.Context, f repository.PaymentFilter) ([]model.LedgerEntry, error)
}

// IdentityLookup resolves users and messes owned by the profile service.
// Both methods return repository.ErrNotFound on a miss.
type IdentityLookup interface {
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	MessByID(ctx context.Context, id string) (*model.Mess, error)
}

// PaymentOptions carries the optional descriptive fields of a payment.
type PaymentOptions struct {
	PaymentMethod string
	TransactionID string
	Notes         string
	PeriodStart   *time.Time
	PeriodEnd     *time.Time
}

// LedgerService records payments and derives outstanding dues from them.
type LedgerService struct {
	store    PaymentStore
	identity IdentityLookup
	log      Logger
	now      func() time.Time
}

func NewLedgerService(store PaymentStore, identity IdentityLookup, log Logger) *LedgerService {
	if log == nil {
		log = defaultLogger("ledger")
	}
	return &LedgerService{store: store, identity: identity, log: log, now: time.Now}
}

// RecordPayment appends an immutable entry with
// totalDues = amountPaid + remainingDues.
func (s *LedgerService) RecordPayment(ctx context.Context, userEmail, ownerEmail, messID string, amountPaid, remainingDues decimal.Decimal, opts PaymentOptions) (*model.LedgerEntry, error) {
	if amountPaid.IsNegative() || remainingDues.IsNegative() {
		return nil, newError(ErrValidation, "amountPaid and remainingDues must not be negative")
	}
	if opts.PeriodStart != nil && opts.PeriodEnd != nil && opts.PeriodEnd.Before(*opts.PeriodStart) {
		return nil, newError(ErrValidation, "periodEnd is before periodStart")
	}
	if err := s.resolvePair(ctx, userEmail, messID); err != nil {
		return nil, err
	}

	e := &model.LedgerEntry{
		ID:            uuid.NewString(),
		UserEmail:     userEmail,
		OwnerEmail:    ownerEmail,
		MessID:        messID,
		TotalDues:     amountPaid.Add(remainingDues),
		AmountPaid:    amountPaid,
		RemainingDues: remainingDues,
		PaymentDate:   s.now().UTC(),
		PaymentMethod: opts.PaymentMethod,
		TransactionID: opts.TransactionID,
		Status:        model.PaymentCompleted,
		Notes:         opts.Notes,
		PeriodStart:   opts.PeriodStart,
		PeriodEnd:     opts.PeriodEnd,
	}
	if err := s.store.Append(ctx, e); err != nil {
		return nil, fmt.Errorf("append payment: %w", err)
	}
	return e, nil
}

func (s *LedgerService) resolvePair(ctx context.Context, userEmail, messID string) error {
	_, uerr := s.identity.UserByEmail(ctx, userEmail)
	_, merr := s.identity.MessByID(ctx, messID)
	for _, err := range []error{uerr, merr} {
		switch {
		case err == nil:
		case errors.Is(err, repository.ErrNotFound):
			return newError(ErrNotFound, "User or Mess not found")
		default:
			return fmt.Errorf("identity lookup: %w", err)
		}
	}
	return nil
}

// GetOutstandingDues returns the remaining dues of the latest entry for
// the pair, or the subscription estimate when the pair has no entries.
func (s *LedgerService) GetOutstandingDues(ctx context.Context, userEmail, messID string) (decimal.Decimal, error) {
	latest, err := s.store.Latest(ctx, userEmail, messID)
	switch {
	case err == nil:
		return latest.RemainingDues, nil
	case errors.Is(err, repository.ErrNotFound):
		return s.defaultDues(ctx, messID), nil
	default:
		return decimal.Zero, err
	}
}

// defaultDues estimates dues from the mess configuration. Lookup
// failures yield zero.
func (s *LedgerService) defaultDues(ctx context.Context, messID string) decimal.Decimal {
	mess, err := s.identity.MessByID(ctx, messID)
	if err != nil {
		s.log.Warnf("ledger: default dues for mess %s: %v", messID, err)
		return decimal.Zero
	}
	return EstimateDues(mess)
}

// EstimateDues applies the subscription heuristic: a plan above 100 is a
// flat fee, otherwise it is a day count multiplied by the meal price.
// Missing values give zero.
func EstimateDues(m *model.Mess) decimal.Decimal {
	if m == nil || m.SubscriptionPlan == nil {
		return decimal.Zero
	}
	plan := *m.SubscriptionPlan
	if plan > flatFeeThreshold {
		return decimal.NewFromInt(int64(plan))
	}
	if m.PricePerMeal == nil {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(*m.PricePerMeal)).Mul(decimal.NewFromInt(int64(plan)))
}

// GetTotalOutstandingForMess sums the latest remaining dues of every
// user who has paid the mess at least once.
func (s *LedgerService) GetTotalOutstandingForMess(ctx context.Context, messID string) (decimal.Decimal, error) {
	entries, err := s.store.List(ctx, repository.PaymentFilter{MessID: messID})
	if err != nil {
		return decimal.Zero, err
	}
	// entries are oldest first, so the last write per user is the latest.
	latest := map[string]decimal.Decimal{}
	for _, e := range entries {
		latest[e.UserEmail] = e.RemainingDues
	}
	total := decimal.Zero
	for _, d := range latest {
		total = total.Add(d)
	}
	return total, nil
}

// ListByUser returns every entry a user has recorded.
func (s *LedgerService) ListByUser(ctx context.Context, userEmail string) ([]model.LedgerView, error) {
	return s.list(ctx, repository.PaymentFilter{UserEmail: userEmail})
}

func (s *LedgerService) ListByMess(ctx context.Context, messID string) ([]model.LedgerView, error) {
	return s.list(ctx, repository.PaymentFilter{MessID: messID})
}

func (s *LedgerService) ListByUserAndMess(ctx context.Context, userEmail, messID string) ([]model.LedgerView, error) {
	return s.list(ctx, repository.PaymentFilter{UserEmail: userEmail, MessID: messID})
}

// ListByDateRange returns entries dated within [from, to], both inclusive.
func (s *LedgerService) ListByDateRange(ctx context.Context, from, to time.Time) ([]model.LedgerView, error) {
	if to.Before(from) {
		return nil, newError(ErrValidation, "endDate is before startDate")
	}
	return s.list(ctx, repository.PaymentFilter{From: &from, To: &to})
}

func (s *LedgerService) list(ctx context.Context, f repository.PaymentFilter) ([]model.LedgerView, error) {
	entries, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.annotate(ctx, entries), nil
}

// annotate attaches display names. Lookups are memoised per call and a
// miss leaves the name empty.
func (s *LedgerService) annotate(ctx context.Context, entries []model.LedgerEntry) []model.LedgerView {
	users := map[string]string{}
	messes := map[string]string{}
	out := make([]model.LedgerView, 0, len(entries))
	for _, e := range entries {
		name, ok := users[e.UserEmail]
		if !ok {
			if u, err := s.identity.UserByEmail(ctx, e.UserEmail); err == nil {
				name = u.Name
			}
			users[e.UserEmail] = name
		}
		mess, ok := messes[e.MessID]
		if !ok {
			if m, err := s.identity.MessByID(ctx, e.MessID); err == nil {
				mess = strings.TrimSpace(m.MessName)
			}
			messes[e.MessID] = mess
		}
		out = append(out, model.LedgerView{LedgerEntry: e, UserName: name, MessName: mess})
	}
	return out
}
