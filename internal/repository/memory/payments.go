package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/mymess-backend/internal/model"
	"github.com/iliyamo/mymess-backend/internal/repository"
)

// PaymentStore is an append-only slice of ledger entries. The slice index
// doubles as the insertion sequence used to break payment-date ties.
type PaymentStore struct {
	mu      sync.Mutex
	entries []model.LedgerEntry
}

// NewPaymentStore returns an empty PaymentStore.
func NewPaymentStore() *PaymentStore { return &PaymentStore{} }

// Append stores a copy of e.
func (s *PaymentStore) Append(_ context.Context, e *model.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, old := range s.entries {
		if old.ID == e.ID {
			return repository.ErrConflict
		}
	}
	s.entries = append(s.entries, *e)
	return nil
}

// Latest returns the most recently dated entry for the pair; a later
// insert wins when two entries share a date.
func (s *PaymentStore) Latest(_ context.Context, userEmail, messID string) (*model.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *model.LedgerEntry
	for i := range s.entries {
		e := &s.entries[i]
		if e.UserEmail != userEmail || e.MessID != messID {
			continue
		}
		if latest == nil || !e.PaymentDate.Before(latest.PaymentDate) {
			latest = e
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	c := *latest
	return &c, nil
}

// List returns matching entries ordered by payment date, oldest first.
func (s *PaymentStore) List(_ context.Context, f repository.PaymentFilter) ([]model.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.LedgerEntry{}
	for i := range s.entries {
		if f.Match(&s.entries[i]) {
			out = append(out, s.entries[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PaymentDate.Before(out[j].PaymentDate) })
	return out, nil
}
