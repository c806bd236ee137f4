// Package memory provides in-process implementations of the repository
// stores. They back the server when APP_STORE=memory (local development
// without MySQL) and stand in for the database in tests. Each store
// guards its map with a mutex, so every method is atomic in the same way
// a single-row MySQL transaction is.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/mymess-backend/internal/model"
	"github.com/iliyamo/mymess-backend/internal/repository"
)

// SlotStore keeps reservations in a map keyed by id.
type SlotStore struct {
	mu    sync.Mutex
	slots map[string]*model.Reservation
	order []string
}

// NewSlotStore returns an empty SlotStore.
func NewSlotStore() *SlotStore {
	return &SlotStore{slots: map[string]*model.Reservation{}}
}

func copySlot(r *model.Reservation) model.Reservation {
	out := *r
	if r.PaymentID != nil {
		p := *r.PaymentID
		out.PaymentID = &p
	}
	if r.CancelledBy != nil {
		a := *r.CancelledBy
		out.CancelledBy = &a
	}
	out.ApprovedAt = copyTime(r.ApprovedAt)
	out.ConfirmedAt = copyTime(r.ConfirmedAt)
	out.CompletedAt = copyTime(r.CompletedAt)
	out.CancelledAt = copyTime(r.CancelledAt)
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Create stores a copy of res. A duplicate id yields repository.ErrConflict.
func (s *SlotStore) Create(_ context.Context, res *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slots[res.ID]; ok {
		return repository.ErrConflict
	}
	c := copySlot(res)
	s.slots[res.ID] = &c
	s.order = append(s.order, res.ID)
	return nil
}

// GetByID returns a copy of the reservation or repository.ErrNotFound.
func (s *SlotStore) GetByID(_ context.Context, id string) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.slots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := copySlot(r)
	return &c, nil
}

// List returns copies of the matching reservations ordered by date and
// creation time, insertion order breaking ties.
func (s *SlotStore) List(_ context.Context, f repository.SlotFilter) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Reservation{}
	for _, id := range s.order {
		if r := s.slots[id]; f.Match(r) {
			out = append(out, copySlot(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// CountActive counts APPROVED and CONFIRMED reservations for key.
func (s *SlotStore) CountActive(_ context.Context, key model.SlotKey) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.slots {
		if r.Status.Active() && r.SlotKey().Equal(key) {
			n++
		}
	}
	return n, nil
}

// Transition applies fn to a copy of the reservation under the store
// lock and commits the copy only when fn succeeds.
func (s *SlotStore) Transition(_ context.Context, id string, fn func(*model.Reservation) error) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.slots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	work := copySlot(r)
	if err := fn(&work); err != nil {
		return nil, err
	}
	stored := copySlot(&work)
	s.slots[id] = &stored
	return &work, nil
}

// Delete removes the reservation or returns repository.ErrNotFound.
func (s *SlotStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slots[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.slots, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len reports how many reservations are stored.
func (s *SlotStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}
