package memory

import (
	"context"
	"sync"

	"github.com/iliyamo/mymess-backend/internal/model"
	"github.com/iliyamo/mymess-backend/internal/repository"
)

// IdentityStore is a writable stand-in for the profile service's users
// and messes tables.
type IdentityStore struct {
	mu     sync.RWMutex
	users  map[string]model.User
	messes map[string]model.Mess
}

// NewIdentityStore returns an empty IdentityStore.
func NewIdentityStore() *IdentityStore {
	return &IdentityStore{users: map[string]model.User{}, messes: map[string]model.Mess{}}
}

// PutUser adds or replaces a user.
func (s *IdentityStore) PutUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Email] = u
}

// PutMess adds or replaces a mess.
func (s *IdentityStore) PutMess(m model.Mess) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messes[m.ID] = m
}

// UserByEmail returns the user or repository.ErrNotFound.
func (s *IdentityStore) UserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

// MessByID returns the mess or repository.ErrNotFound.
func (s *IdentityStore) MessByID(_ context.Context, id string) (*model.Mess, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}
