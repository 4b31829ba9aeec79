package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryUserStore is an in-memory UserStore for tests. It applies the
// shared-schema visibility rule.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]User
	err   error
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[uuid.UUID]User)}
}

// Add registers a user.
func (s *MemoryUserStore) Add(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// FailWith makes every subsequent call return err.
func (s *MemoryUserStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// FindByUsername implements UserStore.
func (s *MemoryUserStore) FindByUsername(_ context.Context, username string, tenantID uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}

	for _, u := range s.users {
		if !strings.EqualFold(u.Username, username) {
			continue
		}
		if u.TenantID == nil || *u.TenantID == tenantID {
			cp := u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

// FindByID implements UserStore.
func (s *MemoryUserStore) FindByID(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := u
	return &cp, nil
}
