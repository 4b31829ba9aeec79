package audit

import (
	"context"
	"sync"
)

// MemoryStorage collects audit records in memory, for tests.
type MemoryStorage struct {
	mu       sync.Mutex
	events   []AuthEvent
	accesses []TenantAccess
	err      error
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// FailWith makes every subsequent store call return err.
func (s *MemoryStorage) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// StoreAuthEvents implements Storage.
func (s *MemoryStorage) StoreAuthEvents(_ context.Context, events []AuthEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, events...)
	return nil
}

// StoreTenantAccesses implements Storage.
func (s *MemoryStorage) StoreTenantAccesses(_ context.Context, accesses []TenantAccess) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.accesses = append(s.accesses, accesses...)
	return nil
}

// Events returns a copy of all stored auth events.
func (s *MemoryStorage) Events() []AuthEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuthEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Accesses returns a copy of all stored tenant access records.
func (s *MemoryStorage) Accesses() []TenantAccess {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TenantAccess, len(s.accesses))
	copy(out, s.accesses)
	return out
}
