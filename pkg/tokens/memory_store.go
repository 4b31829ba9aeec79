package tokens

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development. It
// honors the same atomic insert-or-detect-duplicate contract as the
// Postgres store: uniqueness over token hashes and over rotated-from
// hashes, enforced under one lock.
type MemoryStore struct {
	mu          sync.Mutex
	byHash      map[string]*RefreshToken
	rotatedFrom map[string]struct{}

	err error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byHash:      make(map[string]*RefreshToken),
		rotatedFrom: make(map[string]struct{}),
	}
}

// FailWith makes every subsequent call return err.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Insert implements Store.
func (s *MemoryStore) Insert(_ context.Context, token RefreshToken) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}

	if _, exists := s.byHash[token.TokenHash]; exists {
		return false, nil
	}
	if token.RotatedFromHash != nil {
		if _, exists := s.rotatedFrom[*token.RotatedFromHash]; exists {
			return false, nil
		}
		s.rotatedFrom[*token.RotatedFromHash] = struct{}{}
	}

	cp := token
	s.byHash[token.TokenHash] = &cp
	return true, nil
}

// FindActive implements Store.
func (s *MemoryStore) FindActive(_ context.Context, tokenHash string, now time.Time) (*RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}

	row, ok := s.byHash[tokenHash]
	if !ok || !row.Active(now) {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

// Revoke implements Store.
func (s *MemoryStore) Revoke(_ context.Context, tokenHash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}

	row, ok := s.byHash[tokenHash]
	if !ok || row.Revoked {
		return 0, nil
	}
	row.Revoked = true
	return 1, nil
}

// RevokeAllForUser implements Store.
func (s *MemoryStore) RevokeAllForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}

	var n int64
	for _, row := range s.byHash {
		if row.UserID == userID && !row.Revoked {
			row.Revoked = true
			n++
		}
	}
	return n, nil
}

// PurgeExpired implements Store.
func (s *MemoryStore) PurgeExpired(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}

	var n int64
	for hash, row := range s.byHash {
		if row.ExpiresAt.Before(cutoff) {
			delete(s.byHash, hash)
			if row.RotatedFromHash != nil {
				delete(s.rotatedFrom, *row.RotatedFromHash)
			}
			n++
		}
	}
	return n, nil
}

// Len reports the number of stored rows, for tests.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byHash)
}
