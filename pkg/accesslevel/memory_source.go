package accesslevel

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// MemorySource is an in-memory Source for tests and local development.
// It applies the shared-schema visibility rule (tenant rows plus system
// rows), which is the stricter of the two storage modes.
type MemorySource struct {
	mu          sync.RWMutex
	roles       map[uuid.UUID]Role
	assignments map[uuid.UUID][]Assignment // keyed by user id

	// err, when set, is returned by every call. Lets tests exercise the
	// fail-closed path.
	err error
}

func NewMemorySource() *MemorySource {
	return &MemorySource{
		roles:       make(map[uuid.UUID]Role),
		assignments: make(map[uuid.UUID][]Assignment),
	}
}

// AddRole registers a role.
func (s *MemorySource) AddRole(r Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[r.ID] = r
}

// Assign links a user to a role.
func (s *MemorySource) Assign(a Assignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[a.UserID] = append(s.assignments[a.UserID], a)
}

// FailWith makes every subsequent call return err.
func (s *MemorySource) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// RolesByNames implements Source.
func (s *MemorySource) RolesByNames(_ context.Context, names []string, tenantID *uuid.UUID) ([]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}

	var out []Role
	for _, r := range s.roles {
		if !r.Active || !slices.Contains(names, r.Name) {
			continue
		}
		if visible(r, tenantID) {
			out = append(out, r)
		}
	}
	return out, nil
}

// RolesForUser implements Source.
func (s *MemorySource) RolesForUser(_ context.Context, userID uuid.UUID, tenantID uuid.UUID) ([]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}

	var out []Role
	for _, a := range s.assignments[userID] {
		if !a.Active {
			continue
		}
		r, ok := s.roles[a.RoleID]
		if !ok || !r.Active {
			continue
		}
		if visible(r, &tenantID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func visible(r Role, tenantID *uuid.UUID) bool {
	if r.TenantID == nil {
		return true
	}
	return tenantID != nil && *r.TenantID == *tenantID
}
