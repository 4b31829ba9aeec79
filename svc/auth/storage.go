package auth

import (
	"context"

	"github.com/google/uuid"
)

// UserStore loads user accounts. The tenant scope follows the same
// visibility rule as roles: a shared-schema store sees the tenant's own
// users plus system users, a dedicated store sees everything in its
// database.
type UserStore interface {
	// FindByUsername returns the user visible in the tenant scope, or
	// ErrUserNotFound.
	FindByUsername(ctx context.Context, username string, tenantID uuid.UUID) (*User, error)

	// FindByID returns the user by primary key, or ErrUserNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
}
