package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/authkit/pkg/pg"
	"github.com/dmitrymomot/authkit/pkg/tenant"
)

// PGUserStore loads users from PostgreSQL. Like the role source, one
// store is built per routing mode so the tenant predicate is a
// structural part of the query, never patched in afterwards.
type PGUserStore struct {
	pool *pgxpool.Pool
	mode tenant.RoutingMode
}

func NewPGUserStore(pool *pgxpool.Pool, mode tenant.RoutingMode) (*PGUserStore, error) {
	if pool == nil {
		return nil, errors.New("auth: pool cannot be nil")
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("auth: unknown routing mode %q", mode)
	}
	return &PGUserStore{pool: pool, mode: mode}, nil
}

const userColumns = `id, tenant_id, username, email, password_hash, active, created_at, updated_at`

// FindByUsername implements UserStore.
func (s *PGUserStore) FindByUsername(ctx context.Context, username string, tenantID uuid.UUID) (*User, error) {
	var (
		query string
		args  []any
	)
	if s.mode == tenant.RoutingShared {
		query = `SELECT ` + userColumns + `
			FROM users
			WHERE lower(username) = lower($1) AND (tenant_id = $2 OR tenant_id IS NULL)`
		args = []any{username, tenantID}
	} else {
		query = `SELECT ` + userColumns + `
			FROM users
			WHERE lower(username) = lower($1)`
		args = []any{username}
	}

	return s.scanOne(ctx, query, args...)
}

// FindByID implements UserStore.
func (s *PGUserStore) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *PGUserStore) scanOne(ctx context.Context, query string, args ...any) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&u.ID, &u.TenantID, &u.Username, &u.Email, &u.PasswordHash,
		&u.Active, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return &u, nil
}
