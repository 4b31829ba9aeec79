package accesslevel

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/authkit/pkg/tenant"
)

// PGSource loads roles from PostgreSQL. One source is constructed per
// routing mode: shared-database sources compose the tenant predicate
// into every query as a structural parameter, dedicated-database sources
// omit it because only that tenant's and system rows exist in the
// database at all. The mode is fixed at construction so a query can
// never silently run with the wrong isolation.
type PGSource struct {
	pool *pgxpool.Pool
	mode tenant.RoutingMode
}

func NewPGSource(pool *pgxpool.Pool, mode tenant.RoutingMode) (*PGSource, error) {
	if pool == nil {
		return nil, errors.New("accesslevel: pool cannot be nil")
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("accesslevel: unknown routing mode %q", mode)
	}
	return &PGSource{pool: pool, mode: mode}, nil
}

// RolesByNames implements Source.
func (s *PGSource) RolesByNames(ctx context.Context, names []string, tenantID *uuid.UUID) ([]Role, error) {
	if len(names) == 0 {
		return nil, nil
	}

	var (
		query string
		args  []any
	)
	if s.mode == tenant.RoutingShared {
		// Shared schema: visibility is the tenant's own rows plus system rows.
		query = `
			SELECT id, tenant_id, name, access_level, active, COALESCE(system_code, ''), created_at
			FROM roles
			WHERE active AND name = ANY($1) AND (tenant_id = $2 OR tenant_id IS NULL)`
		args = []any{names, tenantID}
	} else {
		query = `
			SELECT id, tenant_id, name, access_level, active, COALESCE(system_code, ''), created_at
			FROM roles
			WHERE active AND name = ANY($1)`
		args = []any{names}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRoles(rows)
}

// RolesForUser implements Source.
func (s *PGSource) RolesForUser(ctx context.Context, userID uuid.UUID, tenantID uuid.UUID) ([]Role, error) {
	var (
		query string
		args  []any
	)
	if s.mode == tenant.RoutingShared {
		query = `
			SELECT r.id, r.tenant_id, r.name, r.access_level, r.active, COALESCE(r.system_code, ''), r.created_at
			FROM roles r
			JOIN user_roles ur ON ur.role_id = r.id
			WHERE ur.user_id = $1 AND ur.active AND r.active
			  AND (r.tenant_id = $2 OR r.tenant_id IS NULL)`
		args = []any{userID, tenantID}
	} else {
		query = `
			SELECT r.id, r.tenant_id, r.name, r.access_level, r.active, COALESCE(r.system_code, ''), r.created_at
			FROM roles r
			JOIN user_roles ur ON ur.role_id = r.id
			WHERE ur.user_id = $1 AND ur.active AND r.active`
		args = []any{userID}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRoles(rows)
}

func scanRoles(rows pgx.Rows) ([]Role, error) {
	var roles []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.TenantID, &r.Name, &r.Level, &r.Active, &r.SystemCode, &r.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}
