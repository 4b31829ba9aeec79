package accesslevel

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/pkg/logger"
)

// Source loads active roles for level resolution. Implementations must
// apply the tenant visibility rule for their storage mode: in a shared
// schema that means filtering by tenant id or null; in a dedicated
// per-tenant database no filter is needed because only that tenant's and
// system rows are reachable at all.
type Source interface {
	// RolesByNames returns active roles visible in the given tenant scope
	// whose names are in the set. A nil tenantID restricts visibility to
	// system roles only.
	RolesByNames(ctx context.Context, names []string, tenantID *uuid.UUID) ([]Role, error)

	// RolesForUser returns active roles from the user's active assignments,
	// restricted to the same tenant-or-system visibility rule.
	RolesForUser(ctx context.Context, userID uuid.UUID, tenantID uuid.UUID) ([]Role, error)
}

// Resolver computes hierarchical access levels from role state.
// It holds no cache: every call re-reads the source, so revoking a role
// takes effect on the next request.
type Resolver struct {
	source Source
	log    *slog.Logger
}

type ResolverOption func(*Resolver)

func WithLogger(log *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

func NewResolver(source Source, opts ...ResolverOption) *Resolver {
	if source == nil {
		panic("accesslevel: source cannot be nil")
	}
	r := &Resolver{
		source: source,
		log:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MinRequiredLevel returns the minimum level among active roles named in
// roleNames and visible in the tenant scope. An empty role set requires
// level 0 (always satisfied). A role set matching no active role returns
// LevelUnsatisfiable, denying by default rather than failing open.
func (r *Resolver) MinRequiredLevel(ctx context.Context, roleNames []string, tenantID *uuid.UUID) (int, error) {
	if len(roleNames) == 0 {
		return 0, nil
	}

	roles, err := r.source.RolesByNames(ctx, roleNames, tenantID)
	if err != nil {
		r.log.ErrorContext(ctx, "role lookup failed", logger.Error(err), logger.Component("accesslevel"))
		return 0, errors.Join(ErrStoreUnavailable, err)
	}

	min := LevelUnsatisfiable
	for _, role := range roles {
		if !role.Active {
			continue
		}
		if role.Level < min {
			min = role.Level
		}
	}
	return min, nil
}

// SystemCodeSuperAdmin marks the platform superadmin role. The code is
// matched instead of the name so renaming the role cannot grant or
// strip the flag.
const SystemCodeSuperAdmin = "SUPER_ADMIN"

// UserInfo resolves the caller's full authorization snapshot in one
// role scan: maximum level plus whether any active assignment carries
// the superadmin system code.
func (r *Resolver) UserInfo(ctx context.Context, userID uuid.UUID, tenantID uuid.UUID) (Info, error) {
	roles, err := r.source.RolesForUser(ctx, userID, tenantID)
	if err != nil {
		r.log.ErrorContext(ctx, "user role lookup failed",
			logger.Error(err), logger.UserID(userID), logger.Component("accesslevel"))
		return Info{}, errors.Join(ErrStoreUnavailable, err)
	}

	level := LevelAuthenticated
	superAdmin := false
	for _, role := range roles {
		if !role.Active {
			continue
		}
		if role.Level > level {
			level = role.Level
		}
		if role.SystemCode == SystemCodeSuperAdmin {
			superAdmin = true
		}
	}
	return DeriveInfo(level, superAdmin), nil
}

// MaxUserLevel returns the maximum level among the user's active role
// assignments joined to active roles in the tenant scope. A user with no
// active roles still holds LevelAuthenticated: an authenticated caller is
// never level 0.
func (r *Resolver) MaxUserLevel(ctx context.Context, userID uuid.UUID, tenantID uuid.UUID) (int, error) {
	roles, err := r.source.RolesForUser(ctx, userID, tenantID)
	if err != nil {
		r.log.ErrorContext(ctx, "user role lookup failed",
			logger.Error(err), logger.UserID(userID), logger.Component("accesslevel"))
		return 0, errors.Join(ErrStoreUnavailable, err)
	}

	max := LevelAuthenticated
	for _, role := range roles {
		if !role.Active {
			continue
		}
		if role.Level > max {
			max = role.Level
		}
	}
	return max, nil
}
