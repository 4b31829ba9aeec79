package accesslevel

import (
	"time"

	"github.com/google/uuid"
)

// Hierarchy anchors. Levels order authorization as N >= M: a caller's
// level must meet or exceed the minimum level of the operation's role
// set. Standard tenant roles live in 1..5; system roles may carry
// arbitrarily higher levels so a platform role dominates every tenant
// role without enumerating them.
const (
	// LevelAuthenticated is the floor for any active user, assignments or not.
	LevelAuthenticated = 1

	// LevelSystemRole is the minimum level of a role carrying a system code.
	LevelSystemRole = 5

	// LevelTenantMax is the top of the standard tenant role range.
	LevelTenantMax = 5

	// LevelUnsatisfiable is the sentinel returned when an operation's role
	// set matches no active role. No real user level reaches it, so an
	// unresolvable requirement denies by default instead of failing open.
	LevelUnsatisfiable = 999
)

// Role is a named access grant scoped to one tenant, or to every tenant
// when TenantID is nil (a system role).
type Role struct {
	ID       uuid.UUID
	TenantID *uuid.UUID // nil means system role, visible to all tenants
	Name     string
	Level    int
	Active   bool

	// SystemCode is an immutable identifier set only on system roles.
	// Roles are matched by name for authorization; the code survives renames
	// so platform logic can recognize built-in roles.
	SystemCode string

	CreatedAt time.Time
}

// IsSystem reports whether the role is visible across tenants.
func (r Role) IsSystem() bool {
	return r.TenantID == nil
}

// Validate enforces write-time invariants. systemTenantID designates the
// platform-owned tenant; a role carrying a system code that is pinned to
// any other tenant is rejected, as is a system-coded role below the
// system level band.
func (r Role) Validate(systemTenantID uuid.UUID) error {
	if r.Name == "" {
		return ErrInvalidRole
	}
	if r.Level < LevelAuthenticated {
		return ErrInvalidRole
	}
	if r.SystemCode != "" {
		if r.TenantID != nil && *r.TenantID != systemTenantID {
			return ErrSystemRoleTenant
		}
		if r.Level < LevelSystemRole {
			return ErrSystemRoleLevel
		}
	} else if r.Level > LevelTenantMax && !r.IsSystem() {
		return ErrInvalidRole
	}
	return nil
}

// Assignment links a user to a role. Both sides carry active flags;
// resolution only counts pairs where both are active.
type Assignment struct {
	UserID     uuid.UUID
	RoleID     uuid.UUID
	Active     bool
	AssignedAt time.Time
}
