package accesslevel

// UserType classifies the caller for downstream handlers.
type UserType string

const (
	UserTypeSuperAdmin  UserType = "super_admin"
	UserTypeTenantAdmin UserType = "tenant_admin"
	UserTypeUser        UserType = "user"
)

// Valid reports whether the value is a known user type.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeSuperAdmin, UserTypeTenantAdmin, UserTypeUser:
		return true
	}
	return false
}

// TenantAdminLevel is the level at and above which a tenant user is
// classified as a tenant admin.
const TenantAdminLevel = 4

// Info is the derived authorization snapshot embedded in issued tokens
// so request handling does not recompute it. It is never independently
// authoritative: the same values are always re-derivable from user and
// role state.
type Info struct {
	AccessLevel  int      `json:"access_level"`
	IsSuperAdmin bool     `json:"is_super_admin"`
	UserType     UserType `json:"user_type"`
}

// DeriveInfo classifies a caller from their resolved maximum level and
// whether they hold the platform superadmin system role.
func DeriveInfo(level int, superAdmin bool) Info {
	info := Info{AccessLevel: level, UserType: UserTypeUser}
	switch {
	case superAdmin:
		info.IsSuperAdmin = true
		info.UserType = UserTypeSuperAdmin
	case level >= TenantAdminLevel:
		info.UserType = UserTypeTenantAdmin
	}
	return info
}
