package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventKind names an audited authentication action.
type EventKind string

const (
	KindLogin         EventKind = "login"
	KindRefresh       EventKind = "refresh"
	KindReuseDetected EventKind = "reuse_detected"
	KindLogout        EventKind = "logout"
	KindLogoutAll     EventKind = "logout_all"
)

// Tenant access kinds.
const (
	AccessSuperadmin = "superadmin_access"
)

// AuthEvent is one audit log entry for an authentication action.
// TenantID and UserID are nullable: a failed login may not resolve
// either.
type AuthEvent struct {
	ID        uuid.UUID      `json:"id"`
	TenantID  *uuid.UUID     `json:"tenant_id,omitempty"`
	UserID    *uuid.UUID     `json:"user_id,omitempty"`
	Kind      EventKind      `json:"kind"`
	Success   bool           `json:"success"`
	ErrorCode string         `json:"error_code,omitempty"`
	IP        string         `json:"ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// TenantAccess records a superadmin acting on a tenant other than the
// one embedded in their token. Always written when permitted
// cross-tenant access happens; this trail is the price of allowing it.
type TenantAccess struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	TokenTenantID   *uuid.UUID `json:"token_tenant_id,omitempty"`
	RequestTenantID uuid.UUID  `json:"request_tenant_id"`
	Kind            string     `json:"kind"`
	CreatedAt       time.Time  `json:"created_at"`
}

// EventOption applies optional fields to an AuthEvent during recording.
type EventOption func(*AuthEvent)

func WithTenant(tenantID uuid.UUID) EventOption {
	return func(e *AuthEvent) { e.TenantID = &tenantID }
}

func WithUser(userID uuid.UUID) EventOption {
	return func(e *AuthEvent) { e.UserID = &userID }
}

func WithErrorCode(code string) EventOption {
	return func(e *AuthEvent) { e.ErrorCode = code }
}

func WithClientInfo(ip, userAgent string) EventOption {
	return func(e *AuthEvent) {
		e.IP = ip
		e.UserAgent = userAgent
	}
}

func WithMetadata(key string, value any) EventOption {
	return func(e *AuthEvent) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}
