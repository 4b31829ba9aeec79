package tokens

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/pkg/accesslevel"
)

// TokenType distinguishes the two token classes. Each class is signed
// with its own secret and validated against its expected type so a
// refresh token can never pass where an access token is required.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// ClientType records which client class a refresh token was issued to.
type ClientType string

const (
	ClientWeb    ClientType = "web"
	ClientMobile ClientType = "mobile"
)

// Valid reports whether the client type is known.
func (c ClientType) Valid() bool {
	return c == ClientWeb || c == ClientMobile
}

// Claims is the payload of both token classes. Subject carries the
// username; UserID is the stable identifier used for revocation.
// The access-level snapshot travels with the token so per-request
// authorization does not re-derive it.
type Claims struct {
	UserID       uuid.UUID            `json:"uid"`
	TenantID     *uuid.UUID           `json:"tenant_id,omitempty"`
	AccessLevel  int                  `json:"access_level"`
	IsSuperAdmin bool                 `json:"is_super_admin"`
	UserType     accesslevel.UserType `json:"user_type"`
	TokenType    TokenType            `json:"type"`
	jwt.RegisteredClaims
}

// Info reassembles the derived access-level snapshot.
func (c *Claims) Info() accesslevel.Info {
	return accesslevel.Info{
		AccessLevel:  c.AccessLevel,
		IsSuperAdmin: c.IsSuperAdmin,
		UserType:     c.UserType,
	}
}

// Identity is the issuance input: who the token is for and the derived
// authorization snapshot to embed.
type Identity struct {
	UserID   uuid.UUID
	Subject  string
	TenantID *uuid.UUID
	Info     accesslevel.Info
}

// Pair bundles the two tokens returned by login and refresh.
type Pair struct {
	AccessToken  string
	RefreshToken string
}
