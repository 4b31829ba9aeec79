package tokens

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the persisted record of one refresh token. The token
// value itself never touches storage; only its one-way hash does.
type RefreshToken struct {
	TokenHash  string
	UserID     uuid.UUID
	TenantID   *uuid.UUID
	ClientType ClientType
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Revoked    bool

	// RotatedFromHash back-references the token this one replaced. It is a
	// weak forensic link, not ownership; uniqueness over it guarantees an
	// old token is consumed by at most one rotation.
	RotatedFromHash *string
}

// Active reports whether the row validates at the given instant.
func (t RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// Store persists refresh tokens. Implementations must make Insert a
// single atomic insert-or-detect-duplicate operation: a separate
// existence check followed by an insert loses the rotation race.
// Duplicate detection covers both the token hash and, when set, the
// rotated-from hash.
type Store interface {
	// Insert stores the row, reporting false without error when a
	// conflicting row already exists.
	Insert(ctx context.Context, token RefreshToken) (inserted bool, err error)

	// FindActive returns the non-revoked, non-expired row for the hash,
	// or nil when no such row validates.
	FindActive(ctx context.Context, tokenHash string, now time.Time) (*RefreshToken, error)

	// Revoke flips the revoked flag, reporting how many rows changed.
	// Revoking an absent or already-revoked token is not an error.
	Revoke(ctx context.Context, tokenHash string) (int64, error)

	// RevokeAllForUser revokes every active token of the user.
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// PurgeExpired deletes rows whose expiry precedes the cutoff. It only
	// touches already-dead rows, so it is safe alongside all other calls.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
