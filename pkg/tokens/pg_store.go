package tokens

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/authkit/pkg/pg"
)

// PGStore persists refresh tokens in PostgreSQL. Atomicity of
// insert-or-detect-duplicate rides on two unique indexes: the primary
// one on token_hash and a partial one on rotated_from_hash, so a login
// replay and a rotation race are both resolved by the database in a
// single statement.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	if pool == nil {
		panic("tokens: pool cannot be nil")
	}
	return &PGStore{pool: pool}
}

// Insert implements Store.
func (s *PGStore) Insert(ctx context.Context, token RefreshToken) (bool, error) {
	const query = `
		INSERT INTO refresh_tokens
			(token_hash, user_id, tenant_id, client_type, created_at, expires_at, revoked, rotated_from_hash)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7)
		ON CONFLICT DO NOTHING`

	tag, err := s.pool.Exec(ctx, query,
		token.TokenHash, token.UserID, token.TenantID, token.ClientType,
		token.CreatedAt, token.ExpiresAt, token.RotatedFromHash)
	if err != nil {
		// ON CONFLICT DO NOTHING absorbs both unique indexes; any surviving
		// duplicate-key error would indicate a schema drift worth surfacing.
		if pg.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// FindActive implements Store.
func (s *PGStore) FindActive(ctx context.Context, tokenHash string, now time.Time) (*RefreshToken, error) {
	const query = `
		SELECT token_hash, user_id, tenant_id, client_type, created_at, expires_at, revoked, rotated_from_hash
		FROM refresh_tokens
		WHERE token_hash = $1 AND NOT revoked AND expires_at > $2`

	var row RefreshToken
	err := s.pool.QueryRow(ctx, query, tokenHash, now).Scan(
		&row.TokenHash, &row.UserID, &row.TenantID, &row.ClientType,
		&row.CreatedAt, &row.ExpiresAt, &row.Revoked, &row.RotatedFromHash)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Revoke implements Store.
func (s *PGStore) Revoke(ctx context.Context, tokenHash string) (int64, error) {
	const query = `UPDATE refresh_tokens SET revoked = true WHERE token_hash = $1 AND NOT revoked`

	tag, err := s.pool.Exec(ctx, query, tokenHash)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RevokeAllForUser implements Store.
func (s *PGStore) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	const query = `UPDATE refresh_tokens SET revoked = true WHERE user_id = $1 AND NOT revoked`

	tag, err := s.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PurgeExpired implements Store.
func (s *PGStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE expires_at < $1`

	tag, err := s.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
