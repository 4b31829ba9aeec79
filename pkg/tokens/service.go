package tokens

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/pkg/logger"
)

// Service issues, validates, rotates, and revokes session tokens. It
// holds no per-request state: every decision about a refresh token is
// re-read from the store, so server-side revocation takes effect
// immediately across all processes.
type Service struct {
	cfg   Config
	store Store
	log   *slog.Logger
	now   func() time.Time
}

type Option func(*Service)

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(store Store, cfg Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("tokens: store cannot be nil")
	}
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, ErrSameSecret
	}

	s := &Service{
		cfg:   cfg,
		store: store,
		log:   logger.Discard(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// HashToken produces the storage form of a token value. SHA-256 is
// one-way, so a leaked refresh_tokens table yields no usable tokens.
func HashToken(signed string) string {
	sum := sha256.Sum256([]byte(signed))
	return hex.EncodeToString(sum[:])
}

// IssueAccessToken signs a short-lived access token for the identity.
func (s *Service) IssueAccessToken(id Identity) (string, error) {
	return s.issue(id, TypeAccess, s.cfg.AccessTTL, s.cfg.AccessSecret)
}

// IssueRefreshToken signs a long-lived refresh token for the identity.
func (s *Service) IssueRefreshToken(id Identity) (string, error) {
	return s.issue(id, TypeRefresh, s.cfg.RefreshTTL, s.cfg.RefreshSecret)
}

func (s *Service) issue(id Identity, tokenType TokenType, ttl time.Duration, secret string) (string, error) {
	if id.Subject == "" || id.UserID == uuid.Nil {
		return "", ErrTokenInvalid
	}

	now := s.now().UTC()
	claims := Claims{
		UserID:       id.UserID,
		TenantID:     id.TenantID,
		AccessLevel:  id.Info.AccessLevel,
		IsSuperAdmin: id.Info.IsSuperAdmin,
		UserType:     id.Info.UserType,
		TokenType:    tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			// The unique id keeps two same-second issuances for one user
			// distinct, so only a genuine replay of an already-stored value
			// can collide in the store.
			ID:        uuid.NewString(),
			Issuer:    s.cfg.Issuer,
			Subject:   id.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Join(ErrTokenInvalid, err)
	}
	return signed, nil
}

// ValidateAccessToken verifies signature, expiry, and token type.
func (s *Service) ValidateAccessToken(signed string) (*Claims, error) {
	return s.parse(signed, TypeAccess, s.cfg.AccessSecret)
}

// ValidateRefreshToken verifies the presented refresh token locally and
// then confirms an active row exists in the store. The store check is
// mandatory even though the signature already proved authenticity: it is
// the only way server-side logout and revocation can take effect before
// natural expiry.
func (s *Service) ValidateRefreshToken(ctx context.Context, presented string) (*Claims, *RefreshToken, error) {
	claims, err := s.parse(presented, TypeRefresh, s.cfg.RefreshSecret)
	if err != nil {
		return nil, nil, err
	}

	row, err := s.store.FindActive(ctx, HashToken(presented), s.now().UTC())
	if err != nil {
		return nil, nil, errors.Join(ErrStoreUnavailable, err)
	}
	if row == nil {
		return nil, nil, ErrTokenExpiredOrRevoked
	}
	return claims, row, nil
}

func (s *Service) parse(signed string, expected TokenType, secret string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(signed, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(s.cfg.Issuer), jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpiredOrRevoked
		}
		return nil, errors.Join(ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != expected {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// StoreInitialRefreshToken persists a freshly issued refresh token at
// login. An insert collision here is the canonical replay signature: the
// exact value being stored already validates for another flow. Every
// session of the user is revoked synchronously before ErrReuseDetected
// surfaces, so the caller can safely force a full re-login.
func (s *Service) StoreInitialRefreshToken(ctx context.Context, signed string, id Identity, clientType ClientType) error {
	now := s.now().UTC()
	inserted, err := s.store.Insert(ctx, RefreshToken{
		TokenHash:  HashToken(signed),
		UserID:     id.UserID,
		TenantID:   id.TenantID,
		ClientType: clientType,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cfg.RefreshTTL),
	})
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	if !inserted {
		s.log.WarnContext(ctx, "refresh token reuse detected at login",
			logger.UserID(id.UserID), logger.Component("tokens"))
		if _, revokeErr := s.store.RevokeAllForUser(ctx, id.UserID); revokeErr != nil {
			return errors.Join(ErrStoreUnavailable, revokeErr)
		}
		return ErrReuseDetected
	}
	return nil
}

// Rotate exchanges a valid refresh token for a fresh token pair. The new
// row is inserted first and the old row revoked only if the insert was
// not a duplicate; the reversed order would leave a crash window with no
// valid token at all. Two near-simultaneous rotations of the same old
// token both succeed: the loser collides on the rotated-from uniqueness
// and treats the rotation as already done.
func (s *Service) Rotate(ctx context.Context, oldPresented string, clientType ClientType) (Pair, error) {
	claims, oldRow, err := s.ValidateRefreshToken(ctx, oldPresented)
	if err != nil {
		return Pair{}, err
	}

	id := Identity{
		UserID:   oldRow.UserID,
		Subject:  claims.Subject,
		TenantID: claims.TenantID,
		Info:     claims.Info(),
	}

	access, err := s.IssueAccessToken(id)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := s.IssueRefreshToken(id)
	if err != nil {
		return Pair{}, err
	}

	now := s.now().UTC()
	oldHash := oldRow.TokenHash
	inserted, err := s.store.Insert(ctx, RefreshToken{
		TokenHash:       HashToken(refresh),
		UserID:          oldRow.UserID,
		TenantID:        claims.TenantID,
		ClientType:      clientType,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.cfg.RefreshTTL),
		RotatedFromHash: &oldHash,
	})
	if err != nil {
		return Pair{}, errors.Join(ErrStoreUnavailable, err)
	}

	if inserted {
		if _, err := s.store.Revoke(ctx, oldHash); err != nil {
			// The new row is committed; the old one still validates until
			// its own expiry or the next revocation attempt. Surfacing the
			// error lets the caller retry, which is safe because the
			// duplicate insert is a no-op.
			return Pair{}, errors.Join(ErrStoreUnavailable, err)
		}
	}

	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// RevokeToken revokes the presented refresh token. Idempotent: revoking
// an unknown or already-revoked token reports zero rows and no error.
func (s *Service) RevokeToken(ctx context.Context, presented string) (int64, error) {
	n, err := s.store.Revoke(ctx, HashToken(presented))
	if err != nil {
		return 0, errors.Join(ErrStoreUnavailable, err)
	}
	return n, nil
}

// RevokeAllUserTokens invalidates every active session of the user.
func (s *Service) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.store.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, errors.Join(ErrStoreUnavailable, err)
	}
	return n, nil
}

// PurgeExpired deletes rows past expiry plus the retention grace.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-s.cfg.PurgeGrace)
	n, err := s.store.PurgeExpired(ctx, cutoff)
	if err != nil {
		return 0, errors.Join(ErrStoreUnavailable, err)
	}
	return n, nil
}
