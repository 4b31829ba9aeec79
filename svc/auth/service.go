package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/pkg/accesslevel"
	"github.com/dmitrymomot/authkit/pkg/audit"
	"github.com/dmitrymomot/authkit/pkg/gate"
	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/metrics"
	"github.com/dmitrymomot/authkit/pkg/ratelimit"
	"github.com/dmitrymomot/authkit/pkg/tenant"
	"github.com/dmitrymomot/authkit/pkg/tokens"
)

// PasswordVerifier checks presented secrets. VerifyDummy burns a
// comparison when the account does not exist, keeping unknown-username
// and wrong-password latency indistinguishable.
type PasswordVerifier interface {
	Verify(plain, storedHash string) bool
	VerifyDummy(plain string) bool
}

// AuditRecorder receives authentication events, best-effort.
type AuditRecorder interface {
	RecordAuthEvent(ctx context.Context, kind audit.EventKind, success bool, opts ...audit.EventOption)
	RecordTenantAccess(ctx context.Context, userID uuid.UUID, tokenTenantID *uuid.UUID, requestTenantID uuid.UUID, kind string)
}

// ClientInfo carries request attribution for auditing and throttling.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// LoginResult is the successful outcome of a credential exchange.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         UserContext
}

// Service orchestrates the authentication operations exposed to the
// API layer: credential exchange, token refresh, logout, and the
// authorization check. All policy lives in the collaborators; the
// service sequences them and owns the error taxonomy.
type Service struct {
	users    UserStore
	tokens   *tokens.Service
	tenants  *tenant.Resolver
	levels   *accesslevel.Resolver
	verifier PasswordVerifier

	gate    *gate.Gate
	audit   AuditRecorder
	metrics metrics.Collector
	limiter *ratelimit.LoginLimiter
	log     *slog.Logger
}

type Option func(*Service)

func WithAudit(rec AuditRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.audit = rec
		}
	}
}

func WithMetrics(c metrics.Collector) Option {
	return func(s *Service) {
		if c != nil {
			s.metrics = c
		}
	}
}

func WithLoginLimiter(l *ratelimit.LoginLimiter) Option {
	return func(s *Service) { s.limiter = l }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func New(users UserStore, tokenSvc *tokens.Service, tenants *tenant.Resolver, levels *accesslevel.Resolver, verifier PasswordVerifier, opts ...Option) (*Service, error) {
	if users == nil || tokenSvc == nil || tenants == nil || levels == nil || verifier == nil {
		return nil, errors.New("auth: all collaborators are required")
	}

	s := &Service{
		users:    users,
		tokens:   tokenSvc,
		tenants:  tenants,
		levels:   levels,
		verifier: verifier,
		audit:    noopAudit{},
		metrics:  metrics.Noop{},
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.gate = gate.New(tokenSvc, levels,
		gate.WithAuditRecorder(s.audit),
		gate.WithMetrics(s.metrics),
		gate.WithLogger(s.log),
	)
	return s, nil
}

// Gate exposes the authorization gate for mounting route middleware.
func (s *Service) Gate() *gate.Gate {
	return s.gate
}

// Login exchanges credentials for a token pair. The tenant hint is a
// host, subdomain, or tenant id; it must resolve even for system
// accounts so the issued context knows which tenant the session
// targets.
func (s *Service) Login(ctx context.Context, tenantHint, username, password string, clientType tokens.ClientType, client ClientInfo) (*LoginResult, error) {
	tc, err := s.tenants.Resolve(ctx, tenantHint)
	if err != nil {
		return nil, err
	}

	attribution := []audit.EventOption{
		audit.WithTenant(tc.TenantID),
		audit.WithClientInfo(client.IP, client.UserAgent),
		audit.WithMetadata("client_type", string(clientType)),
	}

	if s.limiter != nil {
		res, limitErr := s.limiter.Allow(ctx, username, client.IP)
		switch {
		case limitErr != nil:
			// A broken throttle store must not take logins down with it;
			// the degraded state is logged for operators.
			s.log.ErrorContext(ctx, "login limiter unavailable",
				logger.Error(limitErr), logger.Component("auth"))
		case !res.Allowed:
			s.metrics.LoginAttempt(metrics.LoginRateLimited)
			s.audit.RecordAuthEvent(ctx, audit.KindLogin, false,
				append(attribution, audit.WithErrorCode("rate_limited"))...)
			return nil, ErrRateLimited
		}
	}

	user, err := s.users.FindByUsername(ctx, username, tc.TenantID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.verifier.VerifyDummy(password)
			s.metrics.LoginAttempt(metrics.LoginInvalidCredentials)
			s.audit.RecordAuthEvent(ctx, audit.KindLogin, false,
				append(attribution, audit.WithErrorCode("invalid_credentials"))...)
			return nil, ErrInvalidCredentials
		}
		s.metrics.LoginAttempt(metrics.LoginStoreUnavailable)
		if !errors.Is(err, ErrStoreUnavailable) {
			err = errors.Join(ErrStoreUnavailable, err)
		}
		return nil, err
	}
	attribution = append(attribution, audit.WithUser(user.ID))

	if !s.verifier.Verify(password, user.PasswordHash) {
		s.metrics.LoginAttempt(metrics.LoginInvalidCredentials)
		s.audit.RecordAuthEvent(ctx, audit.KindLogin, false,
			append(attribution, audit.WithErrorCode("invalid_credentials"))...)
		return nil, ErrInvalidCredentials
	}

	if !user.Active {
		s.metrics.LoginAttempt(metrics.LoginInactiveUser)
		s.audit.RecordAuthEvent(ctx, audit.KindLogin, false,
			append(attribution, audit.WithErrorCode("inactive_user"))...)
		return nil, ErrInactiveUser
	}

	info, err := s.levels.UserInfo(ctx, user.ID, tc.TenantID)
	if err != nil {
		s.metrics.LoginAttempt(metrics.LoginStoreUnavailable)
		return nil, err
	}

	identity := tokens.Identity{
		UserID:   user.ID,
		Subject:  user.Username,
		TenantID: user.TenantID,
		Info:     info,
	}

	access, err := s.tokens.IssueAccessToken(identity)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(identity)
	if err != nil {
		return nil, err
	}

	if err := s.tokens.StoreInitialRefreshToken(ctx, refresh, identity, clientType); err != nil {
		if errors.Is(err, tokens.ErrReuseDetected) {
			s.metrics.ReuseDetected()
			s.metrics.LoginAttempt(metrics.LoginReuseDetected)
			s.audit.RecordAuthEvent(ctx, audit.KindReuseDetected, false,
				append(attribution, audit.WithErrorCode("reuse_detected"))...)
			return nil, err
		}
		s.metrics.LoginAttempt(metrics.LoginStoreUnavailable)
		return nil, err
	}

	if s.limiter != nil {
		if resetErr := s.limiter.Reset(ctx, username, client.IP); resetErr != nil {
			s.log.WarnContext(ctx, "login limiter reset failed",
				logger.Error(resetErr), logger.Component("auth"))
		}
	}

	s.metrics.LoginAttempt(metrics.LoginSuccess)
	s.audit.RecordAuthEvent(ctx, audit.KindLogin, true, attribution...)

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		User: UserContext{
			UserID:   user.ID,
			Username: user.Username,
			TenantID: user.TenantID,
			Info:     info,
		},
	}, nil
}

// Refresh exchanges a refresh token for a new pair. A consumed or
// revoked token fails with tokens.ErrTokenExpiredOrRevoked; a retried
// exchange with the same token succeeds as long as the token was still
// active when the retry validated it.
func (s *Service) Refresh(ctx context.Context, oldRefresh string, clientType tokens.ClientType, client ClientInfo) (tokens.Pair, error) {
	pair, err := s.tokens.Rotate(ctx, oldRefresh, clientType)
	s.metrics.TokenRotation(err == nil)
	if err != nil {
		s.audit.RecordAuthEvent(ctx, audit.KindRefresh, false,
			audit.WithErrorCode("rotation_failed"),
			audit.WithClientInfo(client.IP, client.UserAgent))
		return tokens.Pair{}, err
	}

	opts := []audit.EventOption{audit.WithClientInfo(client.IP, client.UserAgent)}
	if claims, claimsErr := s.tokens.ValidateAccessToken(pair.AccessToken); claimsErr == nil {
		opts = append(opts, audit.WithUser(claims.UserID))
		if claims.TenantID != nil {
			opts = append(opts, audit.WithTenant(*claims.TenantID))
		}
	}
	s.audit.RecordAuthEvent(ctx, audit.KindRefresh, true, opts...)
	return pair, nil
}

// Logout revokes the presented refresh token. Idempotent.
func (s *Service) Logout(ctx context.Context, refreshToken string, client ClientInfo) error {
	if _, err := s.tokens.RevokeToken(ctx, refreshToken); err != nil {
		return err
	}
	s.audit.RecordAuthEvent(ctx, audit.KindLogout, true,
		audit.WithClientInfo(client.IP, client.UserAgent))
	return nil
}

// LogoutAll revokes every active session of the user.
func (s *Service) LogoutAll(ctx context.Context, userID uuid.UUID, client ClientInfo) (int64, error) {
	n, err := s.tokens.RevokeAllUserTokens(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.audit.RecordAuthEvent(ctx, audit.KindLogoutAll, true,
		audit.WithUser(userID),
		audit.WithClientInfo(client.IP, client.UserAgent))
	return n, nil
}

// Authorize runs the full gate decision for a token against the
// resolved tenant and returns the authenticated caller on grant. The
// returned Info reflects current role state, not the snapshot embedded
// at issue time.
func (s *Service) Authorize(ctx context.Context, tc tenant.Context, token string, requiredRoleNames []string) (UserContext, error) {
	res, err := s.gate.Authorize(ctx, tc, token, gate.Requirement{RoleNames: requiredRoleNames})
	if err != nil {
		return UserContext{}, err
	}

	return UserContext{
		UserID:   res.Claims.UserID,
		Username: res.Claims.Subject,
		TenantID: res.Claims.TenantID,
		Info:     accesslevel.DeriveInfo(res.ActualLevel, res.Claims.IsSuperAdmin),
	}, nil
}

type noopAudit struct{}

func (noopAudit) RecordAuthEvent(context.Context, audit.EventKind, bool, ...audit.EventOption) {}
func (noopAudit) RecordTenantAccess(context.Context, uuid.UUID, *uuid.UUID, uuid.UUID, string) {}
