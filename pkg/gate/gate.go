package gate

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/pkg/accesslevel"
	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/metrics"
	"github.com/dmitrymomot/authkit/pkg/tenant"
	"github.com/dmitrymomot/authkit/pkg/tokens"
)

// State tracks the progression of one authorization decision. A request
// only ever moves forward through these states; any failure lands on
// StateDenied and stays there.
type State int

const (
	StateUnauthenticated State = iota
	StateTokenValidated
	StateLevelChecked
	StateGranted
	StateDenied
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateTokenValidated:
		return "token_validated"
	case StateLevelChecked:
		return "level_checked"
	case StateGranted:
		return "granted"
	case StateDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Requirement declares what a route demands. RoleNames resolves to the
// minimum level among the named roles in the request tenant's scope;
// MinLevel is a direct floor. When both are set the stricter wins.
type Requirement struct {
	RoleNames []string
	MinLevel  int
}

// Result is the outcome of one gate pass. On denial it still carries
// whatever was established before the failing transition, so callers
// can log the partial progression.
type Result struct {
	State         State
	Claims        *tokens.Claims
	Info          accesslevel.Info
	RequiredLevel int
	ActualLevel   int

	// CrossTenant is set when a superadmin token acts on a tenant other
	// than its own. The access was already recorded when this is true.
	CrossTenant bool
}

// TokenValidator verifies a signed access token.
type TokenValidator interface {
	ValidateAccessToken(signed string) (*tokens.Claims, error)
}

// LevelResolver computes required and actual access levels from role
// state.
type LevelResolver interface {
	MinRequiredLevel(ctx context.Context, roleNames []string, tenantID *uuid.UUID) (int, error)
	MaxUserLevel(ctx context.Context, userID uuid.UUID, tenantID uuid.UUID) (int, error)
}

// TenantAccessRecorder receives cross-tenant access events. Recording
// is best-effort; implementations must never fail the caller.
type TenantAccessRecorder interface {
	RecordTenantAccess(ctx context.Context, userID uuid.UUID, tokenTenantID *uuid.UUID, requestTenantID uuid.UUID, kind string)
}

// Gate decides whether a token may perform an operation on a tenant.
// It persists nothing itself; every decision is logged and counted
// through the injected collaborators.
type Gate struct {
	tokens  TokenValidator
	levels  LevelResolver
	audit   TenantAccessRecorder
	metrics metrics.Collector
	log     *slog.Logger
}

type Option func(*Gate)

func WithAuditRecorder(rec TenantAccessRecorder) Option {
	return func(g *Gate) { g.audit = rec }
}

func WithMetrics(c metrics.Collector) Option {
	return func(g *Gate) {
		if c != nil {
			g.metrics = c
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(g *Gate) {
		if log != nil {
			g.log = log
		}
	}
}

func New(tokenValidator TokenValidator, levels LevelResolver, opts ...Option) *Gate {
	if tokenValidator == nil {
		panic("gate: token validator cannot be nil")
	}
	if levels == nil {
		panic("gate: level resolver cannot be nil")
	}
	g := &Gate{
		tokens:  tokenValidator,
		levels:  levels,
		metrics: metrics.Noop{},
		log:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authorize runs the full decision for one request: token validation,
// tenant agreement, then the level comparison. The returned Result is
// non-nil even on denial. Store failures deny the request with a
// retryable error; an unreachable role store never degrades into a
// default grant.
func (g *Gate) Authorize(ctx context.Context, tc tenant.Context, signed string, req Requirement) (*Result, error) {
	res := &Result{State: StateUnauthenticated}

	claims, err := g.tokens.ValidateAccessToken(signed)
	if err != nil {
		res.State = StateDenied
		g.metrics.AuthDecision(metrics.OutcomeDeniedToken)
		g.log.InfoContext(ctx, "authorization denied",
			logger.Decision(StateDenied.String()), logger.Error(err), logger.Component("gate"))
		return res, err
	}
	res.Claims = claims
	res.Info = claims.Info()
	res.State = StateTokenValidated

	switch tenant.ValidateTokenTenant(claims.TenantID, tc.TenantID, claims.IsSuperAdmin) {
	case tenant.Deny:
		res.State = StateDenied
		g.metrics.AuthDecision(metrics.OutcomeDeniedTenant)
		g.log.WarnContext(ctx, "authorization denied",
			logger.Decision(StateDenied.String()), logger.UserID(claims.UserID),
			logger.Error(tenant.ErrTenantMismatch), logger.Component("gate"))
		return res, tenant.ErrTenantMismatch
	case tenant.AllowCrossTenant:
		res.CrossTenant = true
		g.metrics.CrossTenantAccess()
		if g.audit != nil {
			g.audit.RecordTenantAccess(ctx, claims.UserID, claims.TenantID, tc.TenantID, "superadmin_access")
		}
	}

	required := req.MinLevel
	if len(req.RoleNames) > 0 {
		lvl, err := g.levels.MinRequiredLevel(ctx, req.RoleNames, &tc.TenantID)
		if err != nil {
			res.State = StateDenied
			g.metrics.AuthDecision(metrics.OutcomeStoreUnavailable)
			return res, err
		}
		if lvl > required {
			required = lvl
		}
	}

	actual, err := g.levels.MaxUserLevel(ctx, claims.UserID, tc.TenantID)
	if err != nil {
		res.State = StateDenied
		g.metrics.AuthDecision(metrics.OutcomeStoreUnavailable)
		return res, err
	}

	res.RequiredLevel = required
	res.ActualLevel = actual
	res.State = StateLevelChecked

	if actual < required {
		res.State = StateDenied
		g.metrics.AuthDecision(metrics.OutcomeDeniedLevel)
		g.log.InfoContext(ctx, "authorization denied",
			logger.Decision(StateDenied.String()), logger.UserID(claims.UserID),
			slog.Int("required_level", required), slog.Int("actual_level", actual),
			logger.Component("gate"))
		return res, &InsufficientLevelError{Required: required, Actual: actual}
	}

	res.State = StateGranted
	g.metrics.AuthDecision(metrics.OutcomeGranted)
	g.log.InfoContext(ctx, "authorization granted",
		logger.Decision(StateGranted.String()), logger.UserID(claims.UserID),
		slog.Int("required_level", required), slog.Int("actual_level", actual),
		logger.Component("gate"))
	return res, nil
}

func isStoreUnavailable(err error) bool {
	return errors.Is(err, accesslevel.ErrStoreUnavailable) ||
		errors.Is(err, tokens.ErrStoreUnavailable) ||
		errors.Is(err, tenant.ErrStoreUnavailable)
}
