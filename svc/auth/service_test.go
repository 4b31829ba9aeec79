package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/authkit/pkg/accesslevel"
	"github.com/dmitrymomot/authkit/pkg/audit"
	"github.com/dmitrymomot/authkit/pkg/credentials"
	"github.com/dmitrymomot/authkit/pkg/ratelimit"
	"github.com/dmitrymomot/authkit/pkg/tenant"
	"github.com/dmitrymomot/authkit/pkg/tokens"
	"github.com/dmitrymomot/authkit/svc/auth"
)

const testPassword = "correct horse battery staple"

type fixture struct {
	svc      *auth.Service
	users    *auth.MemoryUserStore
	source   *accesslevel.MemorySource
	tokens   *tokens.Service
	store    *tokens.MemoryStore
	verifier *credentials.BcryptVerifier
	auditLog *audit.MemoryStorage
	resolver *tenant.Resolver
	tenantID uuid.UUID
	client   auth.ClientInfo
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	limiter *ratelimit.LoginLimiter
}

func withLimiter(l *ratelimit.LoginLimiter) fixtureOption {
	return func(c *fixtureConfig) { c.limiter = l }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	var cfg fixtureConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	tenantID := uuid.New()
	dir, err := tenant.NewDirectory([]tenant.Tenant{{
		ID:        tenantID,
		Subdomain: "acme",
		Mode:      tenant.RoutingShared,
		Active:    true,
	}})
	require.NoError(t, err)
	resolver := tenant.NewResolver(dir, tenant.WithBaseDomain(".example.com"))

	store := tokens.NewMemoryStore()
	tokenSvc, err := tokens.New(store, tokens.Config{
		AccessSecret:  "access-secret-at-least-32-bytes-long",
		RefreshSecret: "refresh-secret-at-least-32-bytes-ok",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "authkit-test",
	})
	require.NoError(t, err)

	users := auth.NewMemoryUserStore()
	source := accesslevel.NewMemorySource()
	verifier := credentials.NewBcryptVerifier(bcrypt.MinCost)

	auditStorage := audit.NewMemoryStorage()
	auditLog := audit.New(auditStorage, audit.WithOptions(audit.Options{BatchTimeout: 5 * time.Millisecond}))
	t.Cleanup(func() { _ = auditLog.Close(context.Background()) })

	svcOpts := []auth.Option{auth.WithAudit(auditLog)}
	if cfg.limiter != nil {
		svcOpts = append(svcOpts, auth.WithLoginLimiter(cfg.limiter))
	}

	svc, err := auth.New(users, tokenSvc, resolver, accesslevel.NewResolver(source), verifier, svcOpts...)
	require.NoError(t, err)

	return &fixture{
		svc:      svc,
		users:    users,
		source:   source,
		tokens:   tokenSvc,
		store:    store,
		verifier: verifier,
		auditLog: auditStorage,
		resolver: resolver,
		tenantID: tenantID,
		client:   auth.ClientInfo{IP: "203.0.113.7", UserAgent: "test-agent"},
	}
}

// addUser provisions an active tenant user with the shared test
// password and a role at the given level.
func (f *fixture) addUser(t *testing.T, username string, level int) auth.User {
	t.Helper()

	hash, err := f.verifier.Hash(testPassword)
	require.NoError(t, err)

	tid := f.tenantID
	u := auth.User{
		ID:           uuid.New(),
		TenantID:     &tid,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Active:       true,
	}
	f.users.Add(u)

	if level > 0 {
		roleID := uuid.New()
		f.source.AddRole(accesslevel.Role{ID: roleID, TenantID: &tid, Name: username + "-role", Level: level, Active: true})
		f.source.Assign(accesslevel.Assignment{UserID: u.ID, RoleID: roleID, Active: true})
	}
	return u
}

// addSuperAdmin provisions a system account holding the superadmin
// system role.
func (f *fixture) addSuperAdmin(t *testing.T, username string) auth.User {
	t.Helper()

	hash, err := f.verifier.Hash(testPassword)
	require.NoError(t, err)

	u := auth.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Active:       true,
	}
	f.users.Add(u)

	roleID := uuid.New()
	f.source.AddRole(accesslevel.Role{
		ID: roleID, Name: "platform-root", Level: 99,
		Active: true, SystemCode: accesslevel.SystemCodeSuperAdmin,
	})
	f.source.Assign(accesslevel.Assignment{UserID: u.ID, RoleID: roleID, Active: true})
	return u
}

func (f *fixture) login(t *testing.T, username, password string) (*auth.LoginResult, error) {
	t.Helper()
	return f.svc.Login(context.Background(), "acme.example.com", username, password, tokens.ClientWeb, f.client)
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("successful login issues a working pair", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		user := f.addUser(t, "alice", 3)

		res, err := f.login(t, "alice", testPassword)
		require.NoError(t, err)
		assert.NotEmpty(t, res.AccessToken)
		assert.NotEmpty(t, res.RefreshToken)
		assert.Equal(t, user.ID, res.User.UserID)
		assert.Equal(t, "alice", res.User.Username)
		assert.Equal(t, 3, res.User.Info.AccessLevel)
		assert.Equal(t, accesslevel.UserTypeUser, res.User.Info.UserType)
		assert.False(t, res.User.Info.IsSuperAdmin)

		claims, err := f.tokens.ValidateAccessToken(res.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		require.NotNil(t, claims.TenantID)
		assert.Equal(t, f.tenantID, *claims.TenantID)
	})

	t.Run("unknown user and wrong password are indistinguishable", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.addUser(t, "alice", 1)

		_, errUnknown := f.login(t, "nobody", testPassword)
		_, errWrongPw := f.login(t, "alice", "wrong password")
		assert.ErrorIs(t, errUnknown, auth.ErrInvalidCredentials)
		assert.ErrorIs(t, errWrongPw, auth.ErrInvalidCredentials)
		assert.Equal(t, errUnknown.Error(), errWrongPw.Error())
	})

	t.Run("inactive user is rejected after password check", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		user := f.addUser(t, "alice", 1)
		user.Active = false
		f.users.Add(user)

		_, err := f.login(t, "alice", testPassword)
		assert.ErrorIs(t, err, auth.ErrInactiveUser)

		// Wrong password on an inactive account must not reveal the
		// account state.
		_, err = f.login(t, "alice", "wrong password")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unresolvable tenant fails before credentials", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.addUser(t, "alice", 1)

		_, err := f.svc.Login(context.Background(), "unknown.example.com", "alice", testPassword, tokens.ClientWeb, f.client)
		assert.ErrorIs(t, err, tenant.ErrNoTenantContext)
	})

	t.Run("superadmin login carries a nil tenant claim", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.addSuperAdmin(t, "root")

		res, err := f.login(t, "root", testPassword)
		require.NoError(t, err)
		assert.True(t, res.User.Info.IsSuperAdmin)
		assert.Equal(t, accesslevel.UserTypeSuperAdmin, res.User.Info.UserType)
		assert.Nil(t, res.User.TenantID)

		claims, err := f.tokens.ValidateAccessToken(res.AccessToken)
		require.NoError(t, err)
		assert.Nil(t, claims.TenantID)
		assert.True(t, claims.IsSuperAdmin)
	})

	t.Run("user store outage is retryable", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.users.FailWith(errors.New("connection refused"))

		_, err := f.login(t, "alice", testPassword)
		assert.ErrorIs(t, err, auth.ErrStoreUnavailable)
	})

	t.Run("failed login is audited", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, err := f.login(t, "nobody", testPassword)
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)

		require.Eventually(t, func() bool {
			return len(f.auditLog.Events()) == 1
		}, time.Second, 5*time.Millisecond)

		e := f.auditLog.Events()[0]
		assert.Equal(t, audit.KindLogin, e.Kind)
		assert.False(t, e.Success)
		assert.Equal(t, "invalid_credentials", e.ErrorCode)
		assert.Equal(t, f.client.IP, e.IP)
	})
}

func TestLoginRateLimit(t *testing.T) {
	t.Parallel()

	store := ratelimit.NewMemoryStore()
	t.Cleanup(store.Close)
	limiter, err := ratelimit.NewLoginLimiter(store, 3, time.Minute)
	require.NoError(t, err)

	f := newFixture(t, withLimiter(limiter))
	f.addUser(t, "alice", 1)

	for range 3 {
		_, err := f.login(t, "alice", "wrong password")
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	}

	_, err = f.login(t, "alice", testPassword)
	assert.ErrorIs(t, err, auth.ErrRateLimited)

	// Another address retains its own budget, and success resets it.
	other := auth.ClientInfo{IP: "198.51.100.9", UserAgent: "test-agent"}
	res, err := f.svc.Login(context.Background(), "acme.example.com", "alice", testPassword, tokens.ClientWeb, other)
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
}

func TestLoginReuseDetection(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := f.addUser(t, "alice", 2)

	first, err := f.login(t, "alice", testPassword)
	require.NoError(t, err)
	second, err := f.login(t, "alice", testPassword)
	require.NoError(t, err)

	// A stolen refresh token value pushed back through the login path is
	// the canonical replay signature.
	identity := tokens.Identity{UserID: user.ID, Subject: user.Username, TenantID: user.TenantID, Info: first.User.Info}
	err = f.tokens.StoreInitialRefreshToken(context.Background(), first.RefreshToken, identity, tokens.ClientWeb)
	assert.ErrorIs(t, err, tokens.ErrReuseDetected)

	// Every session of the user is gone, both of them.
	_, _, err = f.tokens.ValidateRefreshToken(context.Background(), first.RefreshToken)
	assert.ErrorIs(t, err, tokens.ErrTokenExpiredOrRevoked)
	_, _, err = f.tokens.ValidateRefreshToken(context.Background(), second.RefreshToken)
	assert.ErrorIs(t, err, tokens.ErrTokenExpiredOrRevoked)
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	t.Run("rotation invalidates the consumed token", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.addUser(t, "alice", 2)

		res, err := f.login(t, "alice", testPassword)
		require.NoError(t, err)

		pair, err := f.svc.Refresh(context.Background(), res.RefreshToken, tokens.ClientWeb, f.client)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)

		// The consumed token must be rejected on a second presentation.
		_, err = f.svc.Refresh(context.Background(), res.RefreshToken, tokens.ClientWeb, f.client)
		assert.ErrorIs(t, err, tokens.ErrTokenExpiredOrRevoked)

		// The replacement continues the session.
		_, err = f.svc.Refresh(context.Background(), pair.RefreshToken, tokens.ClientWeb, f.client)
		require.NoError(t, err)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, err := f.svc.Refresh(context.Background(), "not-a-token", tokens.ClientWeb, f.client)
		assert.ErrorIs(t, err, tokens.ErrTokenInvalid)
	})
}

func TestLogout(t *testing.T) {
	t.Parallel()

	t.Run("logout revokes the session", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.addUser(t, "alice", 1)

		res, err := f.login(t, "alice", testPassword)
		require.NoError(t, err)

		require.NoError(t, f.svc.Logout(context.Background(), res.RefreshToken, f.client))

		_, err = f.svc.Refresh(context.Background(), res.RefreshToken, tokens.ClientWeb, f.client)
		assert.ErrorIs(t, err, tokens.ErrTokenExpiredOrRevoked)

		// Logging out twice is harmless.
		require.NoError(t, f.svc.Logout(context.Background(), res.RefreshToken, f.client))
	})

	t.Run("logout all revokes every session", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		user := f.addUser(t, "alice", 1)

		web, err := f.login(t, "alice", testPassword)
		require.NoError(t, err)
		mobile, err := f.svc.Login(context.Background(), "acme.example.com", "alice", testPassword, tokens.ClientMobile, f.client)
		require.NoError(t, err)

		n, err := f.svc.LogoutAll(context.Background(), user.ID, f.client)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		_, err = f.svc.Refresh(context.Background(), web.RefreshToken, tokens.ClientWeb, f.client)
		assert.ErrorIs(t, err, tokens.ErrTokenExpiredOrRevoked)
		_, err = f.svc.Refresh(context.Background(), mobile.RefreshToken, tokens.ClientMobile, f.client)
		assert.ErrorIs(t, err, tokens.ErrTokenExpiredOrRevoked)
	})
}

func TestAuthorize(t *testing.T) {
	t.Parallel()

	t.Run("grants and reflects current role state", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.source.AddRole(accesslevel.Role{
			ID: uuid.New(), TenantID: &f.tenantID, Name: "Administrador", Level: 4, Active: true,
		})
		user := f.addUser(t, "alice", 4)

		res, err := f.login(t, "alice", testPassword)
		require.NoError(t, err)

		tc := tenant.Context{TenantID: f.tenantID, Mode: tenant.RoutingShared}
		uc, err := f.svc.Authorize(context.Background(), tc, res.AccessToken, []string{"Administrador"})
		require.NoError(t, err)
		assert.Equal(t, user.ID, uc.UserID)
		assert.Equal(t, 4, uc.Info.AccessLevel)
		assert.Equal(t, accesslevel.UserTypeTenantAdmin, uc.Info.UserType)
	})

	t.Run("cross tenant access by a superadmin is recorded", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		root := f.addSuperAdmin(t, "root")

		res, err := f.login(t, "root", testPassword)
		require.NoError(t, err)

		tc := tenant.Context{TenantID: f.tenantID, Mode: tenant.RoutingShared}
		uc, err := f.svc.Authorize(context.Background(), tc, res.AccessToken, nil)
		require.NoError(t, err)
		assert.True(t, uc.Info.IsSuperAdmin)

		require.Eventually(t, func() bool {
			return len(f.auditLog.Accesses()) == 1
		}, time.Second, 5*time.Millisecond)

		access := f.auditLog.Accesses()[0]
		assert.Equal(t, root.ID, access.UserID)
		assert.Nil(t, access.TokenTenantID)
		assert.Equal(t, f.tenantID, access.RequestTenantID)
	})

	t.Run("non superadmin cross tenant token is denied", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.addUser(t, "alice", 5)

		res, err := f.login(t, "alice", testPassword)
		require.NoError(t, err)

		foreign := tenant.Context{TenantID: uuid.New(), Mode: tenant.RoutingShared}
		_, err = f.svc.Authorize(context.Background(), foreign, res.AccessToken, nil)
		assert.ErrorIs(t, err, tenant.ErrTenantMismatch)
	})
}
