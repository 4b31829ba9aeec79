package gate_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/pkg/accesslevel"
	"github.com/dmitrymomot/authkit/pkg/gate"
	"github.com/dmitrymomot/authkit/pkg/tenant"
	"github.com/dmitrymomot/authkit/pkg/tokens"
)

type fixture struct {
	gate     *gate.Gate
	tokens   *tokens.Service
	source   *accesslevel.MemorySource
	audit    *recordedAccess
	tenantID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := tokens.NewMemoryStore()
	svc, err := tokens.New(store, tokens.Config{
		AccessSecret:  "access-secret-at-least-32-bytes-long",
		RefreshSecret: "refresh-secret-at-least-32-bytes-ok",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "authkit-test",
	})
	require.NoError(t, err)

	source := accesslevel.NewMemorySource()
	audit := &recordedAccess{}
	g := gate.New(svc, accesslevel.NewResolver(source), gate.WithAuditRecorder(audit))

	return &fixture{
		gate:     g,
		tokens:   svc,
		source:   source,
		audit:    audit,
		tenantID: uuid.New(),
	}
}

// addRole registers an active tenant role and returns its id.
func (f *fixture) addRole(name string, level int) uuid.UUID {
	id := uuid.New()
	tid := f.tenantID
	f.source.AddRole(accesslevel.Role{ID: id, TenantID: &tid, Name: name, Level: level, Active: true})
	return id
}

func (f *fixture) addSystemRole(name string, level int) uuid.UUID {
	id := uuid.New()
	f.source.AddRole(accesslevel.Role{ID: id, Name: name, Level: level, Active: true, SystemCode: name})
	return id
}

func (f *fixture) userWithRole(roleID uuid.UUID) uuid.UUID {
	userID := uuid.New()
	f.source.Assign(accesslevel.Assignment{UserID: userID, RoleID: roleID, Active: true})
	return userID
}

func (f *fixture) accessToken(t *testing.T, userID uuid.UUID, tenantID *uuid.UUID, info accesslevel.Info) string {
	t.Helper()
	signed, err := f.tokens.IssueAccessToken(tokens.Identity{
		UserID:   userID,
		Subject:  "caller",
		TenantID: tenantID,
		Info:     info,
	})
	require.NoError(t, err)
	return signed
}

func (f *fixture) tenantCtx() tenant.Context {
	return tenant.Context{TenantID: f.tenantID, Mode: tenant.RoutingShared}
}

func TestAuthorize(t *testing.T) {
	t.Parallel()

	t.Run("system role dominates a lower tenant role requirement", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.addRole("Administrador", 50)
		superRole := f.addSystemRole("SUPER_ADMIN", 99)
		userID := f.userWithRole(superRole)
		tid := f.tenantID
		token := f.accessToken(t, userID, &tid, accesslevel.Info{AccessLevel: 99, UserType: accesslevel.UserTypeSuperAdmin, IsSuperAdmin: true})

		res, err := f.gate.Authorize(context.Background(), f.tenantCtx(), token, gate.Requirement{RoleNames: []string{"Administrador"}})
		require.NoError(t, err)
		assert.Equal(t, gate.StateGranted, res.State)
		assert.Equal(t, 50, res.RequiredLevel)
		assert.Equal(t, 99, res.ActualLevel)
	})

	t.Run("denial reports both levels", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.addRole("Administrador", 50)
		editor := f.addRole("Editor", 30)
		userID := f.userWithRole(editor)
		tid := f.tenantID
		token := f.accessToken(t, userID, &tid, accesslevel.Info{AccessLevel: 30, UserType: accesslevel.UserTypeUser})

		res, err := f.gate.Authorize(context.Background(), f.tenantCtx(), token, gate.Requirement{RoleNames: []string{"Administrador"}})
		assert.ErrorIs(t, err, gate.ErrInsufficientLevel)

		var levelErr *gate.InsufficientLevelError
		require.ErrorAs(t, err, &levelErr)
		assert.Equal(t, 50, levelErr.Required)
		assert.Equal(t, 30, levelErr.Actual)
		assert.Equal(t, gate.StateDenied, res.State)
	})

	t.Run("role set matching nothing is unsatisfiable", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		editor := f.addRole("Editor", 3)
		userID := f.userWithRole(editor)
		tid := f.tenantID
		token := f.accessToken(t, userID, &tid, accesslevel.Info{AccessLevel: 3, UserType: accesslevel.UserTypeUser})

		_, err := f.gate.Authorize(context.Background(), f.tenantCtx(), token, gate.Requirement{RoleNames: []string{"NoSuchRole"}})
		assert.ErrorIs(t, err, gate.ErrInsufficientLevel)
	})

	t.Run("empty requirement admits any valid token", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID := uuid.New()
		tid := f.tenantID
		token := f.accessToken(t, userID, &tid, accesslevel.Info{AccessLevel: 1, UserType: accesslevel.UserTypeUser})

		res, err := f.gate.Authorize(context.Background(), f.tenantCtx(), token, gate.Requirement{})
		require.NoError(t, err)
		assert.Equal(t, gate.StateGranted, res.State)
		assert.Equal(t, 0, res.RequiredLevel)
		assert.Equal(t, accesslevel.LevelAuthenticated, res.ActualLevel)
	})

	t.Run("foreign tenant token is denied before level check", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID := uuid.New()
		foreign := uuid.New()
		token := f.accessToken(t, userID, &foreign, accesslevel.Info{AccessLevel: 5, UserType: accesslevel.UserTypeTenantAdmin})

		res, err := f.gate.Authorize(context.Background(), f.tenantCtx(), token, gate.Requirement{})
		assert.ErrorIs(t, err, tenant.ErrTenantMismatch)
		assert.Equal(t, gate.StateDenied, res.State)
		assert.Empty(t, f.audit.entries)
	})

	t.Run("superadmin crossing tenants is granted and recorded", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		superRole := f.addSystemRole("SUPER_ADMIN", 99)
		userID := f.userWithRole(superRole)
		foreign := uuid.New()
		token := f.accessToken(t, userID, &foreign, accesslevel.Info{AccessLevel: 99, UserType: accesslevel.UserTypeSuperAdmin, IsSuperAdmin: true})

		res, err := f.gate.Authorize(context.Background(), f.tenantCtx(), token, gate.Requirement{MinLevel: 50})
		require.NoError(t, err)
		assert.True(t, res.CrossTenant)

		require.Len(t, f.audit.entries, 1)
		entry := f.audit.entries[0]
		assert.Equal(t, userID, entry.userID)
		require.NotNil(t, entry.tokenTenantID)
		assert.Equal(t, foreign, *entry.tokenTenantID)
		assert.Equal(t, f.tenantID, entry.requestTenantID)
	})

	t.Run("garbage token is denied", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		res, err := f.gate.Authorize(context.Background(), f.tenantCtx(), "not-a-jwt", gate.Requirement{})
		assert.ErrorIs(t, err, tokens.ErrTokenInvalid)
		assert.Equal(t, gate.StateDenied, res.State)
	})

	t.Run("role store outage denies instead of granting", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID := uuid.New()
		tid := f.tenantID
		token := f.accessToken(t, userID, &tid, accesslevel.Info{AccessLevel: 5, UserType: accesslevel.UserTypeTenantAdmin})

		f.source.FailWith(errors.New("connection refused"))

		res, err := f.gate.Authorize(context.Background(), f.tenantCtx(), token, gate.Requirement{MinLevel: 1})
		assert.ErrorIs(t, err, accesslevel.ErrStoreUnavailable)
		assert.Equal(t, gate.StateDenied, res.State)
	})
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	newServer := func(f *fixture, mw func(http.Handler) http.Handler) http.Handler {
		protected := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := gate.ResultFromContext(r.Context())
			require.True(t, ok)
			assert.Equal(t, gate.StateGranted, res.State)
			w.WriteHeader(http.StatusNoContent)
		}))
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protected.ServeHTTP(w, r.WithContext(tenant.WithContext(r.Context(), f.tenantCtx())))
		})
	}

	t.Run("grants with sufficient level", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		admin := f.addRole("Administrador", 4)
		userID := f.userWithRole(admin)
		tid := f.tenantID
		token := f.accessToken(t, userID, &tid, accesslevel.Info{AccessLevel: 4, UserType: accesslevel.UserTypeTenantAdmin})

		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		newServer(f, gate.RequireRoles(f.gate, "Administrador")).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("insufficient level returns both levels", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		viewer := f.addRole("Viewer", 1)
		userID := f.userWithRole(viewer)
		tid := f.tenantID
		token := f.accessToken(t, userID, &tid, accesslevel.Info{AccessLevel: 1, UserType: accesslevel.UserTypeUser})

		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		newServer(f, gate.RequireLevel(f.gate, 4)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t, `{"error":"insufficient_level","required_level":4,"actual_level":1}`, rec.Body.String())
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		rec := httptest.NewRecorder()
		newServer(f, gate.RequireAuthenticated(f.gate)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing tenant context is misdirected", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		h := gate.RequireAuthenticated(f.gate)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run")
		}))

		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer whatever")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusMisdirectedRequest, rec.Code)
	})

	t.Run("expired token is unauthorized", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID := uuid.New()
		tid := f.tenantID
		token := f.accessToken(t, userID, &tid, accesslevel.Info{AccessLevel: 1, UserType: accesslevel.UserTypeUser})

		// Tamper with the signature so validation fails.
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token+"x")
		rec := httptest.NewRecorder()
		newServer(f, gate.RequireAuthenticated(f.gate)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

type accessEntry struct {
	userID          uuid.UUID
	tokenTenantID   *uuid.UUID
	requestTenantID uuid.UUID
	kind            string
}

type recordedAccess struct {
	entries []accessEntry
}

func (r *recordedAccess) RecordTenantAccess(_ context.Context, userID uuid.UUID, tokenTenantID *uuid.UUID, requestTenantID uuid.UUID, kind string) {
	r.entries = append(r.entries, accessEntry{userID, tokenTenantID, requestTenantID, kind})
}
