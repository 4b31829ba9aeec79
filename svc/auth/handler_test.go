package auth_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/pkg/tenant"
	"github.com/dmitrymomot/authkit/svc/auth"
)

// newTestServer mounts the auth routes behind the tenant middleware the
// way a deployment would.
func newTestServer(t *testing.T, f *fixture, resolver *tenant.Resolver) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	r.Use(tenant.Middleware(resolver, ""))
	r.Mount("/auth", auth.NewHandler(f.svc).Router())

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, srv *httptest.Server, path string, body any, headers map[string]string) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Host = "acme.example.com"
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHandlerLogin(t *testing.T) {
	t.Parallel()

	t.Run("full login refresh logout cycle", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.addUser(t, "alice", 3)
		srv := newTestServer(t, f, f.resolver)

		resp := postJSON(t, srv, "/auth/login", map[string]string{
			"username": "alice",
			"password": testPassword,
		}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var login struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
			User         struct {
				Username string `json:"username"`
			} `json:"user"`
		}
		decodeBody(t, resp, &login)
		assert.NotEmpty(t, login.AccessToken)
		assert.Equal(t, "alice", login.User.Username)

		resp = postJSON(t, srv, "/auth/refresh", map[string]string{
			"refresh_token": login.RefreshToken,
		}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var refreshed map[string]string
		decodeBody(t, resp, &refreshed)
		assert.NotEmpty(t, refreshed["refresh_token"])

		resp = postJSON(t, srv, "/auth/logout", map[string]string{
			"refresh_token": refreshed["refresh_token"],
		}, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		// The revoked token no longer refreshes.
		resp = postJSON(t, srv, "/auth/refresh", map[string]string{
			"refresh_token": refreshed["refresh_token"],
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("bad credentials return 401", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.addUser(t, "alice", 1)
		srv := newTestServer(t, f, f.resolver)

		resp := postJSON(t, srv, "/auth/login", map[string]string{
			"username": "alice",
			"password": "wrong password",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		var body map[string]any
		decodeBody(t, resp, &body)
		assert.Equal(t, "invalid_credentials", body["error"])
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		srv := newTestServer(t, f, f.resolver)

		req, err := http.NewRequest(http.MethodPost, srv.URL+"/auth/login", bytes.NewReader([]byte("{")))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Host = "acme.example.com"

		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown client type returns 400", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.addUser(t, "alice", 1)
		srv := newTestServer(t, f, f.resolver)

		resp := postJSON(t, srv, "/auth/login", map[string]string{
			"username":    "alice",
			"password":    testPassword,
			"client_type": "toaster",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unresolvable host is misdirected", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		srv := newTestServer(t, f, f.resolver)

		req, err := http.NewRequest(http.MethodPost, srv.URL+"/auth/login", bytes.NewReader([]byte("{}")))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Host = "nosuch.example.com"

		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMisdirectedRequest, resp.StatusCode)
	})
}

func TestHandlerProtectedRoutes(t *testing.T) {
	t.Parallel()

	t.Run("me returns the authenticated principal", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		user := f.addUser(t, "alice", 3)
		srv := newTestServer(t, f, f.resolver)

		res, err := f.login(t, "alice", testPassword)
		require.NoError(t, err)

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/auth/me", nil)
		require.NoError(t, err)
		req.Host = "acme.example.com"
		req.Header.Set("Authorization", "Bearer "+res.AccessToken)

		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var me auth.UserContext
		decodeBody(t, resp, &me)
		assert.Equal(t, user.ID, me.UserID)
		assert.Equal(t, "alice", me.Username)
	})

	t.Run("me without a token is unauthorized", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		srv := newTestServer(t, f, f.resolver)

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/auth/me", nil)
		require.NoError(t, err)
		req.Host = "acme.example.com"

		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("logout all revokes every session over http", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.addUser(t, "alice", 1)
		srv := newTestServer(t, f, f.resolver)

		first, err := f.login(t, "alice", testPassword)
		require.NoError(t, err)
		second, err := f.login(t, "alice", testPassword)
		require.NoError(t, err)

		resp := postJSON(t, srv, "/auth/logout-all", map[string]string{}, map[string]string{
			"Authorization": fmt.Sprintf("Bearer %s", first.AccessToken),
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]int64
		decodeBody(t, resp, &body)
		assert.EqualValues(t, 2, body["revoked_count"])

		resp = postJSON(t, srv, "/auth/refresh", map[string]string{
			"refresh_token": second.RefreshToken,
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
