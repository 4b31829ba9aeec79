package auth

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/authkit/pkg/accesslevel"
	"github.com/dmitrymomot/authkit/pkg/binder"
	"github.com/dmitrymomot/authkit/pkg/clientip"
	"github.com/dmitrymomot/authkit/pkg/gate"
	"github.com/dmitrymomot/authkit/pkg/ratelimit"
	"github.com/dmitrymomot/authkit/pkg/tenant"
	"github.com/dmitrymomot/authkit/pkg/tokens"
)

// Handler exposes the authentication operations over HTTP. Mount it
// behind the tenant resolution middleware; protected routes are guarded
// by the service's gate.
type Handler struct {
	svc  *Service
	bind func(*http.Request, any) error
}

func NewHandler(svc *Service) *Handler {
	if svc == nil {
		panic("auth: service cannot be nil")
	}
	return &Handler{svc: svc, bind: binder.BindJSON()}
}

// Router builds the route tree.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.login)
	r.Post("/refresh", h.refresh)
	r.Post("/logout", h.logout)

	r.Group(func(pr chi.Router) {
		pr.Use(gate.RequireAuthenticated(h.svc.Gate()))
		pr.Post("/logout-all", h.logoutAll)
		pr.Get("/me", h.me)
	})
	return r
}

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	ClientType string `json:"client_type"`
	TenantHint string `json:"tenant_hint"`
}

type loginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         UserContext `json:"user"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.bind(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", nil)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", nil)
		return
	}

	clientType := tokens.ClientType(req.ClientType)
	if req.ClientType == "" {
		clientType = tokens.ClientWeb
	}
	if !clientType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_client_type", nil)
		return
	}

	res, err := h.svc.Login(r.Context(), h.tenantHint(r, req.TenantHint),
		req.Username, req.Password, clientType, requestClient(r))
	if err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		User:         res.User,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	ClientType   string `json:"client_type"`
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := h.bind(r, &req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", nil)
		return
	}

	clientType := tokens.ClientType(req.ClientType)
	if req.ClientType == "" {
		clientType = tokens.ClientWeb
	}
	if !clientType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_client_type", nil)
		return
	}

	pair, err := h.svc.Refresh(r.Context(), req.RefreshToken, clientType, requestClient(r))
	if err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := h.bind(r, &req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", nil)
		return
	}

	if err := h.svc.Logout(r.Context(), req.RefreshToken, requestClient(r)); err != nil {
		writeAuthError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logoutAll(w http.ResponseWriter, r *http.Request) {
	res, ok := gate.ResultFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token", nil)
		return
	}

	n, err := h.svc.LogoutAll(r.Context(), res.Claims.UserID, requestClient(r))
	if err != nil {
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"revoked_count": n})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	res, ok := gate.ResultFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token", nil)
		return
	}

	writeJSON(w, http.StatusOK, UserContext{
		UserID:   res.Claims.UserID,
		Username: res.Claims.Subject,
		TenantID: res.Claims.TenantID,
		Info:     res.Info,
	})
}

// tenantHint prefers an explicit hint, then the resolved tenant from
// the middleware, then the request host.
func (h *Handler) tenantHint(r *http.Request, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if tc, ok := tenant.FromContext(r.Context()); ok {
		return tc.TenantID.String()
	}
	return r.Host
}

func requestClient(r *http.Request) ClientInfo {
	return ClientInfo{
		IP:        clientip.GetIP(r),
		UserAgent: r.UserAgent(),
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, tokens.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", nil)
	case errors.Is(err, tokens.ErrReuseDetected):
		writeError(w, http.StatusUnauthorized, "reuse_detected", nil)
	case errors.Is(err, tokens.ErrTokenExpiredOrRevoked):
		writeError(w, http.StatusUnauthorized, "token_expired_or_revoked", nil)
	case errors.Is(err, ErrInactiveUser):
		writeError(w, http.StatusForbidden, "inactive_user", nil)
	case errors.Is(err, ErrRateLimited):
		w.Header().Set("Retry-After", strconv.Itoa(60))
		writeError(w, http.StatusTooManyRequests, "rate_limited", nil)
	case errors.Is(err, tenant.ErrNoTenantContext):
		writeError(w, http.StatusMisdirectedRequest, "missing_tenant_context", nil)
	case errors.Is(err, tenant.ErrInactiveTenant):
		writeError(w, http.StatusForbidden, "inactive_tenant", nil)
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, tokens.ErrStoreUnavailable),
		errors.Is(err, tenant.ErrStoreUnavailable),
		errors.Is(err, accesslevel.ErrStoreUnavailable),
		errors.Is(err, ratelimit.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
