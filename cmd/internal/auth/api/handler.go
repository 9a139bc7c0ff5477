package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"finapp/cmd/internal/auth/authsvc"
	"finapp/cmd/internal/auth/session"
)

// Service is the auth flow surface driven by the handlers.
type Service interface {
	Register(ctx context.Context, in authsvc.RegisterInput, now time.Time) (authsvc.TokenPair, error)
	Login(ctx context.Context, in authsvc.LoginInput, now time.Time) (authsvc.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string, now time.Time) (authsvc.TokenPair, error)
	Authenticate(ctx context.Context, accessToken string, now time.Time) (authsvc.Principal, error)
	RevokeCurrentSession(ctx context.Context, accessToken string, now time.Time) error
	RevokeAllSessions(ctx context.Context, accountID string, now time.Time) (int64, error)
}

// Sessions lists and revokes an account's sessions.
type Sessions interface {
	List(ctx context.Context, accountID, currentAccessToken string) ([]session.Info, error)
	Revoke(ctx context.Context, sessionID, accountID, currentAccessToken string, now time.Time) error
}

// Limiter admits or rejects requests per principal.
type Limiter interface {
	Admit(principal string, now time.Time) (bool, time.Duration)
}

// Handler wires HTTP auth endpoints to the auth service.
type Handler struct {
	log *slog.Logger
	cfg Config

	svc      Service
	sessions Sessions
	limiter  Limiter
	metrics  *Metrics
	now      func() time.Time
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// WithMetrics attaches Prometheus counters.
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, svc Service, sessions Sessions, limiter Limiter, opts ...HandlerOption) (*Handler, error) {
	if svc == nil || sessions == nil || limiter == nil {
		return nil, errors.New("authapi: missing dependency")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		svc:      svc,
		sessions: sessions,
		limiter:  limiter,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires auth routes onto mux. Protected routes need the
// Authenticate middleware somewhere above mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/refresh", h.handleRefresh)
	mux.Handle("POST /auth/logout", RequireAuth(h.handleLogout))
	mux.Handle("POST /auth/logout-all", RequireAuth(h.handleLogoutAll))
	mux.Handle("GET /auth/sessions", RequireAuth(h.handleListSessions))
	mux.Handle("POST /auth/sessions/{id}/revoke", RequireAuth(h.handleRevokeSession))
}

// Routes returns a mux with the auth routes behind Authenticate.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	return h.Authenticate(mux)
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.writeBadBody(w, err)
		return
	}

	pair, err := h.svc.Register(r.Context(), authsvc.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Device:   h.device(r, req.DeviceInfo),
	}, h.now())
	if err != nil {
		h.writeServiceError(w, "auth.register.fail", err)
		return
	}

	h.audit(r, "auth.register.success", "session_id", pair.SessionID)
	writeJSON(w, http.StatusOK, toTokenPairResponse(pair))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.writeBadBody(w, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "email and password are required")
		return
	}

	pair, err := h.svc.Login(r.Context(), authsvc.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Device:   h.device(r, req.DeviceInfo),
	}, h.now())
	h.metrics.observeLogin(outcomeCode(err))
	if err != nil {
		attrs := []any{"code", outcomeCode(err)}
		var te authsvc.ThrottledError
		if errors.As(err, &te) {
			attrs = append(attrs, "attempts", te.Attempts, "retry_after_s", int64(te.Wait.Seconds()))
		}
		h.audit(r, "auth.login.failed", attrs...)
		h.writeServiceError(w, "auth.login.fail", err)
		return
	}

	h.audit(r, "auth.login.success", "session_id", pair.SessionID)
	writeJSON(w, http.StatusOK, toTokenPairResponse(pair))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.writeBadBody(w, err)
		return
	}
	refreshToken := strings.TrimSpace(req.RefreshToken)
	if refreshToken == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "refresh_token is required")
		return
	}

	pair, err := h.svc.Refresh(r.Context(), refreshToken, h.now())
	h.metrics.observeRefresh(outcomeCode(err))
	if err != nil {
		h.writeServiceError(w, "auth.refresh.fail", err)
		return
	}

	h.audit(r, "auth.refresh.success", "session_id", pair.SessionID)
	writeJSON(w, http.StatusOK, refreshResponse{
		SessionID:       pair.SessionID,
		AccessToken:     pair.AccessToken,
		AccessExpiresAt: pair.AccessExpiresAt,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	if err := h.svc.RevokeCurrentSession(r.Context(), p.AccessToken, h.now()); err != nil {
		h.writeServiceError(w, "auth.logout.fail", err)
		return
	}

	h.audit(r, "auth.logout", "account_id", p.AccountID, "session_id", p.SessionID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	n, err := h.svc.RevokeAllSessions(r.Context(), p.AccountID, h.now())
	if err != nil {
		h.writeServiceError(w, "auth.logout_all.fail", err)
		return
	}

	h.audit(r, "auth.logout_all", "account_id", p.AccountID, "revoked", n)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	infos, err := h.sessions.List(r.Context(), p.AccountID, p.AccessToken)
	if err != nil {
		h.writeServiceError(w, "auth.sessions.list.fail", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionsResponse(infos))
}

func (h *Handler) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "session id is required")
		return
	}

	if err := h.sessions.Revoke(r.Context(), id, p.AccountID, p.AccessToken, h.now()); err != nil {
		h.writeServiceError(w, "auth.sessions.revoke.fail", err)
		return
	}

	h.audit(r, "auth.session.revoked", "account_id", p.AccountID, "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) device(r *http.Request, explicitInfo string) authsvc.Device {
	return authsvc.Device{
		Info:      deviceInfo(explicitInfo, r),
		IP:        clientIP(r, h.cfg.TrustProxy),
		UserAgent: strings.TrimSpace(r.UserAgent()),
	}
}
