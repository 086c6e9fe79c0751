package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"pedeai/cmd/identity"
	"pedeai/cmd/internal/auth/session"
	"pedeai/cmd/security/password"
	"pedeai/cmd/security/token"
)

// Handler wires HTTP auth endpoints to the identity store and the token codec.
type Handler struct {
	log *slog.Logger
	cfg Config

	store   identity.Store
	auditor identity.Auditor
	codec   *session.Codec
	limiter Limiter
	metrics *Metrics
	now     func() time.Time

	validate  *validator.Validate
	dummyHash string
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithLimiter overrides the default in-memory login limiter.
func WithLimiter(l Limiter) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.limiter = l
		}
	}
}

// WithAuditor enables audit rows. Without it nothing is audited.
func WithAuditor(a identity.Auditor) HandlerOption {
	return func(h *Handler) {
		if a != nil {
			h.auditor = a
		}
	}
}

// WithRegisterer registers the auth counters on reg.
func WithRegisterer(reg prometheus.Registerer) HandlerOption {
	return func(h *Handler) {
		h.metrics = NewMetrics(reg)
	}
}

// WithClock overrides time.Now for audit timestamps and the default limiter.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, store identity.Store, codec *session.Codec, cfg Config, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		return nil, errors.New("auth: nil identity store")
	}
	if codec == nil {
		return nil, errors.New("auth: nil token codec")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		store:    store,
		codec:    codec,
		now:      time.Now,
		validate: newValidator(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	if h.limiter == nil {
		h.limiter = NewMemoryLimiter(h.now)
	}
	if h.metrics == nil {
		h.metrics = NewMetrics(nil)
	}

	// Dummy hash for timing-resistant login checks.
	hash, err := password.Hash("dummy-password-for-timing-only")
	if err != nil {
		return nil, err
	}
	h.dummyHash = hash

	return h, nil
}

// Register mounts the auth routes. The mux answers 405 for other methods.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
	mux.HandleFunc("GET /me", h.handleMe)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.metrics.inc("register", "invalid")
		writeBadBody(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.metrics.inc("register", "invalid")
		writeError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return
	}

	ctx := r.Context()
	res, err := h.store.RegisterUser(ctx, identity.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		CPFCNPJ:  req.CPFCNPJ,
		Phone:    req.Phone,
		Address:  req.Address,
		Now:      h.now().UTC(),
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			h.metrics.inc("register", "conflict")
			writeError(w, http.StatusConflict, "email_taken", "email already registered")
		case identity.IsInvalidInput(err):
			h.metrics.inc("register", "invalid")
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid registration data")
		default:
			h.metrics.inc("register", "error")
			h.log.Error("auth.register.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.auditRegister(ctx, res.Profile.ID, clientIP(r, h.cfg.TrustProxy), r.UserAgent())
	h.metrics.inc("register", "success")
	h.log.Info("auth.register.ok", "user_id", res.Profile.ID)

	writeJSON(w, http.StatusCreated, UserEnvelope{User: toUserResponse(res.Profile)})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.metrics.inc("login", "invalid")
		writeBadBody(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.metrics.inc("login", "invalid")
		writeError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())
	email := identity.NormalizeEmail(req.Email)
	emailKey := "email:" + email

	// Throttle before the credential lookup to avoid extra bcrypt and DB load.
	if ip != nil {
		if h.throttled(ctx, w, "ip:"+ip.String(), h.cfg.ipRule(), ip, ua, email) {
			return
		}
	}
	if h.throttled(ctx, w, emailKey, h.cfg.emailRule(), ip, ua, email) {
		return
	}

	cred, err := h.store.GetCredentialByEmail(ctx, email)
	if err != nil {
		if !identity.IsNotFound(err) {
			h.metrics.inc("login", "error")
			h.log.Error("auth.login.lookup.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
			return
		}
		// Timing resistance: perform a dummy verify when user is missing.
		_ = password.Verify(h.dummyHash, req.Password)
		h.loginFailed(ctx, w, "", ip, ua, email, "not_found")
		return
	}

	if !password.Verify(cred.PasswordHash, req.Password) {
		h.loginFailed(ctx, w, cred.UserID, ip, ua, email, "bad_password")
		return
	}

	profile, err := h.store.GetProfile(ctx, cred.UserID)
	if err != nil {
		h.metrics.inc("login", "error")
		if identity.IsNotFound(err) {
			h.log.Error("auth.login.profile_missing", "user_id", cred.UserID)
			writeError(w, http.StatusInternalServerError, "profile_missing", "user profile not found")
			return
		}
		h.log.Error("auth.login.profile.fail", "err", err, "user_id", cred.UserID)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	tok, err := h.codec.Issue(session.Claims{
		ID:       profile.ID,
		Email:    profile.Email,
		FullName: profile.FullName,
		Role:     session.RoleUser,
	})
	if err != nil {
		h.metrics.inc("login", "error")
		h.log.Error("auth.login.issue.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	if err := h.limiter.Reset(ctx, emailKey); err != nil {
		h.log.Warn("auth.login.throttle_reset.fail", "err", err)
	}

	fp := token.Fingerprint(tok)
	h.auditLoginSuccess(ctx, profile.ID, ip, ua, fp)
	h.metrics.inc("login", "success")
	h.log.Info("auth.login.ok", "user_id", profile.ID, "token_fp", fp)

	http.SetCookie(w, session.AuthCookie(tok))
	writeJSON(w, http.StatusOK, LoginResponse{Token: tok, User: toUserResponse(profile)})
}

// throttled writes a 429 and returns true when key is blocked.
// A limiter outage fails closed for that request.
func (h *Handler) throttled(ctx context.Context, w http.ResponseWriter, key string, rule Rule, ip net.IP, ua, email string) bool {
	blocked, retryAfter, err := h.limiter.Blocked(ctx, key, rule)
	if err != nil {
		h.metrics.inc("login", "error")
		h.log.Error("auth.login.throttle.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		return true
	}
	if !blocked {
		return false
	}
	h.auditLoginRateLimited(ctx, ip, ua, email, retryAfter)
	h.metrics.inc("login", "rate_limited")
	writeRateLimited(w, retryAfter)
	return true
}

func (h *Handler) loginFailed(ctx context.Context, w http.ResponseWriter, userID string, ip net.IP, ua, email, reason string) {
	if ip != nil {
		if err := h.limiter.RecordFailure(ctx, "ip:"+ip.String(), h.cfg.ipRule()); err != nil {
			h.log.Warn("auth.login.throttle_record.fail", "err", err)
		}
	}
	if err := h.limiter.RecordFailure(ctx, "email:"+email, h.cfg.emailRule()); err != nil {
		h.log.Warn("auth.login.throttle_record.fail", "err", err)
	}

	h.auditLoginFailed(ctx, userID, ip, ua, email, reason)
	h.metrics.inc("login", "failure")
	writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
}

// handleLogout expires the cookie copy. The token itself stays valid until exp:
// there is no server-side revocation list.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := h.claimsFromRequest(r); ok {
		h.auditLogout(r.Context(), claims.ID, clientIP(r, h.cfg.TrustProxy), r.UserAgent())
	}

	http.SetCookie(w, session.ExpiredAuthCookie())
	h.metrics.inc("logout", "success")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	tok, present := requestToken(r)
	if !present {
		h.metrics.inc("me", "unauthorized")
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing token")
		return
	}
	claims, ok := h.codec.Verify(tok)
	if !ok {
		h.metrics.inc("me", "unauthorized")
		h.log.Info("auth.me.invalid_token", "token_fp", token.Fingerprint(tok))
		http.SetCookie(w, session.ExpiredAuthCookie())
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
		return
	}

	p, err := h.store.GetProfile(r.Context(), claims.ID)
	if err != nil {
		if identity.IsNotFound(err) {
			h.metrics.inc("me", "unauthorized")
			writeError(w, http.StatusUnauthorized, "not_found", "user not found")
			return
		}
		h.metrics.inc("me", "error")
		h.log.Error("auth.me.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.metrics.inc("me", "success")
	writeJSON(w, http.StatusOK, UserEnvelope{User: toUserResponse(p)})
}

func (h *Handler) claimsFromRequest(r *http.Request) (session.Claims, bool) {
	tok, ok := requestToken(r)
	if !ok {
		return session.Claims{}, false
	}
	return h.codec.Verify(tok)
}

// requestToken prefers the authToken cookie and falls back to a Bearer header.
func requestToken(r *http.Request) (string, bool) {
	if tok, ok := session.TokenFromRequest(r); ok {
		return tok, true
	}
	return bearerToken(r)
}

func bearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", false
	}
	scheme, rest, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok := strings.TrimSpace(rest)
	if tok == "" {
		return "", false
	}
	return tok, true
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for _, p := range parts {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
