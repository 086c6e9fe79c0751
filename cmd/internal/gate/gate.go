// Package gate is the edge route gate: it runs before page handlers and redirects
// based only on the authToken cookie of the incoming request.
package gate

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"pedeai/cmd/internal/auth/session"
	"pedeai/cmd/security/token"
)

// Config lists the paths the gate acts on.
type Config struct {
	// ProtectedPrefixes require a session; matched with strings.HasPrefix on the path.
	ProtectedPrefixes []string
	// AuthOnlyPaths are for anonymous users only; matched exactly.
	AuthOnlyPaths []string
	// LoginPath receives anonymous requests for protected paths.
	LoginPath string
	// HomePath receives authenticated requests for auth-only paths.
	HomePath string
}

// DefaultConfig returns the PedeAí route table.
func DefaultConfig() Config {
	return Config{
		ProtectedPrefixes: []string{"/dashboard"},
		AuthOnlyPaths:     []string{"/login", "/registro", "/recuperar-senha"},
		LoginPath:         "/login",
		HomePath:          "/dashboard",
	}
}

// Action is what the gate does with a request.
type Action int

const (
	// Pass hands the request to the next handler.
	Pass Action = iota
	// RedirectLogin sends an anonymous request for a protected path to the login page.
	RedirectLogin
	// RedirectHome sends an authenticated request for an auth-only path to the dashboard.
	RedirectHome
)

func (a Action) String() string {
	switch a {
	case Pass:
		return "pass"
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	default:
		return "unknown"
	}
}

// Decision is the outcome of Decide.
type Decision struct {
	Action   Action
	Location string
	// Claims is set when a verifier accepted the cookie.
	Claims *session.Claims
	// ExpireCookie is set when a cookie was present but failed verification.
	ExpireCookie bool
}

// Gate decides per request. It is safe for concurrent use.
type Gate struct {
	cfg      Config
	log      *slog.Logger
	verifier session.Verifier
}

// Option configures a Gate.
type Option func(*Gate)

// WithVerifier makes the gate verify the cookie instead of checking its presence.
func WithVerifier(v session.Verifier) Option {
	return func(g *Gate) {
		g.verifier = v
	}
}

// New builds a Gate. Empty LoginPath/HomePath fall back to the defaults.
func New(cfg Config, log *slog.Logger, opts ...Option) *Gate {
	def := DefaultConfig()
	if cfg.LoginPath == "" {
		cfg.LoginPath = def.LoginPath
	}
	if cfg.HomePath == "" {
		cfg.HomePath = def.HomePath
	}
	if log == nil {
		log = slog.Default()
	}

	g := &Gate{cfg: cfg, log: log}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Decide inspects only the request cookie; it never touches the local store.
func (g *Gate) Decide(r *http.Request) Decision {
	path := r.URL.Path

	authed, claims, expire := g.authenticate(r)

	if g.isProtected(path) && !authed {
		q := url.Values{}
		q.Set("redirectedFrom", path)
		return Decision{
			Action:       RedirectLogin,
			Location:     g.cfg.LoginPath + "?" + q.Encode(),
			ExpireCookie: expire,
		}
	}

	if g.isAuthOnly(path) && authed {
		return Decision{Action: RedirectHome, Location: g.cfg.HomePath, Claims: claims}
	}

	return Decision{Action: Pass, Claims: claims, ExpireCookie: expire}
}

// Middleware applies Decide in front of next. Redirects use 307 like the web edge.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := g.Decide(r)

		if d.ExpireCookie {
			http.SetCookie(w, session.ExpiredAuthCookie())
		}

		switch d.Action {
		case RedirectLogin, RedirectHome:
			g.log.Debug("gate.redirect", "path", r.URL.Path, "action", d.Action.String(), "location", d.Location)
			http.Redirect(w, r, d.Location, http.StatusTemporaryRedirect)
			return
		}

		if d.Claims != nil {
			r = r.WithContext(withClaims(r.Context(), *d.Claims))
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gate) authenticate(r *http.Request) (authed bool, claims *session.Claims, expire bool) {
	tok, ok := session.TokenFromRequest(r)
	if !ok {
		return false, nil, false
	}
	if g.verifier == nil {
		return true, nil, false
	}

	c, ok := g.verifier.Verify(tok)
	if !ok {
		g.log.Info("gate.cookie.invalid", "path", r.URL.Path, "token_fp", token.Fingerprint(tok))
		return false, nil, true
	}
	return true, &c, false
}

func (g *Gate) isProtected(path string) bool {
	for _, p := range g.cfg.ProtectedPrefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func (g *Gate) isAuthOnly(path string) bool {
	for _, p := range g.cfg.AuthOnlyPaths {
		if path == p {
			return true
		}
	}
	return false
}

type claimsKey struct{}

func withClaims(ctx context.Context, c session.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext returns the claims the gate verified for this request.
func ClaimsFromContext(ctx context.Context) (session.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(session.Claims)
	return c, ok
}
