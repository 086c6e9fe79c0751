package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"pedeai/cmd/security/token"
)

// LocalStore is the client-side persistent key/value store (the local storage analog).
// GetItem reports ok=false for a missing key; errors are infrastructure failures only.
type LocalStore interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// CookieStore is the client-side cookie copy that accompanies requests to the edge gate.
// SetCookie must honour MaxAge: a negative MaxAge deletes the cookie.
type CookieStore interface {
	SetCookie(ctx context.Context, c *http.Cookie) error
	Cookie(ctx context.Context, name string) (*http.Cookie, bool, error)
}

// Bridge keeps the local copy and the cookie copy of the session token in step.
// Persist and Clear are the only writers of either store.
type Bridge struct {
	local   LocalStore
	cookies CookieStore
	codec   Verifier
	log     *slog.Logger
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithBridgeLogger sets the logger used for lazy invalidation events.
func WithBridgeLogger(log *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		if log != nil {
			b.log = log
		}
	}
}

// NewBridge wires a bridge. A nil local store makes Persist/Clear no-ops, which is the
// behaviour of a context that has no client storage (server-side rendering, for instance).
func NewBridge(local LocalStore, cookies CookieStore, codec Verifier, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		local:   local,
		cookies: cookies,
		codec:   codec,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(b)
	}
	return b
}

// Persist writes tok to the local store and the cookie store. Both writes finish before return.
func (b *Bridge) Persist(ctx context.Context, tok string) error {
	if b == nil || b.local == nil {
		return nil
	}
	if strings.TrimSpace(tok) == "" {
		return errors.New("session: refusing to persist empty token")
	}

	if err := b.local.SetItem(ctx, LocalStorageKey, tok); err != nil {
		return fmt.Errorf("session: persist local: %w", err)
	}
	if b.cookies != nil {
		if err := b.cookies.SetCookie(ctx, AuthCookie(tok)); err != nil {
			return fmt.Errorf("session: persist cookie: %w", err)
		}
	}
	return nil
}

// Read returns the local copy of the token.
func (b *Bridge) Read(ctx context.Context) (string, bool, error) {
	if b == nil || b.local == nil {
		return "", false, nil
	}
	v, ok, err := b.local.GetItem(ctx, LocalStorageKey)
	if err != nil {
		return "", false, fmt.Errorf("session: read local: %w", err)
	}
	if !ok || v == "" {
		return "", false, nil
	}
	return v, true, nil
}

// ReadCookie returns the client-side cookie copy of the token.
func (b *Bridge) ReadCookie(ctx context.Context) (string, bool, error) {
	if b == nil || b.cookies == nil {
		return "", false, nil
	}
	c, ok, err := b.cookies.Cookie(ctx, AuthCookieName)
	if err != nil {
		return "", false, fmt.Errorf("session: read cookie: %w", err)
	}
	if !ok || c == nil || strings.TrimSpace(c.Value) == "" {
		return "", false, nil
	}
	return c.Value, true, nil
}

// ReadFromRequest returns the token carried by an inbound request's cookie header.
// It is independent of the local store.
func (b *Bridge) ReadFromRequest(r *http.Request) (string, bool) {
	return TokenFromRequest(r)
}

// Clear removes the local copy and expires the cookie copy. Calling it with no session is a no-op.
// Both removals are attempted even if the first fails.
func (b *Bridge) Clear(ctx context.Context) error {
	if b == nil || b.local == nil {
		return nil
	}

	var errs []error
	if err := b.local.RemoveItem(ctx, LocalStorageKey); err != nil {
		errs = append(errs, fmt.Errorf("session: clear local: %w", err))
	}
	if b.cookies != nil {
		if err := b.cookies.SetCookie(ctx, ExpiredAuthCookie()); err != nil {
			errs = append(errs, fmt.Errorf("session: clear cookie: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Current verifies the local copy and returns its claims.
// A token that fails verification clears both stores before returning ok=false.
func (b *Bridge) Current(ctx context.Context) (Claims, bool, error) {
	tok, ok, err := b.Read(ctx)
	if err != nil || !ok {
		return Claims{}, false, err
	}
	if b.codec == nil {
		return Claims{}, false, errors.New("session: bridge has no verifier")
	}

	claims, ok := b.codec.Verify(tok)
	if ok {
		return claims, true, nil
	}

	b.log.Info("session.clear.lazy", "token_fp", token.Fingerprint(tok))
	if err := b.Clear(ctx); err != nil {
		return Claims{}, false, err
	}
	return Claims{}, false, nil
}

// IsAuthenticated re-verifies the local copy on every call.
func (b *Bridge) IsAuthenticated(ctx context.Context) bool {
	_, ok, err := b.Current(ctx)
	return err == nil && ok
}
