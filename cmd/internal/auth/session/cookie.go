package session

import (
	"net/http"
	"strings"
	"time"
)

const (
	// AuthCookieName is the cookie the edge gate reads.
	AuthCookieName = "authToken"

	// LocalStorageKey is the key used in the local persistent store.
	LocalStorageKey = "authToken"

	// CookieMaxAge is 30 days in seconds.
	CookieMaxAge = 30 * 24 * 60 * 60
)

// AuthCookie returns the cookie copy of tok.
// Secure and HttpOnly are deliberately unset so client script can read it, matching the web client.
func AuthCookie(tok string) *http.Cookie {
	return &http.Cookie{
		Name:     AuthCookieName,
		Value:    tok,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		SameSite: http.SameSiteStrictMode,
	}
}

// ExpiredAuthCookie returns a cookie that makes user agents drop authToken.
func ExpiredAuthCookie() *http.Cookie {
	return &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		SameSite: http.SameSiteStrictMode,
	}
}

// TokenFromRequest reads authToken from the request cookies. An empty value counts as absent.
func TokenFromRequest(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	c, err := r.Cookie(AuthCookieName)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(c.Value)
	if v == "" {
		return "", false
	}
	return v, true
}
