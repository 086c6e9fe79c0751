package session

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// MemoryLocalStore is an in-process LocalStore.
type MemoryLocalStore struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemoryLocalStore returns an empty store.
func NewMemoryLocalStore() *MemoryLocalStore {
	return &MemoryLocalStore{items: make(map[string]string)}
}

func (s *MemoryLocalStore) GetItem(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *MemoryLocalStore) SetItem(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

func (s *MemoryLocalStore) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

type storedCookie struct {
	cookie    http.Cookie
	expiresAt time.Time // zero means session cookie
}

// MemoryCookieStore is an in-process CookieStore with Max-Age handling.
type MemoryCookieStore struct {
	mu      sync.Mutex
	cookies map[string]storedCookie
	now     func() time.Time
}

// NewMemoryCookieStore returns an empty store. A nil clock uses time.Now.
func NewMemoryCookieStore(now func() time.Time) *MemoryCookieStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryCookieStore{cookies: make(map[string]storedCookie), now: now}
}

func (s *MemoryCookieStore) SetCookie(_ context.Context, c *http.Cookie) error {
	if c == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, keep := cookieExpiry(c, s.now())
	if !keep {
		delete(s.cookies, c.Name)
		return nil
	}
	s.cookies[c.Name] = storedCookie{cookie: *c, expiresAt: expiresAt}
	return nil
}

func (s *MemoryCookieStore) Cookie(_ context.Context, name string) (*http.Cookie, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.cookies[name]
	if !ok {
		return nil, false, nil
	}
	if !sc.expiresAt.IsZero() && !sc.expiresAt.After(s.now()) {
		delete(s.cookies, name)
		return nil, false, nil
	}
	c := sc.cookie
	return &c, true, nil
}

// cookieExpiry applies user-agent rules: Max-Age wins over Expires, and a
// non-positive Max-Age (as produced by MaxAge<0) or a past Expires removes the cookie.
func cookieExpiry(c *http.Cookie, now time.Time) (time.Time, bool) {
	switch {
	case c.MaxAge < 0:
		return time.Time{}, false
	case c.MaxAge > 0:
		return now.Add(time.Duration(c.MaxAge) * time.Second), true
	case !c.Expires.IsZero():
		if !c.Expires.After(now) {
			return time.Time{}, false
		}
		return c.Expires, true
	default:
		return time.Time{}, true
	}
}
