package session

import (
	"context"
	"database/sql"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T, now func() time.Time) (*SQLiteStore, *sql.DB) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "session.db")
	_, db, err := OpenSQLite(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewSQLiteStore(db, now), db
}

func TestSQLiteStore_MigrateIdempotent(t *testing.T) {
	_, db := openTestSQLite(t, nil)
	require.NoError(t, MigrateSQLite(context.Background(), db))
}

func TestSQLiteStore_LocalItems(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestSQLite(t, nil)

	_, ok, err := s.GetItem(ctx, LocalStorageKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetItem(ctx, LocalStorageKey, "first"))
	require.NoError(t, s.SetItem(ctx, LocalStorageKey, "second"))

	v, ok, err := s.GetItem(ctx, LocalStorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", v)

	require.NoError(t, s.RemoveItem(ctx, LocalStorageKey))
	require.NoError(t, s.RemoveItem(ctx, LocalStorageKey))

	_, ok, err = s.GetItem(ctx, LocalStorageKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_CookieLifecycle(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s, _ := openTestSQLite(t, clk.Now)

	require.NoError(t, s.SetCookie(ctx, AuthCookie("abc.def")))

	c, ok, err := s.Cookie(ctx, AuthCookieName)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc.def", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, CookieMaxAge, c.MaxAge)

	clk.Advance(CookieMaxAge * time.Second)

	_, ok, err = s.Cookie(ctx, AuthCookieName)
	require.NoError(t, err)
	assert.False(t, ok, "cookie must be gone once Max-Age elapses")
}

func TestSQLiteStore_ExpiredCookieDeletes(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestSQLite(t, nil)

	require.NoError(t, s.SetCookie(ctx, AuthCookie("abc.def")))
	require.NoError(t, s.SetCookie(ctx, ExpiredAuthCookie()))

	_, ok, err := s.Cookie(ctx, AuthCookieName)
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent cookie is fine.
	require.NoError(t, s.SetCookie(ctx, ExpiredAuthCookie()))
}

func TestSQLiteStore_SessionSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "session.db")
	c, _ := newTestCodec(t)

	tok, err := c.Issue(aliceClaims())
	require.NoError(t, err)

	s1, db1, err := OpenSQLite(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, NewBridge(s1, s1, c).Persist(ctx, tok))
	require.NoError(t, db1.Close())

	s2, db2, err := OpenSQLite(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db2.Close() })

	b := NewBridge(s2, s2, c)
	got, ok, err := b.Read(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tok, got)

	claims, ok, err := b.Current(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", claims.Email)
}
