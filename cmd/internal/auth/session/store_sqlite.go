package session

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

//go:embed migrations/*.sql
var sqliteMigrations embed.FS

// DBTX is the subset of database/sql used by SQLiteStore.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore persists the local copy and the cookie copy of the session on disk,
// so a command-line client keeps its session across runs.
// It implements both LocalStore and CookieStore.
type SQLiteStore struct {
	db  DBTX
	now func() time.Time
}

// NewSQLiteStore wraps an already migrated database.
func NewSQLiteStore(db DBTX, now func() time.Time) *SQLiteStore {
	if now == nil {
		now = time.Now
	}
	return &SQLiteStore{db: db, now: now}
}

// OpenSQLite opens (or creates) the database at dsn and applies embedded migrations.
// The caller owns the returned *sql.DB.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, *sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := MigrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return NewSQLiteStore(db, nil), db, nil
}

// MigrateSQLite applies the embedded schema. It is idempotent.
func MigrateSQLite(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(sqliteMigrations, "migrations")
	if err != nil {
		return err
	}
	p, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("session: goose provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("session: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM local_storage WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get local_storage[%s]: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) SetItem(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO local_storage (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set local_storage[%s]: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) RemoveItem(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM local_storage WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete local_storage[%s]: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) SetCookie(ctx context.Context, c *http.Cookie) error {
	if c == nil {
		return nil
	}

	expiresAt, keep := cookieExpiry(c, s.now())
	if !keep {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM cookies WHERE name = ?`, c.Name); err != nil {
			return fmt.Errorf("failed to delete cookie[%s]: %w", c.Name, err)
		}
		return nil
	}

	var exp any
	if !expiresAt.IsZero() {
		exp = expiresAt.UnixMilli()
	}
	path := c.Path
	if path == "" {
		path = "/"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cookies (name, value, path, same_site, expires_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			value = excluded.value,
			path = excluded.path,
			same_site = excluded.same_site,
			expires_at = excluded.expires_at
	`, c.Name, c.Value, path, int(c.SameSite), exp)
	if err != nil {
		return fmt.Errorf("failed to set cookie[%s]: %w", c.Name, err)
	}
	return nil
}

func (s *SQLiteStore) Cookie(ctx context.Context, name string) (*http.Cookie, bool, error) {
	var (
		value    string
		path     string
		sameSite int
		exp      sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, path, same_site, expires_at FROM cookies WHERE name = ?`, name,
	).Scan(&value, &path, &sameSite, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cookie[%s]: %w", name, err)
	}

	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		SameSite: http.SameSite(sameSite),
	}
	if exp.Valid {
		expiresAt := time.UnixMilli(exp.Int64)
		if !expiresAt.After(s.now()) {
			if _, err := s.db.ExecContext(ctx, `DELETE FROM cookies WHERE name = ?`, name); err != nil {
				return nil, false, fmt.Errorf("failed to evict cookie[%s]: %w", name, err)
			}
			return nil, false, nil
		}
		c.Expires = expiresAt
		c.MaxAge = int(expiresAt.Sub(s.now()).Seconds())
	}
	return c, true, nil
}
