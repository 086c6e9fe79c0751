package identity

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate creates the schema if needed and applies the embedded migrations inside it.
// Migrations use unqualified table names; a dedicated connection with search_path pinned
// to the schema keeps them (and goose's version table) scoped to it.
func Migrate(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	if pool == nil {
		return fmt.Errorf("identity: nil pool")
	}
	if !pgIdentIsValid(schema) {
		return fmt.Errorf("identity: invalid schema identifier")
	}

	if _, err := pool.Exec(ctx, `CREATE SCHEMA IF NOT EXISTS `+pgIdent1(schema)); err != nil {
		return fmt.Errorf("identity: create schema: %w", err)
	}

	connCfg := pool.Config().ConnConfig.Copy()
	if connCfg.RuntimeParams == nil {
		connCfg.RuntimeParams = map[string]string{}
	}
	connCfg.RuntimeParams["search_path"] = schema
	db := stdlib.OpenDB(*connCfg)
	defer db.Close()

	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	p, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("identity: goose provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("identity: migrate: %w", err)
	}
	return nil
}

// Migrate applies migrations to the store's schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return Migrate(ctx, s.pool, s.schema)
}
