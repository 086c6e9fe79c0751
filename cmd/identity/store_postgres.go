package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"pedeai/cmd/security/password"
)

// DefaultSchema is the Postgres schema used when none is configured.
const DefaultSchema = "pedeai"

// PostgresStore implements identity persistence over PostgreSQL.
//
// The pgx pool is owned by the caller; this store does not close it.
// Schema and table identifiers are quoted with pgx.Identifier.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
	pw     password.Config
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema (default "pedeai").
// The schema name must be a legal unquoted PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentIsValid(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// WithPasswordConfig sets the hashing policy used by RegisterUser.
func WithPasswordConfig(cfg password.Config) PostgresOption {
	return func(s *PostgresStore) error {
		s.pw = cfg
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: DefaultSchema,
		pw:     password.DefaultConfig(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

// Schema returns the schema the store reads and writes.
func (s *PostgresStore) Schema() string { return s.schema }

// RegisterUser creates the user row and the profile row in one transaction.
func (s *PostgresStore) RegisterUser(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	const op = "identity.RegisterUser"

	if s == nil || s.pool == nil {
		return RegisterResult{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return RegisterResult{}, err
	}

	reg, err := prepareRegistration(op, s.pw, in)
	if err != nil {
		return RegisterResult{}, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return RegisterResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	users := pgIdent(s.schema, "users")
	profiles := pgIdent(s.schema, "profiles")

	_, err = tx.Exec(ctx,
		`INSERT INTO `+users+` (id, email, email_norm, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		reg.credential.UserID,
		strings.TrimSpace(in.Email),
		reg.emailNorm,
		reg.credential.PasswordHash,
		reg.profile.CreatedAt,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return RegisterResult{}, ConflictError{Op: op, Field: field}
		}
		return RegisterResult{}, err
	}

	p := reg.profile
	_, err = tx.Exec(ctx,
		`INSERT INTO `+profiles+` (
		     id, email, full_name, cpf_cnpj, phone, address, plan, avatar_url, created_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Email, p.FullName, p.CPFCNPJ, p.Phone, p.Address, p.Plan, p.AvatarURL, p.CreatedAt,
	)
	if err != nil {
		// A failure here rolls back the user row too: no credential without a profile.
		return RegisterResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return RegisterResult{}, err
	}
	return RegisterResult{Profile: p}, nil
}

// GetCredentialByEmail looks up a credential by normalized email.
func (s *PostgresStore) GetCredentialByEmail(ctx context.Context, email string) (Credential, error) {
	const op = "identity.GetCredentialByEmail"

	norm := NormalizeEmail(email)
	if norm == "" {
		return Credential{}, invalid(op, "email is required")
	}

	users := pgIdent(s.schema, "users")

	var c Credential
	err := s.pool.QueryRow(ctx,
		`SELECT id, email_norm, password_hash FROM `+users+` WHERE email_norm = $1`,
		norm,
	).Scan(&c.UserID, &c.Email, &c.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credential{}, NotFoundError{Op: op, Resource: "user"}
		}
		return Credential{}, err
	}
	return c, nil
}

// GetProfile loads the profile for userID.
func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (Profile, error) {
	const op = "identity.GetProfile"

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Profile{}, invalid(op, "missing user_id")
	}

	profiles := pgIdent(s.schema, "profiles")

	var p Profile
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, full_name, cpf_cnpj, phone, address, plan, avatar_url, created_at
		   FROM `+profiles+` WHERE id = $1`,
		userID,
	).Scan(&p.ID, &p.Email, &p.FullName, &p.CPFCNPJ, &p.Phone, &p.Address, &p.Plan, &p.AvatarURL, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, NotFoundError{Op: op, Resource: "profile"}
		}
		return Profile{}, err
	}
	return p, nil
}

// RecordAudit inserts one audit_log row.
func (s *PostgresStore) RecordAudit(ctx context.Context, e AuditEntry) error {
	auditLog := pgIdent(s.schema, "audit_log")

	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var ipVal any
	if e.IP != nil {
		ipVal = e.IP.String()
	}
	var metaVal any
	if len(e.Meta) > 0 {
		b, err := json.Marshal(e.Meta)
		if err != nil {
			return fmt.Errorf("identity: audit meta: %w", err)
		}
		metaVal = string(b)
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+auditLog+` (user_id, action, created_at, ip, user_agent, meta)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb)`,
		trimPtr(&e.UserID), e.Action, at, ipVal, trimPtr(&e.UserAgent), metaVal,
	)
	return err
}

// ---- helpers ----

// pgIdentIsValid checks if a string is a safe Postgres identifier.
func pgIdentIsValid(s string) bool {
	return pgIdentRe.MatchString(s)
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgIdent1(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch {
	case c == "uq_users_email_norm", strings.Contains(c, "email"):
		return "email", true
	case c == "users_pkey":
		return "id", true
	default:
		return "unique", true
	}
}
