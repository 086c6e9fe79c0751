package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"pedeai/cmd/security/password"
)

// MemoryStore is an in-process Store and Auditor.
// It backs development runs without a database and the end-to-end tests.
type MemoryStore struct {
	pw password.Config

	mu       sync.RWMutex
	byEmail  map[string]Credential
	profiles map[string]Profile
	audit    []AuditEntry
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryPasswordConfig sets the hashing policy used by RegisterUser.
func WithMemoryPasswordConfig(cfg password.Config) MemoryOption {
	return func(s *MemoryStore) { s.pw = cfg }
}

// NewMemoryStore returns an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		pw:       password.DefaultConfig(),
		byEmail:  make(map[string]Credential),
		profiles: make(map[string]Profile),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) RegisterUser(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	const op = "identity.RegisterUser"

	if err := ctx.Err(); err != nil {
		return RegisterResult{}, err
	}

	// Hashing happens outside the lock; bcrypt is the slow part.
	reg, err := prepareRegistration(op, s.pw, in)
	if err != nil {
		return RegisterResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[reg.emailNorm]; exists {
		return RegisterResult{}, ConflictError{Op: op, Field: "email"}
	}
	s.byEmail[reg.emailNorm] = reg.credential
	s.profiles[reg.profile.ID] = reg.profile

	return RegisterResult{Profile: reg.profile}, nil
}

func (s *MemoryStore) GetCredentialByEmail(ctx context.Context, email string) (Credential, error) {
	const op = "identity.GetCredentialByEmail"

	if err := ctx.Err(); err != nil {
		return Credential{}, err
	}
	norm := NormalizeEmail(email)
	if norm == "" {
		return Credential{}, invalid(op, "email is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byEmail[norm]
	if !ok {
		return Credential{}, NotFoundError{Op: op, Resource: "user"}
	}
	return c, nil
}

func (s *MemoryStore) GetProfile(ctx context.Context, userID string) (Profile, error) {
	const op = "identity.GetProfile"

	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Profile{}, invalid(op, "missing user_id")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return Profile{}, NotFoundError{Op: op, Resource: "profile"}
	}
	return p, nil
}

// DeleteProfile removes a profile row and keeps the credential.
// It exists to reproduce the "credential without profile" state in tests.
func (s *MemoryStore) DeleteProfile(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, userID)
}

func (s *MemoryStore) RecordAudit(_ context.Context, e AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
	return nil
}

// AuditEntries returns a copy of recorded audit entries in insertion order.
func (s *MemoryStore) AuditEntries() []AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ Auditor = (*MemoryStore)(nil)
	_ Store   = (*PostgresStore)(nil)
	_ Auditor = (*PostgresStore)(nil)
)
