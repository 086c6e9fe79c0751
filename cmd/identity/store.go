package identity

import (
	"context"
	"net"
	"time"
)

// PlanFree is the plan every new profile starts on.
const PlanFree = "free"

// Credential is what login needs to check a password. It never leaves the server.
type Credential struct {
	UserID       string
	Email        string
	PasswordHash string
}

// Profile is the public account record keyed by the user id.
type Profile struct {
	ID        string
	Email     string
	FullName  string
	CPFCNPJ   *string
	Phone     *string
	Address   *string
	Plan      string
	AvatarURL string
	CreatedAt time.Time
}

// RegisterInput describes a registration request. Every field but Now is required:
// FullName at least 3 characters, CPFCNPJ with valid check digits, Phone at least 10
// and Address at least 5.
type RegisterInput struct {
	Email    string
	Password string
	FullName string

	CPFCNPJ string
	Phone   string
	Address string

	Now time.Time
}

// RegisterResult returns the created profile.
type RegisterResult struct {
	Profile Profile
}

// Store is the identity persistence boundary.
type Store interface {
	// RegisterUser creates the credential and the profile atomically.
	// A duplicate email returns a ConflictError with Field "email".
	RegisterUser(ctx context.Context, in RegisterInput) (RegisterResult, error)

	// GetCredentialByEmail looks up by normalized email. Missing users return NotFoundError.
	GetCredentialByEmail(ctx context.Context, email string) (Credential, error)

	// GetProfile returns the profile for userID. Missing rows return NotFoundError.
	GetProfile(ctx context.Context, userID string) (Profile, error)
}

// AuditEntry is a single security-relevant event.
type AuditEntry struct {
	UserID    string
	Action    string
	IP        net.IP
	UserAgent string
	Meta      map[string]any
	At        time.Time
}

// Auditor records audit entries. Callers treat failures as non-fatal.
type Auditor interface {
	RecordAudit(ctx context.Context, e AuditEntry) error
}
