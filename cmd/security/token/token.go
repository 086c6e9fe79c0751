package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"os"
	"strings"
)

const (
	// SecretEnvKey is the env var name for the session signing secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	SecretEnvKey = "PEDEAI_TOKEN_SECRET"

	// MinSecretBytes is the smallest secret accepted at startup.
	MinSecretBytes = 32

	fingerprintLen = 12
)

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Fingerprint returns a short, non-reversible reference to a token for logs.
func Fingerprint(tok string) string {
	if tok == "" {
		return ""
	}
	return HashSHA256Hex(tok)[:fingerprintLen]
}

// SignHMACSHA256Base64 returns base64(HMAC-SHA256(key, msg)) using the padded standard alphabet.
func SignHMACSHA256Base64(msg string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(msg))
	return base64.StdEncoding.EncodeToString(m.Sum(nil))
}

// Equal compares two signatures in constant time.
// Empty inputs never match.
func Equal(a, b string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// SecretFromEnv returns the configured signing secret (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrSecretMissing.
// If too short -> ErrSecretTooShort.
func SecretFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(SecretEnvKey))
	if raw == "" {
		return nil, ErrSecretMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrSecretTooShort
	}
	return b, nil
}
