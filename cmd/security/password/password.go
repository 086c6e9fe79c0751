package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hash validates password against the policy and returns a bcrypt hash.
// The salt is random per call, so hashing the same password twice yields different strings.
// Failures of the primitive itself are returned wrapped; they are not recoverable.
func (c Config) Hash(password string) (string, error) {
	if err := c.Validate(password); err != nil {
		return "", err
	}

	cost := c.Cost
	if cost <= 0 {
		cost = Cost
	}

	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

// Verify reports whether password matches encodedHash.
// Malformed hashes and hashes above MaxCost report false.
func (c Config) Verify(encodedHash, password string) bool {
	cost, err := bcrypt.Cost([]byte(encodedHash))
	if err != nil || cost > MaxCost {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
}

// Hash hashes password with DefaultConfig.
func Hash(password string) (string, error) {
	return DefaultConfig().Hash(password)
}

// Verify checks password against encodedHash with DefaultConfig.
func Verify(encodedHash, password string) bool {
	return DefaultConfig().Verify(encodedHash, password)
}
