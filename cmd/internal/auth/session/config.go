package session

import (
	"errors"
	"fmt"

	"pedeai/cmd/security/token"
)

// Config defines runtime configuration for the session subsystem.
//
// The token lifetime is not configurable: every token expires 30 days after issue.
type Config struct {
	// Secret signs and verifies every token. Read-only after startup.
	Secret []byte
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - PEDEAI_TOKEN_SECRET (at least 32 bytes)
//
// Returns an error wrapping ErrConfig if the secret is missing or too short.
func LoadConfigFromEnv() (Config, error) {
	secret, err := token.SecretFromEnv(token.MinSecretBytes)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrSecretMissing):
			return Config{}, fmt.Errorf("%w: %s is not set", ErrConfig, token.SecretEnvKey)
		case errors.Is(err, token.ErrSecretTooShort):
			return Config{}, fmt.Errorf("%w: %s must be at least %d bytes", ErrConfig, token.SecretEnvKey, token.MinSecretBytes)
		default:
			return Config{}, err
		}
	}
	return Config{Secret: secret}, nil
}
