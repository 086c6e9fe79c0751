package app

import (
	"errors"
	"fmt"

	"pedeai/cmd/security/token"
)

// ValidateSecurityConfig fails startup when the token secret is unusable.
// There is no built-in fallback secret: a server without one must not issue tokens.
func ValidateSecurityConfig() error {
	if _, err := token.SecretFromEnv(token.MinSecretBytes); err != nil {
		switch {
		case errors.Is(err, token.ErrSecretMissing):
			return fmt.Errorf("security policy: %s is not set", token.SecretEnvKey)
		case errors.Is(err, token.ErrSecretTooShort):
			return fmt.Errorf("security policy: %s is too short (min %d bytes)", token.SecretEnvKey, token.MinSecretBytes)
		default:
			return err
		}
	}
	return nil
}
