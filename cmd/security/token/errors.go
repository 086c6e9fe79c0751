package token

import "errors"

var (
	// ErrSecretMissing means PEDEAI_TOKEN_SECRET is unset or blank.
	ErrSecretMissing = errors.New("token secret missing")

	// ErrSecretTooShort means the secret is below the requested minimum length.
	ErrSecretTooShort = errors.New("token secret too short")
)
