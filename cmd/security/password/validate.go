package password

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
	ErrWeakPassword     = errors.New("weak password")
)

// Validate applies the policy without hashing.
// MinLength counts runes (what a user types); the ceiling counts bytes (what bcrypt reads).
func (c Config) Validate(password string) error {
	if utf8.RuneCountInString(password) < c.Policy.MinLength {
		return ErrPasswordTooShort
	}

	ceiling := c.Policy.MaxBytes
	if ceiling <= 0 || ceiling > bcryptMaxBytes {
		ceiling = bcryptMaxBytes
	}
	if len(password) > ceiling {
		return ErrPasswordTooLong
	}

	if c.Policy.RejectVeryWeak && isVeryWeak(password) {
		return ErrWeakPassword
	}
	return nil
}

// commonPasswords are rejected outright when RejectVeryWeak is on.
var commonPasswords = map[string]struct{}{
	"password": {}, "password123": {}, "123456": {}, "123456789": {},
	"qwerty": {}, "qwerty123": {}, "senha": {}, "senha123": {}, "11111111": {},
	"pedeai": {}, "pedeai123": {},
}

// isVeryWeak catches a repeated single character, short PIN-like digit runs,
// and a short list of common passwords. It is not a strength estimator.
func isVeryWeak(pw string) bool {
	s := strings.TrimSpace(pw)
	if s == "" {
		return true
	}
	if _, ok := commonPasswords[strings.ToLower(s)]; ok {
		return true
	}

	first, _ := utf8.DecodeRuneInString(s)
	if strings.Trim(s, string(first)) == "" {
		return true
	}

	digits := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) < 0
	return digits && utf8.RuneCountInString(s) < 8
}
