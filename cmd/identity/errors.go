package identity

import (
	"errors"
	"fmt"
)

// Error kinds. The auth API maps them to status codes: invalid input is 400, conflict is 409,
// and not found is 401 on login (the caller must not learn which half of the pair was wrong).
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
)

// OpError carries the failing operation and a kind. Msg is safe to show to the user;
// it never echoes a password.
type OpError struct {
	Op   string
	Kind error
	Msg  string
}

func (e OpError) Error() string {
	s := e.Op + ": " + e.Kind.Error()
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}

func (e OpError) Unwrap() error { return e.Kind }

// ConflictError is a unique-constraint hit. Field is the logical column, "email" in practice.
type ConflictError struct {
	Op    string
	Field string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s: %s %v", e.Op, orDefault(e.Field, "record"), ErrConflict)
}

func (e ConflictError) Unwrap() error { return ErrConflict }

// NotFoundError names what was missing: "user" for the credential row, "profile" for the profile row.
// A missing profile for an existing user is an inconsistency, not a bad login.
type NotFoundError struct {
	Op       string
	Resource string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s %v", e.Op, orDefault(e.Resource, "row"), ErrNotFound)
}

func (e NotFoundError) Unwrap() error { return ErrNotFound }

func IsConflict(err error) bool     { return errors.Is(err, ErrConflict) }
func IsNotFound(err error) bool     { return errors.Is(err, ErrNotFound) }
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
