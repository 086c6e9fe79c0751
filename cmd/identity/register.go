package identity

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"pedeai/cmd/identity/ids"
	"pedeai/cmd/security/password"
)

// Minimum profile field lengths, counted in runes after trimming.
const (
	minFullNameLen = 3
	minPhoneLen    = 10
	minAddressLen  = 5
)

// registration is a validated RegisterInput ready to be written by a store.
type registration struct {
	credential Credential
	emailNorm  string
	profile    Profile
}

// prepareRegistration validates in, hashes the password and fills profile defaults.
// Both stores share it so they agree on what a valid registration is.
func prepareRegistration(op string, pw password.Config, in RegisterInput) (registration, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return registration{}, invalid(op, "email is required")
	}
	fullName := NormalizeFullName(in.FullName)
	if fullName == "" {
		return registration{}, invalid(op, "full_name is required")
	}
	if utf8.RuneCountInString(fullName) < minFullNameLen {
		return registration{}, invalid(op, "full_name must be at least 3 characters")
	}
	doc := strings.TrimSpace(in.CPFCNPJ)
	if !ValidCPFCNPJ(doc) {
		return registration{}, invalid(op, "cpf_cnpj is not a valid CPF or CNPJ")
	}
	phone := strings.TrimSpace(in.Phone)
	if utf8.RuneCountInString(phone) < minPhoneLen {
		return registration{}, invalid(op, "phone must be at least 10 characters")
	}
	address := strings.TrimSpace(in.Address)
	if utf8.RuneCountInString(address) < minAddressLen {
		return registration{}, invalid(op, "address must be at least 5 characters")
	}
	if in.Password == "" {
		return registration{}, invalid(op, "password is required")
	}

	hash, err := pw.Hash(in.Password)
	if err != nil {
		if isPolicyError(err) {
			return registration{}, invalid(op, err.Error())
		}
		return registration{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := ids.NewUserID(now)
	if err != nil {
		return registration{}, err
	}

	emailNorm := NormalizeEmail(email)
	return registration{
		credential: Credential{UserID: id, Email: emailNorm, PasswordHash: hash},
		emailNorm:  emailNorm,
		profile: Profile{
			ID:        id,
			Email:     emailNorm,
			FullName:  fullName,
			CPFCNPJ:   &doc,
			Phone:     &phone,
			Address:   &address,
			Plan:      PlanFree,
			AvatarURL: DefaultAvatarURL(fullName),
			CreatedAt: now,
		},
	}, nil
}

func isPolicyError(err error) bool {
	return errors.Is(err, password.ErrPasswordTooShort) ||
		errors.Is(err, password.ErrPasswordTooLong) ||
		errors.Is(err, password.ErrWeakPassword)
}

// trimPtr trims a string pointer, returning nil if the result is empty.
func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}

// invalid standardizes invalid input errors.
func invalid(op, msg string) error {
	return OpError{Op: op, Kind: ErrInvalidInput, Msg: msg}
}
