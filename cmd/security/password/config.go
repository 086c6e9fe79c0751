package password

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// Cost is the fixed bcrypt work factor (2^10 rounds).
	Cost = bcrypt.DefaultCost

	// MaxCost bounds the work a stored hash can demand during Verify.
	MaxCost = 14

	// bcryptMaxBytes is the input limit of the bcrypt primitive.
	bcryptMaxBytes = 72
)

// Policy is what Validate enforces before hashing.
type Policy struct {
	MinLength      int  // runes
	MaxBytes       int  // bytes, never above 72
	RejectVeryWeak bool // common passwords, repeated runes, short digit runs
}

// Config bundles the hashing cost with the validation policy.
type Config struct {
	Cost   int
	Policy Policy
}

// DefaultConfig is a 6-rune minimum at cost 10 with the weak-pattern check off.
func DefaultConfig() Config {
	return Config{
		Cost:   Cost,
		Policy: Policy{MinLength: 6, MaxBytes: bcryptMaxBytes},
	}
}

// FromEnv applies PEDEAI_PASSWORD_MIN_LEN, PEDEAI_PASSWORD_MAX_BYTES and
// PEDEAI_PASSWORD_REJECT_VERY_WEAK over DefaultConfig. Empty values are ignored;
// malformed ones are errors.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()
	p := &cfg.Policy

	fields := []struct {
		key   string
		apply func(string) error
	}{
		{"PEDEAI_PASSWORD_MIN_LEN", intSetter(&p.MinLength)},
		{"PEDEAI_PASSWORD_MAX_BYTES", intSetter(&p.MaxBytes)},
		{"PEDEAI_PASSWORD_REJECT_VERY_WEAK", func(s string) error {
			b, err := strconv.ParseBool(strings.ToLower(s))
			if err != nil {
				return fmt.Errorf("invalid boolean %q", s)
			}
			p.RejectVeryWeak = b
			return nil
		}},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(os.Getenv(f.key))
		if raw == "" {
			continue
		}
		if err := f.apply(raw); err != nil {
			return Config{}, fmt.Errorf("%s: %w", f.key, err)
		}
	}

	if p.MinLength > p.MaxBytes {
		return Config{}, fmt.Errorf("password policy: min length %d exceeds max bytes %d", p.MinLength, p.MaxBytes)
	}
	return cfg, nil
}

func intSetter(dst *int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid integer %q", s)
		}
		if n < 1 || n > bcryptMaxBytes {
			return fmt.Errorf("%d outside 1..%d", n, bcryptMaxBytes)
		}
		*dst = n
		return nil
	}
}
