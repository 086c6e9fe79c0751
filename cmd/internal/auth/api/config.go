package authapi

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the auth endpoint limits.
type Config struct {
	// TrustProxy makes clientIP read X-Forwarded-For / X-Real-IP.
	TrustProxy   bool
	MaxBodyBytes int64

	LoginIPMax    int
	LoginIPWindow time.Duration

	LoginEmailMax    int
	LoginEmailWindow time.Duration
}

// DefaultConfig allows 20 login attempts per IP per 5 minutes and 5 per email per 15 minutes.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:     1 << 20,
		LoginIPMax:       20,
		LoginIPWindow:    5 * time.Minute,
		LoginEmailMax:    5,
		LoginEmailWindow: 15 * time.Minute,
	}
}

// LoadConfigFromEnv reads PEDEAI_AUTH_*; unset or invalid values keep the default.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()
	fromEnv("PEDEAI_AUTH_TRUST_PROXY", &cfg.TrustProxy, strconv.ParseBool)
	fromEnv("PEDEAI_AUTH_MAX_BODY_BYTES", &cfg.MaxBodyBytes, positive(func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	}))
	fromEnv("PEDEAI_AUTH_LOGIN_IP_MAX", &cfg.LoginIPMax, positive(strconv.Atoi))
	fromEnv("PEDEAI_AUTH_LOGIN_IP_WINDOW", &cfg.LoginIPWindow, positive(time.ParseDuration))
	fromEnv("PEDEAI_AUTH_LOGIN_EMAIL_MAX", &cfg.LoginEmailMax, positive(strconv.Atoi))
	fromEnv("PEDEAI_AUTH_LOGIN_EMAIL_WINDOW", &cfg.LoginEmailWindow, positive(time.ParseDuration))
	return cfg
}

func (c Config) ipRule() Rule    { return Rule{Max: c.LoginIPMax, Window: c.LoginIPWindow} }
func (c Config) emailRule() Rule { return Rule{Max: c.LoginEmailMax, Window: c.LoginEmailWindow} }

func fromEnv[T any](key string, dst *T, parse func(string) (T, error)) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return
	}
	if v, err := parse(raw); err == nil {
		*dst = v
	}
}

type number interface {
	~int | ~int64
}

func positive[T number](parse func(string) (T, error)) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := parse(s)
		if err == nil && v <= 0 {
			err = strconv.ErrRange
		}
		return v, err
	}
}
