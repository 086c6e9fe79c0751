package authapi

import (
	"testing"
	"time"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg := LoadConfigFromEnv()
	if cfg != DefaultConfig() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("PEDEAI_AUTH_TRUST_PROXY", "true")
	t.Setenv("PEDEAI_AUTH_LOGIN_EMAIL_MAX", "3")
	t.Setenv("PEDEAI_AUTH_LOGIN_EMAIL_WINDOW", "2m")

	cfg := LoadConfigFromEnv()
	if !cfg.TrustProxy {
		t.Fatalf("expected TrustProxy=true")
	}
	if cfg.LoginEmailMax != 3 || cfg.LoginEmailWindow != 2*time.Minute {
		t.Fatalf("unexpected email rule: %+v", cfg.emailRule())
	}
}

func TestLoadConfigFromEnv_InvalidFallsBack(t *testing.T) {
	t.Setenv("PEDEAI_AUTH_LOGIN_IP_MAX", "-4")
	t.Setenv("PEDEAI_AUTH_LOGIN_IP_WINDOW", "soon")
	t.Setenv("PEDEAI_AUTH_MAX_BODY_BYTES", "lots")

	cfg := LoadConfigFromEnv()
	def := DefaultConfig()
	if cfg.LoginIPMax != def.LoginIPMax || cfg.LoginIPWindow != def.LoginIPWindow || cfg.MaxBodyBytes != def.MaxBodyBytes {
		t.Fatalf("invalid values must fall back to defaults, got %+v", cfg)
	}
}
