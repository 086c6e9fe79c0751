package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestSignHMACSHA256Base64_MatchesStdlib(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	msg := "eyJpZCI6IjEifQ=="

	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(msg))
	want := base64.StdEncoding.EncodeToString(m.Sum(nil))

	if got := SignHMACSHA256Base64(msg, key); got != want {
		t.Fatalf("signature mismatch: got %q want %q", got, want)
	}
}

func TestSignHMACSHA256Base64_KeyMatters(t *testing.T) {
	a := SignHMACSHA256Base64("payload", []byte("key-a"))
	b := SignHMACSHA256Base64("payload", []byte("key-b"))
	if a == b {
		t.Fatalf("different keys must produce different signatures")
	}
}

func TestEqual(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{a: "abc", b: "abc", want: true},
		{a: "abc", b: "abd", want: false},
		{a: "abc", b: "abcd", want: false},
		{a: "", b: "", want: false},
		{a: "abc", b: "", want: false},
	}
	for _, tc := range cases {
		if got := Equal(tc.a, tc.b); got != tc.want {
			t.Fatalf("Equal(%q,%q)=%v want=%v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSecretFromEnv(t *testing.T) {
	t.Setenv(SecretEnvKey, "")
	if _, err := SecretFromEnv(MinSecretBytes); !errors.Is(err, ErrSecretMissing) {
		t.Fatalf("expected ErrSecretMissing, got %v", err)
	}

	t.Setenv(SecretEnvKey, "short")
	if _, err := SecretFromEnv(MinSecretBytes); !errors.Is(err, ErrSecretTooShort) {
		t.Fatalf("expected ErrSecretTooShort, got %v", err)
	}

	secret := "  " + strings.Repeat("s", MinSecretBytes) + "  "
	t.Setenv(SecretEnvKey, secret)
	b, err := SecretFromEnv(MinSecretBytes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != strings.TrimSpace(secret) {
		t.Fatalf("secret not trimmed: %q", string(b))
	}
}

func TestFingerprint(t *testing.T) {
	if Fingerprint("") != "" {
		t.Fatalf("empty token must have empty fingerprint")
	}
	fp := Fingerprint("some.token")
	if len(fp) != fingerprintLen {
		t.Fatalf("fingerprint length=%d", len(fp))
	}
	if !strings.HasPrefix(HashSHA256Hex("some.token"), fp) {
		t.Fatalf("fingerprint must prefix the sha256 digest")
	}
}
