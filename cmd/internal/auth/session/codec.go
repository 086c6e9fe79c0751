package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pedeai/cmd/security/token"
)

// TokenTTL is the fixed validity window of a token. It is not sliding.
const TokenTTL = 30 * 24 * time.Hour

// RoleUser is the only role issued at login.
const RoleUser = "user"

// Claims is the token payload. IssuedAt and ExpiresAt are milliseconds since the Unix epoch.
type Claims struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Verifier decodes and verifies a token. ok=false covers every failure:
// malformed, tampered, and expired tokens are indistinguishable to callers.
type Verifier interface {
	Verify(tok string) (Claims, bool)
}

// Codec issues and verifies tokens with a process-wide secret.
// A Codec is immutable after construction and safe for concurrent use.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec builds a Codec. An empty secret is a configuration error.
func NewCodec(secret []byte, opts ...CodecOption) (*Codec, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty token secret", ErrConfig)
	}
	c := &Codec{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c, nil
}

// Issue stamps iat/exp onto a copy of claims and returns the encoded token.
// Any iat/exp already present on claims is overwritten.
func (c *Codec) Issue(claims Claims) (string, error) {
	iat := c.now().UnixMilli()
	claims.IssuedAt = iat
	claims.ExpiresAt = iat + TokenTTL.Milliseconds()

	raw, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("session: encode claims: %w", err)
	}

	payload := base64.StdEncoding.EncodeToString(raw)
	return payload + "." + token.SignHMACSHA256Base64(payload, c.secret), nil
}

// Verify checks the signature, decodes the payload and rejects expired tokens.
func (c *Codec) Verify(tok string) (Claims, bool) {
	if strings.Count(tok, ".") != 1 {
		return Claims{}, false
	}
	payload, sig, _ := strings.Cut(tok, ".")
	if payload == "" || sig == "" {
		return Claims{}, false
	}

	if !token.Equal(token.SignHMACSHA256Base64(payload, c.secret), sig) {
		return Claims{}, false
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Claims{}, false
	}
	var claims Claims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return Claims{}, false
	}

	// A payload without exp decodes to 0 and is treated as expired.
	if claims.ExpiresAt < c.now().UnixMilli() {
		return Claims{}, false
	}
	return claims, true
}

// ExpiresAtTime returns ExpiresAt as a time.Time.
func (c Claims) ExpiresAtTime() time.Time { return time.UnixMilli(c.ExpiresAt) }
