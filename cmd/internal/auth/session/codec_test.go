package session

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pedeai/cmd/security/token"
)

var testSecret = []byte("test-secret-0123456789-abcdefghijkl")

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCodec(t *testing.T) (*Codec, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c, err := NewCodec(testSecret, WithClock(clk.Now))
	require.NoError(t, err)
	return c, clk
}

func aliceClaims() Claims {
	return Claims{
		ID:       "01JQ2Z8W9T3V6N4B7C5D1E0F2G",
		Email:    "alice@example.com",
		FullName: "Alice Souza",
		Role:     RoleUser,
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	c, clk := newTestCodec(t)

	tok, err := c.Issue(aliceClaims())
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(tok, "."))

	got, ok := c.Verify(tok)
	require.True(t, ok)

	want := aliceClaims()
	want.IssuedAt = clk.Now().UnixMilli()
	want.ExpiresAt = want.IssuedAt + TokenTTL.Milliseconds()
	assert.Equal(t, want, got)
	assert.Equal(t, int64(30*24*60*60*1000), got.ExpiresAt-got.IssuedAt)
}

func TestCodec_IssueOverwritesTimestamps(t *testing.T) {
	c, clk := newTestCodec(t)

	in := aliceClaims()
	in.IssuedAt = 1
	in.ExpiresAt = 9_999_999_999_999

	tok, err := c.Issue(in)
	require.NoError(t, err)

	got, ok := c.Verify(tok)
	require.True(t, ok)
	assert.Equal(t, clk.Now().UnixMilli(), got.IssuedAt)
	assert.Equal(t, clk.Now().Add(TokenTTL).UnixMilli(), got.ExpiresAt)
}

func TestCodec_WireFormat(t *testing.T) {
	c, _ := newTestCodec(t)

	tok, err := c.Issue(aliceClaims())
	require.NoError(t, err)

	payload, sig, found := strings.Cut(tok, ".")
	require.True(t, found)
	assert.Equal(t, token.SignHMACSHA256Base64(payload, testSecret), sig)

	raw, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"email":"alice@example.com"`)
	assert.Contains(t, string(raw), `"role":"user"`)
	assert.Contains(t, string(raw), `"iat":`)
	assert.Contains(t, string(raw), `"exp":`)
}

func mutateAt(s string, i int) string {
	b := []byte(s)
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

func TestCodec_TamperedPayloadRejected(t *testing.T) {
	c, _ := newTestCodec(t)

	tok, err := c.Issue(aliceClaims())
	require.NoError(t, err)
	payload, sig, _ := strings.Cut(tok, ".")

	for i := range payload {
		tampered := mutateAt(payload, i) + "." + sig
		_, ok := c.Verify(tampered)
		require.Falsef(t, ok, "payload mutation at %d accepted", i)
	}
}

func TestCodec_TamperedSignatureRejected(t *testing.T) {
	c, _ := newTestCodec(t)

	tok, err := c.Issue(aliceClaims())
	require.NoError(t, err)
	payload, sig, _ := strings.Cut(tok, ".")

	for i := range sig {
		tampered := payload + "." + mutateAt(sig, i)
		_, ok := c.Verify(tampered)
		require.Falsef(t, ok, "signature mutation at %d accepted", i)
	}
}

func TestCodec_Expired(t *testing.T) {
	c, clk := newTestCodec(t)

	tok, err := c.Issue(aliceClaims())
	require.NoError(t, err)

	clk.Advance(TokenTTL)
	_, ok := c.Verify(tok)
	assert.True(t, ok, "token is still valid at exactly exp")

	clk.Advance(time.Millisecond)
	_, ok = c.Verify(tok)
	assert.False(t, ok)
}

func TestCodec_Malformed(t *testing.T) {
	c, _ := newTestCodec(t)

	cases := []string{
		"",
		".",
		"not-a-valid-token",
		"a.b.c",
		"abc.",
		".abc",
		"eyJpZCI6IjEifQ==.sig.extra",
	}
	for _, tc := range cases {
		assert.NotPanics(t, func() {
			_, ok := c.Verify(tc)
			assert.Falsef(t, ok, "accepted %q", tc)
		})
	}
}

func TestCodec_SignedGarbageRejected(t *testing.T) {
	c, _ := newTestCodec(t)

	signed := func(payload string) string {
		return payload + "." + token.SignHMACSHA256Base64(payload, testSecret)
	}

	notBase64 := signed("!!!not-base64!!!")
	notJSON := signed(base64.StdEncoding.EncodeToString([]byte("not json")))
	noExp := signed(base64.StdEncoding.EncodeToString([]byte(`{"id":"1","email":"a@b.c"}`)))

	for _, tok := range []string{notBase64, notJSON, noExp} {
		_, ok := c.Verify(tok)
		assert.False(t, ok)
	}
}

func TestCodec_OtherSecretRejected(t *testing.T) {
	c, _ := newTestCodec(t)
	other, err := NewCodec([]byte("another-secret-0123456789-abcdefgh"))
	require.NoError(t, err)

	tok, err := other.Issue(aliceClaims())
	require.NoError(t, err)

	_, ok := c.Verify(tok)
	assert.False(t, ok)
}

func TestNewCodec_EmptySecret(t *testing.T) {
	_, err := NewCodec(nil)
	require.ErrorIs(t, err, ErrConfig)
}
