package identity

import (
	"net/url"
	"strings"
)

// NormalizeEmail performs case-insensitive canonicalization.
// Login lookups and the uniqueness constraint both use the normalized form.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeFullName collapses inner whitespace runs and trims the ends.
func NormalizeFullName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

const avatarBaseURL = "https://ui-avatars.com/api/?name="

// DefaultAvatarURL returns the generated-initials avatar for a new profile.
func DefaultAvatarURL(fullName string) string {
	return avatarBaseURL + url.QueryEscape(NormalizeFullName(fullName))
}
