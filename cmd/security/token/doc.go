// Package token provides the signing primitives behind PedeAí session tokens.
//
// It is the single source of truth for:
// - loading the process-wide signing secret from the environment
// - HMAC-SHA256 signatures rendered in standard base64
// - constant-time signature comparison
//
// Environment:
// - PEDEAI_TOKEN_SECRET: required. There is no built-in fallback secret.
package token
