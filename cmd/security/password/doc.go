// Package password provides password hashing and verification for PedeAí.
//
// It wraps bcrypt with a fixed work factor and includes:
// - Password policy validation (length bounds, optional weak-pattern rejection)
// - Verification that never errors on malformed hashes
//
// Security notes:
// - Hash strings are treated as untrusted input during Verify.
// - Verification refuses hashes whose cost exceeds MaxCost.
package password
