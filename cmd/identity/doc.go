// Package identity owns PedeAí user accounts: credentials (email and bcrypt hash)
// and the profile row created alongside them.
//
// It contains the store boundary used by the HTTP auth handlers, a PostgreSQL
// implementation, and an in-memory implementation for development and tests.
package identity
