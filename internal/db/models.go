// Package db provides SQLite persistence for dictate: a small key/value
// table for serialized state and a credentials table keyed by provider id.
package db

import "time"

// Entry is a row of the kv table.
type Entry struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

// Credential is a stored provider secret.
type Credential struct {
	ProviderID string
	Secret     string
	UpdatedAt  time.Time
}
