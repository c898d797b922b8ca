// Package store holds the CredentialStore implementations: an in-memory map
// for tests and development, Redis, PostgreSQL, SQLite and BBolt.
package store

import "github.com/layer-3/turnstile/ports"

var (
	_ ports.CredentialStore = (*MemoryStore)(nil)
	_ ports.CredentialStore = (*RedisStore)(nil)
	_ ports.CredentialStore = (*PostgresStore)(nil)
	_ ports.CredentialStore = (*SQLiteStore)(nil)
	_ ports.CredentialStore = (*BoltStore)(nil)
)
