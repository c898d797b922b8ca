package ports

import (
	"context"

	"github.com/layer-3/turnstile/core"
)

// CredentialStore persists session records keyed by their opaque token
type CredentialStore interface {
	// FindByToken looks up a record. A missing record is core.NotFound,
	// never a failure.
	FindByToken(ctx context.Context, token string) core.LookupResult

	// CreateRecord generates a fresh token and persists a record for it
	CreateRecord(ctx context.Context, verified bool) (core.SessionRecord, error)
}
