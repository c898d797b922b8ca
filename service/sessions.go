package service

import (
	"context"
	"fmt"

	"github.com/layer-3/turnstile/core"
	"github.com/layer-3/turnstile/ports"
)

// SessionService exposes the store operations that run outside of request
// verification, e.g. provisioning a record from the command line
type SessionService struct {
	store ports.CredentialStore
}

// NewSessionService creates a new session service
func NewSessionService(store ports.CredentialStore) *SessionService {
	return &SessionService{store: store}
}

// Create mints a record with an explicit verified flag
func (s *SessionService) Create(ctx context.Context, verified bool) (core.SessionRecord, error) {
	record, err := s.store.CreateRecord(ctx, verified)
	if err != nil {
		return core.SessionRecord{}, fmt.Errorf("failed to create session: %w", err)
	}
	return record, nil
}

// Inspect returns the record stored for token
func (s *SessionService) Inspect(ctx context.Context, token string) (core.SessionRecord, error) {
	res := s.store.FindByToken(ctx, token)
	switch res.Status {
	case core.LookupFound:
		return res.Record, nil
	case core.LookupNotFound:
		return core.SessionRecord{}, core.ErrSessionNotFound
	default:
		return core.SessionRecord{}, fmt.Errorf("failed to look up session: %w", res.Err)
	}
}
