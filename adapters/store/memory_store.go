package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/turnstile/core"
	"github.com/layer-3/turnstile/ports"
)

// MemoryStore is an in-memory implementation of the CredentialStore interface
type MemoryStore struct {
	records map[string]core.SessionRecord
	tokens  ports.TokenGenerator
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(tokens ports.TokenGenerator) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]core.SessionRecord),
		tokens:  tokens,
	}
}

// FindByToken looks up a session record by its token
func (s *MemoryStore) FindByToken(ctx context.Context, token string) core.LookupResult {
	if err := ctx.Err(); err != nil {
		return core.Failed(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[token]
	if !exists {
		return core.NotFound()
	}

	return core.Found(record)
}

// CreateRecord mints a new session record
func (s *MemoryStore) CreateRecord(ctx context.Context, verified bool) (core.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return core.SessionRecord{}, err
	}

	token, err := s.tokens.NewToken()
	if err != nil {
		return core.SessionRecord{}, err
	}

	record := core.SessionRecord{
		ID:        s.tokens.NewID(),
		Token:     token,
		Verified:  verified,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[token]; exists {
		return core.SessionRecord{}, core.ErrStoreOperationFailed
	}
	s.records[token] = record

	return record, nil
}

// Put inserts a record as is, keeping its token. Used to seed fixtures.
func (s *MemoryStore) Put(record core.SessionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.Token] = record
}

// Len returns the number of stored records
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}
