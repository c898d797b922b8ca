package service

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/layer-3/turnstile/adapters/store"
	"github.com/layer-3/turnstile/adapters/tokens"
	"github.com/layer-3/turnstile/core"
)

const testSecret = "correct-secret"

func basic(secret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(secret))
}

func newTestSecret(t *testing.T) *Secret {
	t.Helper()
	secret, err := NewSecret([]byte(testSecret))
	require.NoError(t, err)
	return secret
}

// spyStore wraps a MemoryStore, counts calls and can be told to fail
type spyStore struct {
	*store.MemoryStore

	mu         sync.Mutex
	finds      int
	creates    int
	findErr    error
	createErr  error
	panicOnUse bool
}

func newSpyStore() *spyStore {
	return &spyStore{MemoryStore: store.NewMemoryStore(tokens.NewRandomGenerator())}
}

func (s *spyStore) FindByToken(ctx context.Context, token string) core.LookupResult {
	s.mu.Lock()
	s.finds++
	findErr, panicOnUse := s.findErr, s.panicOnUse
	s.mu.Unlock()

	if panicOnUse {
		panic("store exploded")
	}
	if findErr != nil {
		return core.Failed(findErr)
	}
	return s.MemoryStore.FindByToken(ctx, token)
}

func (s *spyStore) CreateRecord(ctx context.Context, verified bool) (core.SessionRecord, error) {
	s.mu.Lock()
	s.creates++
	createErr, panicOnUse := s.createErr, s.panicOnUse
	s.mu.Unlock()

	if panicOnUse {
		panic("store exploded")
	}
	if createErr != nil {
		return core.SessionRecord{}, createErr
	}
	return s.MemoryStore.CreateRecord(ctx, verified)
}

func (s *spyStore) calls() (finds, creates int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finds, s.creates
}

type publishedEvent struct {
	recordID string
	issuedAt time.Time
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) PublishSessionIssued(_ context.Context, recordID string, issuedAt time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{recordID: recordID, issuedAt: issuedAt})
	return nil
}

var errStoreDown = errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
