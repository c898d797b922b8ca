package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/turnstile/core"
	"github.com/layer-3/turnstile/ports"
)

// RedisStore is a Redis implementation of the CredentialStore interface
type RedisStore struct {
	client *redis.Client
	tokens ports.TokenGenerator
	prefix string
	ttl    time.Duration
}

type redisRecord struct {
	ID        string    `json:"record_id"`
	Verified  bool      `json:"is_verified"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRedisStore creates a new Redis store. A zero ttl keeps records until
// they are removed out of band.
func NewRedisStore(client *redis.Client, tokens ports.TokenGenerator, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		tokens: tokens,
		prefix: "turnstile:session:",
		ttl:    ttl,
	}
}

func (s *RedisStore) key(token string) string {
	return s.prefix + token
}

// FindByToken looks up a session record in Redis
func (s *RedisStore) FindByToken(ctx context.Context, token string) core.LookupResult {
	val, err := s.client.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.NotFound()
	}
	if err != nil {
		return core.Failed(fmt.Errorf("failed to get session: %w", err))
	}

	var rec redisRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return core.Failed(fmt.Errorf("failed to unmarshal session: %w", err))
	}

	return core.Found(core.SessionRecord{
		ID:        rec.ID,
		Token:     token,
		Verified:  rec.Verified,
		CreatedAt: rec.CreatedAt,
	})
}

// CreateRecord stores a new session record. SETNX guards against the
// (improbable) reuse of an existing token.
func (s *RedisStore) CreateRecord(ctx context.Context, verified bool) (core.SessionRecord, error) {
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

	data, err := json.Marshal(redisRecord{
		ID:        record.ID,
		Verified:  record.Verified,
		CreatedAt: record.CreatedAt,
	})
	if err != nil {
		return core.SessionRecord{}, fmt.Errorf("failed to marshal session: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(token), data, s.ttl).Result()
	if err != nil {
		return core.SessionRecord{}, fmt.Errorf("failed to create session: %w", err)
	}
	if !ok {
		return core.SessionRecord{}, fmt.Errorf("token collision: %w", core.ErrStoreOperationFailed)
	}

	return record, nil
}

// Ping checks connectivity
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
