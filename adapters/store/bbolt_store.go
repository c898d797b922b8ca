package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/layer-3/turnstile/core"
	"github.com/layer-3/turnstile/ports"
)

var sessionsBucket = []byte("sessions")

// BoltStore is a BBolt implementation of the CredentialStore interface.
// Records live in a single bucket keyed by token.
type BoltStore struct {
	db     *bbolt.DB
	tokens ports.TokenGenerator
}

type boltRecord struct {
	ID        string    `json:"record_id"`
	Verified  bool      `json:"is_verified"`
	CreatedAt time.Time `json:"created_at"`
}

// OpenBolt opens the database file and makes sure the sessions bucket exists
func OpenBolt(path string) (*bbolt.DB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sessions bucket: %w", err)
	}

	return db, nil
}

// NewBoltStore creates a new store on an open database
func NewBoltStore(db *bbolt.DB, tokens ports.TokenGenerator) *BoltStore {
	return &BoltStore{db: db, tokens: tokens}
}

// FindByToken looks up a session record by token
func (s *BoltStore) FindByToken(ctx context.Context, token string) core.LookupResult {
	if err := ctx.Err(); err != nil {
		return core.Failed(err)
	}

	var (
		rec   boltRecord
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		if b == nil {
			return fmt.Errorf("%s bucket missing: %w", sessionsBucket, core.ErrStoreOperationFailed)
		}
		data := b.Get([]byte(token))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return core.Failed(err)
	}
	if !found {
		return core.NotFound()
	}

	return core.Found(core.SessionRecord{
		ID:        rec.ID,
		Token:     token,
		Verified:  rec.Verified,
		CreatedAt: rec.CreatedAt,
	})
}

// CreateRecord stores a new session record
func (s *BoltStore) CreateRecord(ctx context.Context, verified bool) (core.SessionRecord, error) {
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

	data, err := json.Marshal(boltRecord{
		ID:        record.ID,
		Verified:  record.Verified,
		CreatedAt: record.CreatedAt,
	})
	if err != nil {
		return core.SessionRecord{}, err
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(sessionsBucket)
		if err != nil {
			return err
		}
		if b.Get([]byte(token)) != nil {
			return fmt.Errorf("token collision: %w", core.ErrStoreOperationFailed)
		}
		return b.Put([]byte(token), data)
	})
	if err != nil {
		return core.SessionRecord{}, err
	}

	return record, nil
}
