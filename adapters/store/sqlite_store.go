package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/layer-3/turnstile/core"
	"github.com/layer-3/turnstile/ports"
)

// SQLiteStore is a SQLite implementation of the CredentialStore interface
type SQLiteStore struct {
	db     *sql.DB
	tokens ports.TokenGenerator
}

// OpenSQLite opens (or creates) the database file and applies migrations
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	for _, pragma := range []string{`PRAGMA journal_mode=WAL;`, `PRAGMA busy_timeout=5000;`} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %s: %w", pragma, err)
		}
	}

	migrations, err := loadMigrations("sqlite")
	if err != nil {
		db.Close()
		return nil, err
	}
	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m.content); err != nil {
			db.Close()
			return nil, fmt.Errorf("migration %s failed: %w", m.name, err)
		}
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite store on an open database
func NewSQLiteStore(db *sql.DB, tokens ports.TokenGenerator) *SQLiteStore {
	return &SQLiteStore{db: db, tokens: tokens}
}

// FindByToken looks up a session record by cookie string
func (s *SQLiteStore) FindByToken(ctx context.Context, token string) core.LookupResult {
	row := s.db.QueryRowContext(ctx,
		`SELECT record_id, is_verified, created_at FROM sessions WHERE cookie_string = ?`, token,
	)

	var (
		record    = core.SessionRecord{Token: token}
		createdAt int64
	)
	if err := row.Scan(&record.ID, &record.Verified, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.NotFound()
		}
		return core.Failed(fmt.Errorf("%w: %w", core.ErrStoreOperationFailed, err))
	}
	record.CreatedAt = time.Unix(createdAt, 0).UTC()

	return core.Found(record)
}

// CreateRecord inserts a new session record
func (s *SQLiteStore) CreateRecord(ctx context.Context, verified bool) (core.SessionRecord, error) {
	token, err := s.tokens.NewToken()
	if err != nil {
		return core.SessionRecord{}, err
	}

	record := core.SessionRecord{
		ID:        s.tokens.NewID(),
		Token:     token,
		Verified:  verified,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (record_id, cookie_string, is_verified, created_at) VALUES (?, ?, ?, ?)`,
		record.ID, record.Token, record.Verified, record.CreatedAt.Unix(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.SessionRecord{}, fmt.Errorf("token collision: %w", core.ErrStoreOperationFailed)
		}
		return core.SessionRecord{}, fmt.Errorf("%w: %w", core.ErrStoreOperationFailed, err)
	}

	return record, nil
}
