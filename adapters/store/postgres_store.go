package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/layer-3/turnstile/core"
	"github.com/layer-3/turnstile/ports"
)

// PostgresStore is a PostgreSQL implementation of the CredentialStore interface
type PostgresStore struct {
	pool   *pgxpool.Pool
	tokens ports.TokenGenerator
}

// NewPostgresPool parses the connection string, opens a pool and verifies
// connectivity
func NewPostgresPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// NewPostgresStore creates a new PostgreSQL store on an open pool
func NewPostgresStore(pool *pgxpool.Pool, tokens ports.TokenGenerator) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		tokens: tokens,
	}
}

// Migrate applies the embedded schema migrations
func (s *PostgresStore) Migrate(ctx context.Context) error {
	migrations, err := loadMigrations("postgres")
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if _, err := s.pool.Exec(ctx, m.content); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}
		log.Debug().Str("migration", m.name).Msg("Applied migration")
	}

	return nil
}

// FindByToken looks up a session record by cookie string
func (s *PostgresStore) FindByToken(ctx context.Context, token string) core.LookupResult {
	query := `
		SELECT record_id::text, is_verified, created_at
		FROM sessions
		WHERE cookie_string = $1
	`

	record := core.SessionRecord{Token: token}
	err := s.pool.QueryRow(ctx, query, token).Scan(&record.ID, &record.Verified, &record.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.NotFound()
	}
	if err != nil {
		return core.Failed(mapPostgresError(err))
	}

	return core.Found(record)
}

// CreateRecord inserts a new session record
func (s *PostgresStore) CreateRecord(ctx context.Context, verified bool) (core.SessionRecord, error) {
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

	query := `
		INSERT INTO sessions (record_id, cookie_string, is_verified, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.pool.Exec(ctx, query, record.ID, record.Token, record.Verified, record.CreatedAt); err != nil {
		return core.SessionRecord{}, mapPostgresError(err)
	}

	return record, nil
}

// mapPostgresError maps PostgreSQL-specific errors to sentinel errors
func mapPostgresError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%w: %w", core.ErrStoreOperationFailed, err)
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("unique constraint violation: %s: %w", pgErr.ConstraintName, core.ErrStoreOperationFailed)
	case pgerrcode.UndefinedTable:
		return fmt.Errorf("schema missing, run migrations: %w", core.ErrStoreOperationFailed)
	default:
		return fmt.Errorf("postgres error [%s]: %s: %w", pgErr.Code, pgErr.Message, core.ErrStoreOperationFailed)
	}
}
