package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/layer-3/turnstile/adapters/store"
	"github.com/layer-3/turnstile/adapters/tokens"
	"github.com/layer-3/turnstile/ports"
	transport "github.com/layer-3/turnstile/transport/http"
)

// StoreFlags selects and configures the credential store
type StoreFlags struct {
	StoreType      string        `help:"credential store type" default:"memory" env:"TURNSTILE_STORE_TYPE" enum:"memory,redis,postgres,sqlite,bbolt"`
	RedisURL       string        `name:"redis-url" help:"Redis connection URL" default:"redis://localhost:6379/0" env:"TURNSTILE_REDIS_URL"`
	PostgresConn   string        `name:"postgres-conn-string" help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`
	SQLitePath     string        `name:"sqlite-path" help:"SQLite database file" default:"turnstile.db" env:"TURNSTILE_SQLITE_PATH"`
	BboltPath      string        `name:"bbolt-path" help:"BBolt database file" default:"turnstile.bolt" env:"TURNSTILE_BBOLT_PATH"`
	ConnectTimeout time.Duration `name:"connect-timeout" help:"how long to keep retrying the initial store connection" default:"30s"`
}

func (s *StoreFlags) Validate() error {
	if s.StoreType == "postgres" && s.PostgresConn == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

// openedStore is a connected credential store plus whatever must be released
// on shutdown
type openedStore struct {
	Store  ports.CredentialStore
	Redis  *redis.Client
	closer func() error
}

func (o *openedStore) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer()
}

// Open connects the configured store. Network stores are retried with
// exponential backoff until ConnectTimeout elapses.
func (s *StoreFlags) Open(ctx context.Context, log zerolog.Logger) (*openedStore, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	gen := tokens.NewRandomGenerator()

	switch s.StoreType {
	case "redis":
		client, err := connectRedis(ctx, log, s.RedisURL, s.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("Using Redis credential store")
		return &openedStore{
			Store:  store.NewRedisStore(client, gen, transport.SessionCookieLifetime),
			Redis:  client,
			closer: client.Close,
		}, nil

	case "postgres":
		pool, err := retryConnect(ctx, log, "postgres", s.ConnectTimeout, func() (*pgxpool.Pool, error) {
			return store.NewPostgresPool(ctx, s.PostgresConn)
		})
		if err != nil {
			return nil, err
		}
		pg := store.NewPostgresStore(pool, gen)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info().Msg("Using PostgreSQL credential store")
		return &openedStore{
			Store:  pg,
			closer: func() error { pool.Close(); return nil },
		}, nil

	case "sqlite":
		db, err := store.OpenSQLite(ctx, s.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", s.SQLitePath).Msg("Using SQLite credential store")
		return &openedStore{Store: store.NewSQLiteStore(db, gen), closer: db.Close}, nil

	case "bbolt":
		db, err := store.OpenBolt(s.BboltPath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", s.BboltPath).Msg("Using BBolt credential store")
		return &openedStore{Store: store.NewBoltStore(db, gen), closer: db.Close}, nil

	default:
		log.Warn().Msg("Using in-memory credential store, sessions are lost on restart")
		return &openedStore{Store: store.NewMemoryStore(gen)}, nil
	}
}

func connectRedis(ctx context.Context, log zerolog.Logger, url string, timeout time.Duration) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	_, err = retryConnect(ctx, log, "redis", timeout, func() (string, error) {
		return client.Ping(ctx).Result()
	})
	if err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func retryConnect[T any](ctx context.Context, log zerolog.Logger, name string, timeout time.Duration, op backoff.Operation[T]) (T, error) {
	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(timeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Str("store", name).Dur("retry_in", next).Msg("Store not reachable, retrying")
		}),
	)
	if err != nil {
		return res, fmt.Errorf("failed to connect to %s: %w", name, err)
	}
	return res, nil
}
