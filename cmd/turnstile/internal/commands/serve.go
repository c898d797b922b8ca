package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/layer-3/turnstile/adapters/events"
	"github.com/layer-3/turnstile/internal/logger"
	"github.com/layer-3/turnstile/internal/telemetry"
	"github.com/layer-3/turnstile/ports"
	"github.com/layer-3/turnstile/service"
	transport "github.com/layer-3/turnstile/transport/http"
)

type ServeCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:9000" env:"TURNSTILE_LISTEN"`
	Cert   string `help:"path to TLS cert file" default:"" env:"TURNSTILE_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"TURNSTILE_TLS_KEY"`

	Password string `help:"shared secret accepted in the Authorization header" required:"" env:"TURNSTILE_PASSWORD"`

	CORSOrigins  []string `name:"cors-origins" help:"allowed CORS origins, also trusted for cross-origin POSTs" default:"https://localhost" env:"TURNSTILE_CORS_ORIGINS"`
	InventoryURL string   `name:"inventory-url" help:"upstream inventory endpoint, proxying is disabled when empty" default:"" env:"TURNSTILE_INVENTORY_URL"`

	Events    string `help:"where session issued events go" default:"none" env:"TURNSTILE_EVENTS" enum:"none,redis"`
	Telemetry bool   `help:"export OpenTelemetry metrics" default:"false" env:"TURNSTILE_TELEMETRY"`

	Store StoreFlags `embed:""`
}

func (c *ServeCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	if !globals.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting turnstile")

	if c.Telemetry {
		shutdown, err := telemetry.InitTelemetry(ctx, "turnstile", globals.Version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	secret, err := service.NewSecret([]byte(c.Password))
	if err != nil {
		return fmt.Errorf("invalid password: %w", err)
	}

	opened, err := c.Store.Open(ctx, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := opened.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close credential store")
		}
	}()

	publisher, closePublisher, err := c.eventPublisher(ctx, log, opened)
	if err != nil {
		return err
	}
	defer closePublisher()

	verifier := service.NewVerifier(secret, opened.Store, publisher)

	var inventory *transport.InventoryProxy
	if c.InventoryURL != "" {
		inventory = transport.NewInventoryProxy(c.InventoryURL, nil)
	}

	handler, err := transport.NewHandler(transport.SetupRouter(verifier, inventory, log), c.CORSOrigins)
	if err != nil {
		return err
	}

	tls := c.Cert != "" || c.Key != ""
	if tls {
		if _, err := os.Stat(c.Cert); err != nil {
			return fmt.Errorf("TLS certificate not found at %s: %w", c.Cert, err)
		}
		if _, err := os.Stat(c.Key); err != nil {
			return fmt.Errorf("TLS key not found at %s: %w", c.Key, err)
		}
	} else {
		log.Warn().Msg("Serving plain HTTP, the __Host- session cookie needs a TLS terminating proxy in front")
	}

	srv := configureHTTPServer(c.Listen, handler)
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", c.Listen).Bool("tls", tls).Str("store", c.Store.StoreType).Msg("Listening")
		if tls {
			errCh <- srv.ListenAndServeTLS(c.Cert, c.Key)
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// eventPublisher builds the publisher for session issued events. Redis
// streams reuse the store's client when the store is Redis as well.
func (c *ServeCmd) eventPublisher(ctx context.Context, log zerolog.Logger, opened *openedStore) (ports.EventPublisher, func(), error) {
	if c.Events != "redis" {
		return events.NopPublisher{}, func() {}, nil
	}

	client := opened.Redis
	owned := false
	if client == nil {
		var err error
		client, err = connectRedis(ctx, log, c.Store.RedisURL, c.Store.ConnectTimeout)
		if err != nil {
			return nil, nil, err
		}
		owned = true
	}

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: client,
		},
		logger.NewWatermillAdapter(log),
	)
	if err != nil {
		if owned {
			client.Close()
		}
		return nil, nil, fmt.Errorf("failed to create Redis publisher: %w", err)
	}

	log.Info().Str("topic", events.SessionIssuedTopic).Msg("Publishing session events to Redis streams")
	return events.NewWatermillPublisher(publisher), func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close event publisher")
		}
		if owned {
			closeRedis(log, client)
		}
	}, nil
}

func closeRedis(log zerolog.Logger, client *redis.Client) {
	if err := client.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close Redis client")
	}
}
