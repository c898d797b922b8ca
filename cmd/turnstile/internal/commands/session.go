package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/layer-3/turnstile/core"
	"github.com/layer-3/turnstile/internal/logger"
	"github.com/layer-3/turnstile/service"
)

type SessionCmd struct {
	Create  SessionCreateCmd  `cmd:"" help:"Mint a session record and print its token"`
	Inspect SessionInspectCmd `cmd:"" help:"Show the record stored for a session token"`
}

type sessionOutput struct {
	RecordID  string    `json:"record_id"`
	Token     string    `json:"token,omitempty"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionCreateCmd struct {
	Verified bool `help:"mark the record as verified so the token grants access" default:"false"`

	Store StoreFlags `embed:""`
}

func (c *SessionCreateCmd) Run(ctx context.Context, globals *Globals) error {
	return c.run(ctx, logger.Setup(globals.Debug), os.Stdout)
}

func (c *SessionCreateCmd) run(ctx context.Context, log zerolog.Logger, out io.Writer) error {
	opened, err := c.Store.Open(ctx, log)
	if err != nil {
		return err
	}
	defer opened.Close()

	record, err := service.NewSessionService(opened.Store).Create(ctx, c.Verified)
	if err != nil {
		return err
	}

	return writeJSON(out, sessionOutput{
		RecordID:  record.ID,
		Token:     record.Token,
		Verified:  record.Verified,
		CreatedAt: record.CreatedAt,
	})
}

type SessionInspectCmd struct {
	Token string `arg:"" help:"session token (the __Host-session cookie value)"`

	Store StoreFlags `embed:""`
}

func (c *SessionInspectCmd) Run(ctx context.Context, globals *Globals) error {
	return c.run(ctx, logger.Setup(globals.Debug), os.Stdout)
}

func (c *SessionInspectCmd) run(ctx context.Context, log zerolog.Logger, out io.Writer) error {
	opened, err := c.Store.Open(ctx, log)
	if err != nil {
		return err
	}
	defer opened.Close()

	record, err := service.NewSessionService(opened.Store).Inspect(ctx, c.Token)
	if errors.Is(err, core.ErrSessionNotFound) {
		return fmt.Errorf("no session for token %q", c.Token)
	}
	if err != nil {
		return err
	}

	return writeJSON(out, sessionOutput{
		RecordID:  record.ID,
		Verified:  record.Verified,
		CreatedAt: record.CreatedAt,
	})
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
