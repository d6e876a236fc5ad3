package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sibylhq/sibyl/internal/app"
	"github.com/sibylhq/sibyl/internal/config"
	"github.com/sibylhq/sibyl/internal/log"
)

// runClear archives the current conversation and resets the stored
// session id. Clearing is best-effort: the conversation resets even
// when the archive write fails.
func runClear(args []string, logger log.Logger) error {
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
	name := fs.String("name", "", "title for the archived conversation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, err := newSessionState()
	if err != nil {
		return err
	}
	rec, err := state.Load()
	if err != nil {
		return err
	}
	if rec.SessionID == "" {
		fmt.Println("No active conversation.")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	// The registry starts empty every process; the persisted turns
	// are what the snapshot writes.
	restoreSession(a.Registry, rec)

	if a.Engine.Clear(ctx, rec.SessionID, *name) {
		fmt.Println("Conversation archived and cleared.")
	} else {
		fmt.Println("Nothing to clear.")
	}

	return state.Reset()
}
