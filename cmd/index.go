package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sibylhq/sibyl/internal/app"
	"github.com/sibylhq/sibyl/internal/config"
	"github.com/sibylhq/sibyl/internal/document"
	"github.com/sibylhq/sibyl/internal/log"
)

// runIndex loads a JSONL corpus file into the durable document
// collection. Re-indexing a file with stable ids updates in place.
func runIndex(args []string, logger log.Logger) error {
	fs := flag.NewFlagSet("index", flag.ContinueOnError)
	owner := fs.String("owner", "", "owner id recorded on every indexed document")
	collection := fs.String("collection", "", "index into this collection instead of the configured default")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return errors.New("usage: sibyl index [-owner id] <corpus.jsonl>")
	}
	path := fs.Arg(0)

	docs, err := document.LoadCorpusFile(path)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents in %s", path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if *collection != "" {
		cfg.Collection = *collection
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	for i, doc := range docs {
		if err := a.Knowledge.Add(ctx, doc, *owner); err != nil {
			return fmt.Errorf("indexing document %d of %d: %w", i+1, len(docs), err)
		}
	}

	total, err := a.Knowledge.Count(ctx, *owner)
	if err != nil {
		return fmt.Errorf("counting documents: %w", err)
	}

	fmt.Printf("Indexed %d documents (%d total in collection).\n", len(docs), total)
	return nil
}
