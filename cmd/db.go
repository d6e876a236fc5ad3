package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sibylhq/sibyl/internal/app"
	"github.com/sibylhq/sibyl/internal/chat"
	"github.com/sibylhq/sibyl/internal/config"
	"github.com/sibylhq/sibyl/internal/document"
	"github.com/sibylhq/sibyl/internal/log"
)

// runDB answers a question against the durable document collection,
// scoped to an owner when one is given. With -list it prints the
// stored documents instead of answering.
func runDB(args []string, logger log.Logger) error {
	fs := flag.NewFlagSet("db", flag.ContinueOnError)
	owner := fs.String("owner", "", "restrict retrieval to documents owned by this id")
	collection := fs.String("collection", "", "query this collection instead of the configured default")
	list := fs.Bool("list", false, "list the stored documents instead of answering a question")
	if err := fs.Parse(args); err != nil {
		return err
	}

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" && !*list {
		return errors.New("usage: sibyl db [-owner id] [-collection name] \"question\" | sibyl db -list [-owner id]")
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

	if *list {
		docs, err := a.Records.Load(ctx, *owner)
		if err != nil {
			return err
		}
		fmt.Print(formatDocumentList(docs))
		return nil
	}

	state, err := newSessionState()
	if err != nil {
		return err
	}
	rec, err := state.Load()
	if err != nil {
		return err
	}
	restoreSession(a.Registry, rec)

	res, err := a.Engine.DatabaseRAG(ctx, question, *owner, rec.SessionID)
	if err != nil {
		return err
	}

	if err := state.Save(captureSession(a.Registry, res.SessionID)); err != nil {
		logger.Warn("persisting session state", "error", err)
	}

	printResult(res)
	return nil
}

// formatDocumentList renders stored documents one per line with their
// title or source when the metadata carries one.
func formatDocumentList(docs []document.Document) string {
	if len(docs) == 0 {
		return chat.NoDocumentsMessage + "\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d documents:\n", len(docs))
	for _, doc := range docs {
		label := doc.Metadata[document.MetaTitle]
		if label == "" {
			label = doc.Source()
		}
		if label != "" {
			fmt.Fprintf(&b, "  - %s (%s)\n", doc.ID, label)
		} else {
			fmt.Fprintf(&b, "  - %s\n", doc.ID)
		}
	}
	return b.String()
}
