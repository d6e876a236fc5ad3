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
	"github.com/sibylhq/sibyl/internal/log"
)

// runAsk answers a question against an ephemeral index built from web
// pages or search results. Nothing is persisted except the snapshot on
// a later clear.
func runAsk(args []string, logger log.Logger) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	urlList := fs.String("urls", "", "comma-separated list of page URLs to read")
	useSearch := fs.Bool("search", false, "retrieve pages via web search instead of explicit URLs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		return errors.New("usage: sibyl ask [-urls u1,u2,...|-search] \"question\"")
	}
	if !*useSearch && *urlList == "" {
		return errors.New("provide -urls or -search")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	state, err := newSessionState()
	if err != nil {
		return err
	}
	rec, err := state.Load()
	if err != nil {
		return err
	}
	restoreSession(a.Registry, rec)

	var res chat.Result
	if *useSearch {
		res, err = a.Engine.SearchRAG(ctx, question, rec.SessionID)
	} else {
		urls := splitURLs(*urlList)
		res, err = a.Engine.BrowserRAG(ctx, question, urls, rec.SessionID)
	}
	if err != nil {
		return err
	}

	if err := state.Save(captureSession(a.Registry, res.SessionID)); err != nil {
		logger.Warn("persisting session state", "error", err)
	}

	printResult(res)
	return nil
}

func splitURLs(s string) []string {
	var urls []string
	for _, u := range strings.Split(s, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

func printResult(res chat.Result) {
	fmt.Println(res.Answer)
	if len(res.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, src := range res.Sources {
			fmt.Printf("  - %s\n", src)
		}
	}
}
