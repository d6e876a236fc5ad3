// Package cmd provides the sibyl CLI commands.
//
// Commands:
//   - ask: answer a question against web pages or search results
//   - db: answer a question against the durable document collection
//   - index: load a JSONL corpus into the document collection
//   - clear: archive and reset the current conversation
//   - migrate: apply database schema migrations
//
// Conversation continuity across invocations uses a session id kept in
// ~/.sibyl/current_session, guarded by a file lock.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sibylhq/sibyl/internal/log"
)

// Execute is the entry point for the sibyl CLI.
func Execute() error {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level})

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "ask":
		return runAsk(os.Args[2:], logger)
	case "db":
		return runDB(os.Args[2:], logger)
	case "index":
		return runIndex(os.Args[2:], logger)
	case "clear":
		return runClear(os.Args[2:], logger)
	case "migrate":
		return runMigrate(logger)
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

func runHelp() {
	fmt.Println("Sibyl - retrieval-augmented question answering")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sibyl ask -urls <u1,u2,...> \"question\"   Answer from the given web pages")
	fmt.Println("  sibyl ask -search \"question\"             Answer from web search results")
	fmt.Println("  sibyl db [-owner id] \"question\"          Answer from the stored collection")
	fmt.Println("  sibyl db -list [-owner id]               List the stored documents")
	fmt.Println("  sibyl index [-owner id] <corpus.jsonl>   Load documents into the collection")
	fmt.Println("  sibyl clear [-name title]                Archive and reset the conversation")
	fmt.Println("  sibyl migrate                            Apply database schema migrations")
	fmt.Println("  sibyl version                            Show version information")
	fmt.Println()
	fmt.Println("Follow-up questions share a conversation; the session id is kept")
	fmt.Println("in ~/.sibyl/current_session until 'sibyl clear'.")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY            Required: Gemini API key")
	fmt.Println("  DATABASE_URL              Optional: PostgreSQL connection URL")
	fmt.Println("  GOOGLE_SEARCH_API_KEY     Optional: enables 'ask -search'")
	fmt.Println("  GOOGLE_SEARCH_ENGINE_ID   Optional: enables 'ask -search'")
	fmt.Println("  DEBUG                     Optional: enable debug logging")
}
