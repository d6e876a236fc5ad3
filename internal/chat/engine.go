package chat

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/sibylhq/sibyl/internal/conversation"
	"github.com/sibylhq/sibyl/internal/document"
	"github.com/sibylhq/sibyl/internal/knowledge"
	"github.com/sibylhq/sibyl/internal/log"
	"github.com/sibylhq/sibyl/internal/rag"
)

// NoDocumentsMessage is the user-facing response when database mode
// finds nothing to retrieve for the caller. Not an error.
const NoDocumentsMessage = "No documents found in your collection."

// NoSearchResultsMessage is the user-facing response when search mode
// gets zero results back. Not an error; no model call is made.
const NoSearchResultsMessage = "No search results found."

// Default knobs, overridable via Config.
const (
	DefaultTopKBrowser     = 3
	DefaultTopKDatabase    = 5
	DefaultDistanceCutoff  = 0.4
	DefaultMaxAnswerTokens = 400
)

// Sentinel errors for orchestrator operations.
var (
	// ErrModelCall indicates the language-model completion failed. The
	// user turn recorded before the call is not rolled back.
	ErrModelCall = errors.New("model call failed")

	// ErrNotConfigured indicates the requested mode has no backing
	// collaborator (e.g. database mode without a store).
	ErrNotConfigured = errors.New("mode not configured")
)

// Completer is the language-model completion service.
type Completer interface {
	Complete(ctx context.Context, system string, turns []conversation.Turn, maxTokens int) (string, error)
}

// URLLoader loads one document per URL, in input order.
type URLLoader interface {
	Load(ctx context.Context, urls []string) ([]document.Document, error)
}

// QueryLoader synthesizes documents from a web-search query.
type QueryLoader interface {
	Load(ctx context.Context, query string) ([]document.Document, error)
}

// Result is the outcome of one answered query.
type Result struct {
	Answer    string
	Sources   []string
	SessionID string
}

// Config contains the engine's collaborators and knobs.
type Config struct {
	WebLoader    URLLoader   // required for BrowserRAG
	SearchLoader QueryLoader // optional: enables SearchRAG
	Embedder     rag.Embedder
	Store        *knowledge.Store // optional: enables DatabaseRAG
	Registry     *conversation.Registry
	Completer    Completer
	Logger       log.Logger

	TopKBrowser     int
	TopKDatabase    int
	DistanceCutoff  float64
	MaxAnswerTokens int
	Persona         Persona

	// RateLimiter throttles model calls when set.
	RateLimiter *rate.Limiter
}

func (cfg *Config) validate() error {
	if cfg.Registry == nil {
		return errors.New("conversation registry is required")
	}
	if cfg.Completer == nil {
		return errors.New("completer is required")
	}
	if cfg.Embedder == nil {
		return errors.New("embedder is required")
	}
	return nil
}

func (cfg *Config) applyDefaults() {
	if cfg.TopKBrowser <= 0 {
		cfg.TopKBrowser = DefaultTopKBrowser
	}
	if cfg.TopKDatabase <= 0 {
		cfg.TopKDatabase = DefaultTopKDatabase
	}
	if cfg.DistanceCutoff <= 0 {
		cfg.DistanceCutoff = DefaultDistanceCutoff
	}
	if cfg.MaxAnswerTokens <= 0 {
		cfg.MaxAnswerTokens = DefaultMaxAnswerTokens
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
}

// Engine orchestrates the retrieval pipeline end to end.
// It is safe for concurrent use; each request is an independent unit of
// work and the only shared mutable state lives in the registry.
type Engine struct {
	cfg Config
}

// New creates an engine after validating required collaborators.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("chat engine config: %w", err)
	}
	cfg.applyDefaults()
	return &Engine{cfg: cfg}, nil
}

// BrowserRAG answers a query against an ephemeral index built from the
// given URLs. Nothing about the index outlives the call.
func (e *Engine) BrowserRAG(ctx context.Context, query string, urls []string, sessionID string) (Result, error) {
	if e.cfg.WebLoader == nil {
		return Result{}, fmt.Errorf("%w: browser mode needs a web loader", ErrNotConfigured)
	}

	docs, err := e.cfg.WebLoader.Load(ctx, urls)
	if err != nil {
		return Result{}, fmt.Errorf("load pages: %w", err)
	}
	return e.answerEphemeral(ctx, query, docs, urls, sessionID)
}

// SearchRAG answers a query against an ephemeral index built from
// web-search snippets for that same query.
func (e *Engine) SearchRAG(ctx context.Context, query, sessionID string) (Result, error) {
	if e.cfg.SearchLoader == nil {
		return Result{}, fmt.Errorf("%w: search mode needs a search loader", ErrNotConfigured)
	}

	docs, err := e.cfg.SearchLoader.Load(ctx, query)
	if err != nil {
		return Result{}, fmt.Errorf("load search results: %w", err)
	}

	// Zero results gets an explicit answer instead of a model call
	// over an empty context.
	if len(docs) == 0 {
		sessionID, _ = e.cfg.Registry.GetOrCreate(sessionID)
		e.cfg.Logger.Info("no search results", "session_id", sessionID)
		return Result{Answer: NoSearchResultsMessage, SessionID: sessionID}, nil
	}

	return e.answerEphemeral(ctx, query, docs, nil, sessionID)
}

func (e *Engine) answerEphemeral(ctx context.Context, query string, docs []document.Document, sourceURLs []string, sessionID string) (Result, error) {
	index := rag.NewIndex(e.cfg.Embedder, e.cfg.Logger)
	if err := index.Build(ctx, docs); err != nil {
		return Result{}, fmt.Errorf("build index: %w", err)
	}

	passages, err := index.Retrieve(ctx, query, e.cfg.TopKBrowser)
	if err != nil {
		return Result{}, fmt.Errorf("retrieve: %w", err)
	}

	// In-memory variant: top-k is already small, no relevance cutoff.
	assembled := rag.NewAssembler().Assemble(passages)

	res, err := e.answer(ctx, query, assembled, sessionID)
	if err != nil {
		return res, err
	}
	if len(res.Sources) == 0 {
		res.Sources = sourceURLs
	}
	return res, nil
}

// DatabaseRAG answers a query against the durable store, scoped to
// ownerID when non-empty. An owner with no stored documents gets the
// NoDocumentsMessage rather than an error, with no turns recorded.
func (e *Engine) DatabaseRAG(ctx context.Context, query, ownerID, sessionID string) (Result, error) {
	if e.cfg.Store == nil {
		return Result{}, fmt.Errorf("%w: database mode needs a knowledge store", ErrNotConfigured)
	}

	retriever := rag.NewStoreRetriever(e.cfg.Store, ownerID)
	passages, err := retriever.Retrieve(ctx, query, e.cfg.TopKDatabase)
	if err != nil {
		return Result{}, fmt.Errorf("retrieve: %w", err)
	}

	if len(passages) == 0 {
		sessionID, _ = e.cfg.Registry.GetOrCreate(sessionID)
		e.cfg.Logger.Info("no documents for owner", "owner", ownerID, "session_id", sessionID)
		return Result{Answer: NoDocumentsMessage, SessionID: sessionID}, nil
	}

	// Durable-store variant: strict cosine-distance cutoff, expressed
	// on the normalized relevance scale.
	assembled := rag.NewAssembler(
		rag.WithMinRelevance(rag.RelevanceFromDistance(e.cfg.DistanceCutoff)),
	).Assemble(passages)

	return e.answer(ctx, query, assembled, sessionID)
}

// Clear snapshots and empties the session's conversation memory.
// Clearing an unknown or empty session reports false, never an error.
func (e *Engine) Clear(ctx context.Context, sessionID, name string) bool {
	return e.cfg.Registry.SnapshotAndClear(ctx, sessionID, name)
}

// answer runs the model call for an assembled context. The user turn is
// recorded before the call and stays recorded if the call fails.
func (e *Engine) answer(ctx context.Context, query string, assembled rag.Context, sessionID string) (Result, error) {
	sessionID, sess := e.cfg.Registry.GetOrCreate(sessionID)
	system := SystemPrompt(assembled, e.cfg.Persona)

	sess.Append(conversation.RoleUser, query)
	turns := sess.Turns()

	if e.cfg.RateLimiter != nil {
		if err := e.cfg.RateLimiter.Wait(ctx); err != nil {
			return Result{SessionID: sessionID}, fmt.Errorf("%w: %v", ErrModelCall, err)
		}
	}

	answer, err := e.cfg.Completer.Complete(ctx, system, turns, e.cfg.MaxAnswerTokens)
	if err != nil {
		e.cfg.Logger.Error("model call failed",
			"session_id", sessionID,
			"error", err)
		return Result{SessionID: sessionID}, fmt.Errorf("%w: %v", ErrModelCall, err)
	}

	sess.Append(conversation.RoleAssistant, answer)
	e.cfg.Logger.Debug("answer generated",
		"session_id", sessionID,
		"sources", len(assembled.Sources),
		"answer_length", len(answer))

	return Result{Answer: answer, Sources: assembled.Sources, SessionID: sessionID}, nil
}
