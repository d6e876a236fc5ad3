package knowledge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/sibylhq/sibyl/internal/document"
	"github.com/sibylhq/sibyl/internal/log"
)

// Querier is the subset of pgxpool.Pool the store needs. Consumer-defined
// so tests can swap in a fake without a live database.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Embedder produces a fixed-dimensionality vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

const (
	upsertSQL = `
INSERT INTO documents (id, collection, owner_id, content, metadata, embedding)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE
SET content = EXCLUDED.content,
    metadata = EXCLUDED.metadata,
    embedding = EXCLUDED.embedding`

	searchOwnerSQL = `
SELECT id, content, metadata, embedding <=> $1 AS distance
FROM documents
WHERE collection = $2 AND owner_id = $3
ORDER BY distance
LIMIT $4`

	searchAllSQL = `
SELECT id, content, metadata, embedding <=> $1 AS distance
FROM documents
WHERE collection = $2
ORDER BY distance
LIMIT $3`

	countOwnerSQL = `SELECT count(*) FROM documents WHERE collection = $1 AND owner_id = $2`

	deleteSQL = `DELETE FROM documents WHERE collection = $1 AND id = $2`
)

// Store persists documents with their embeddings and answers
// cosine-distance similarity queries.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db         Querier
	embedder   Embedder
	collection string
	logger     log.Logger
}

// New creates a store over the given collection.
func New(db Querier, embedder Embedder, collection string, logger log.Logger) *Store {
	return &Store{
		db:         db,
		embedder:   embedder,
		collection: collection,
		logger:     logger,
	}
}

// Add embeds the document text and upserts the row.
func (s *Store) Add(ctx context.Context, doc document.Document, ownerID string) error {
	vec, err := s.embedder.Embed(ctx, doc.Text)
	if err != nil {
		return fmt.Errorf("embed document %q: %w", doc.ID, err)
	}
	if len(vec) == 0 {
		return fmt.Errorf("empty embedding for document %q", doc.ID)
	}

	meta := doc.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	metadataJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata for document %q: %w", doc.ID, err)
	}

	embedding := pgvector.NewVector(vec)
	if _, err := s.db.Exec(ctx, upsertSQL,
		doc.ID, s.collection, ownerID, doc.Text, metadataJSON, embedding); err != nil {
		return fmt.Errorf("upsert document %q: %w", doc.ID, err)
	}

	s.logger.Debug("document stored",
		"id", doc.ID,
		"owner", ownerID,
		"content_length", len(doc.Text))
	return nil
}

// Search embeds the query and returns the topK nearest documents ordered
// by ascending cosine distance. No distance cutoff is applied here; the
// retrieval layer decides what is relevant enough.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	embedding := pgvector.NewVector(vec)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	var rows pgx.Rows
	if cfg.ownerID != "" {
		rows, err = s.db.Query(queryCtx, searchOwnerSQL, embedding, s.collection, cfg.ownerID, cfg.topK)
	} else {
		rows, err = s.db.Query(queryCtx, searchAllSQL, embedding, s.collection, cfg.topK)
	}
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			id       string
			content  string
			metadata []byte
			distance float64
		)
		if err := rows.Scan(&id, &content, &metadata, &distance); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}

		meta := map[string]string{}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &meta); err != nil {
				return nil, fmt.Errorf("decode metadata for document %q: %w", id, err)
			}
		}

		results = append(results, Result{
			Document: document.Document{ID: id, Text: content, Metadata: meta},
			Distance: distance,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}

	s.logger.Debug("vector search done",
		"top_k", cfg.topK,
		"owner", cfg.ownerID,
		"results", len(results))
	return results, nil
}

// Count returns the number of documents stored for ownerID.
func (s *Store) Count(ctx context.Context, ownerID string) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, countOwnerSQL, s.collection, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Delete removes a document by id. Deleting an absent id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, deleteSQL, s.collection, id); err != nil {
		return fmt.Errorf("delete document %q: %w", id, err)
	}
	return nil
}
