package rag

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/sibylhq/sibyl/internal/document"
	"github.com/sibylhq/sibyl/internal/log"
)

// Index is an ephemeral in-memory vector index. It is built once from a
// document batch and queried for the lifetime of a single request; no
// state survives the request.
//
// Index is not safe for concurrent mutation; build it fully before
// sharing it between goroutines.
type Index struct {
	embedder Embedder
	logger   log.Logger

	docs    []document.Document
	vectors [][]float32
}

// NewIndex creates an empty index over the given embedder.
func NewIndex(embedder Embedder, logger log.Logger) *Index {
	return &Index{embedder: embedder, logger: logger}
}

// Build embeds every document once and stores it, preserving input
// order. Build may be called repeatedly to extend the index.
func (ix *Index) Build(ctx context.Context, docs []document.Document) error {
	for _, doc := range docs {
		vec, err := ix.embedder.Embed(ctx, doc.Text)
		if err != nil {
			return fmt.Errorf("embed document %q: %w", doc.ID, err)
		}
		ix.docs = append(ix.docs, doc)
		ix.vectors = append(ix.vectors, vec)
	}

	ix.logger.Debug("index built", "documents", len(ix.docs))
	return nil
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int { return len(ix.docs) }

// Retrieve embeds the query once, scores every stored vector by cosine
// similarity, and returns the topK best passages sorted most-relevant
// first. Ties keep insertion order. No relevance cutoff is applied.
func (ix *Index) Retrieve(ctx context.Context, query string, topK int) ([]Passage, error) {
	if topK <= 0 || len(ix.docs) == 0 {
		return nil, nil
	}

	queryVec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	passages := make([]Passage, len(ix.docs))
	for i := range ix.docs {
		passages[i] = Passage{
			Document:  ix.docs[i],
			Relevance: cosineSimilarity(queryVec, ix.vectors[i]),
		}
	}

	sort.SliceStable(passages, func(a, b int) bool {
		return passages[a].Relevance > passages[b].Relevance
	})

	if topK < len(passages) {
		passages = passages[:topK]
	}
	return passages, nil
}

// cosineSimilarity returns the cosine of the angle between a and b,
// or 0 when either vector has zero magnitude or lengths differ.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
