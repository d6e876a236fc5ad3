package rag

import (
	"context"

	"github.com/sibylhq/sibyl/internal/document"
)

// Passage is one retrieved candidate for context assembly.
type Passage struct {
	Document document.Document
	// Relevance is the normalized relevance measure: higher is more
	// relevant. The in-memory index reports cosine similarity directly;
	// the durable store's cosine distance d maps to 1 - d.
	Relevance float64
}

// Retriever returns the topK most relevant passages for a query,
// sorted most-to-least relevant.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]Passage, error)
}

// Embedder produces a fixed-dimensionality vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RelevanceFromDistance converts a cosine distance (lower = closer,
// range [0, 2]) to the normalized relevance convention.
func RelevanceFromDistance(distance float64) float64 {
	return 1 - distance
}
