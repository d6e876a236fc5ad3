package rag

import (
	"context"
	"fmt"

	"github.com/sibylhq/sibyl/internal/knowledge"
)

// StoreRetriever adapts the durable knowledge store to the Retriever
// interface, converting cosine distance to the normalized relevance
// convention at the boundary.
type StoreRetriever struct {
	store   *knowledge.Store
	ownerID string
}

// NewStoreRetriever creates a retriever over the durable store. An
// empty ownerID searches the whole collection.
func NewStoreRetriever(store *knowledge.Store, ownerID string) *StoreRetriever {
	return &StoreRetriever{store: store, ownerID: ownerID}
}

// Retrieve runs a vector search and returns passages most-relevant
// first. The store already orders by ascending distance, which is
// descending relevance after conversion.
func (r *StoreRetriever) Retrieve(ctx context.Context, query string, topK int) ([]Passage, error) {
	opts := []knowledge.SearchOption{knowledge.WithTopK(topK)}
	if r.ownerID != "" {
		opts = append(opts, knowledge.WithOwner(r.ownerID))
	}

	results, err := r.store.Search(ctx, query, opts...)
	if err != nil {
		return nil, fmt.Errorf("search knowledge store: %w", err)
	}

	passages := make([]Passage, len(results))
	for i, res := range results {
		passages[i] = Passage{
			Document:  res.Document,
			Relevance: RelevanceFromDistance(res.Distance),
		}
	}
	return passages, nil
}
