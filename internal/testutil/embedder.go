package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashEmbedder is a deterministic bag-of-words embedder for tests.
// Identical texts map to identical unit vectors, and texts sharing
// words land closer together, so similarity ordering is predictable
// without a live embedding model.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates an embedder emitting vectors of dim entries.
func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{dim: dim}
}

// Embed hashes each lowercase word into a bucket and normalizes the
// result to unit length. Never fails.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)

	h := fnv.New64a()
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h.Reset()
		_, _ = h.Write([]byte(word))
		vec[h.Sum64()%uint64(e.dim)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}
