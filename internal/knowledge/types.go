package knowledge

import (
	"time"

	"github.com/sibylhq/sibyl/internal/document"
)

// Result is a single similarity search hit.
type Result struct {
	Document document.Document
	// Distance is the raw cosine distance of the hit, in [0, 2].
	// Lower means more similar.
	Distance float64
}

// SearchOption configures a Search call using functional options.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK    int
	ownerID string
	timeout time.Duration
}

// WithTopK sets the maximum number of results. Default is 5.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithOwner restricts the search to documents owned by ownerID.
func WithOwner(ownerID string) SearchOption {
	return func(c *searchConfig) {
		c.ownerID = ownerID
	}
}

// WithTimeout overrides the per-query timeout. Default is 10 seconds.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    5,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
