package document

import (
	"errors"
	"strings"
)

// Sentinel errors for loader failures.
var (
	// ErrSourceUnavailable indicates a network or database access failure.
	// A reachable source with zero content is not an error.
	ErrSourceUnavailable = errors.New("document source unavailable")
)

// Well-known metadata keys. Metadata is attribution-only and never
// influences ranking.
const (
	MetaSource   = "source"
	MetaTitle    = "title"
	MetaAuthor   = "author"
	MetaSourceID = "source_id"
)

// Document is one retrievable unit of text.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// Source returns the source attribution, or "" when absent.
func (d Document) Source() string {
	return d.Metadata[MetaSource]
}

// Normalize collapses every run of two or more consecutive blank lines
// into a single blank line. A line counts as blank when it contains only
// whitespace; kept lines are preserved verbatim. Normalize is idempotent.
func Normalize(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:1]
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" && strings.TrimSpace(kept[len(kept)-1]) == "" {
			continue
		}
		kept = append(kept, lines[i])
	}
	return strings.Join(kept, "\n")
}
