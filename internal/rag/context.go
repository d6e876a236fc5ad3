package rag

import (
	"fmt"
	"strings"

	"github.com/sibylhq/sibyl/internal/document"
)

// Context is the assembled model input: one bounded context string plus
// the structured source list backing it.
type Context struct {
	Text    string
	Sources []string
}

// Empty reports whether no passage survived assembly.
func (c Context) Empty() bool { return c.Text == "" }

// Assembler renders retained passages into a Context.
//
// The zero-option assembler retains every passage (in-memory variant).
// WithMinRelevance enables the durable-store cutoff: only passages with
// relevance strictly above the threshold are retained, the rest are
// silently dropped.
type Assembler struct {
	minRelevance float64
	cutoff       bool
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithMinRelevance enables the relevance cutoff. A passage is retained
// only when its relevance is strictly greater than min.
func WithMinRelevance(min float64) AssemblerOption {
	return func(a *Assembler) {
		a.minRelevance = min
		a.cutoff = true
	}
}

// NewAssembler creates an assembler.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble renders passages in result order as "Document {i}:" blocks
// and collects one attribution entry per retained passage, de-duplicated
// preserving first-seen order.
//
// Numbering follows the passage's position in the input sequence, so a
// dropped passage leaves a gap rather than renumbering later ones; an
// empty-text passage still consumes its slot.
func (a *Assembler) Assemble(passages []Passage) Context {
	var b strings.Builder
	var sources []string
	seen := make(map[string]struct{})

	for i, p := range passages {
		if a.cutoff && p.Relevance <= a.minRelevance {
			continue
		}

		fmt.Fprintf(&b, "Document %d:\n%s\n\n", i+1, p.Document.Text)

		attr := attribution(p.Document.Metadata)
		if attr == "" {
			continue
		}
		if _, dup := seen[attr]; dup {
			continue
		}
		seen[attr] = struct{}{}
		sources = append(sources, attr)
	}

	return Context{Text: b.String(), Sources: sources}
}

// attribution formats a structured source entry from document metadata.
// Returns "" when the metadata carries no attribution at all.
func attribution(meta map[string]string) string {
	var parts []string
	if title := meta[document.MetaTitle]; title != "" {
		parts = append(parts, "Title: "+title)
	}
	if source := meta[document.MetaSource]; source != "" {
		parts = append(parts, "Source: "+source)
	}
	if author := meta[document.MetaAuthor]; author != "" {
		parts = append(parts, "Author: "+author)
	}
	return strings.Join(parts, ", ")
}
