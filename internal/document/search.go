package document

import (
	"context"
	"fmt"
	"strconv"

	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/sibylhq/sibyl/internal/log"
)

// SearchLoader builds one document per web-search result from its
// snippet fields, using Google Programmable Search.
type SearchLoader struct {
	svc         *customsearch.Service
	engineID    string
	resultCount int
	logger      log.Logger
}

// NewSearchLoader creates a search-snippet loader.
// resultCount is clamped to the API maximum of 10 results per call.
func NewSearchLoader(ctx context.Context, apiKey, engineID string, resultCount int, logger log.Logger) (*SearchLoader, error) {
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create search service: %w", err)
	}

	if resultCount <= 0 || resultCount > 10 {
		resultCount = 10
	}

	return &SearchLoader{
		svc:         svc,
		engineID:    engineID,
		resultCount: resultCount,
		logger:      logger,
	}, nil
}

// Load runs the query against the search engine and synthesizes one
// document per result snippet, in result order. Each document carries
// source, title, author, and a positional source_id in its metadata.
// Zero results is a normal empty return, not an error.
func (l *SearchLoader) Load(ctx context.Context, query string) ([]Document, error) {
	resp, err := l.svc.Cse.List().
		Q(query).
		Cx(l.engineID).
		Num(int64(l.resultCount)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("search %q: %w: %v", query, ErrSourceUnavailable, err)
	}

	docs := make([]Document, 0, len(resp.Items))
	for i, item := range resp.Items {
		docs = append(docs, Document{
			ID:   "search-" + strconv.Itoa(i+1),
			Text: Normalize(item.Snippet),
			Metadata: map[string]string{
				MetaSource:   item.Link,
				MetaTitle:    item.Title,
				MetaAuthor:   item.DisplayLink,
				MetaSourceID: strconv.Itoa(i + 1),
			},
		})
	}

	l.logger.Debug("search results loaded", "query", query, "count", len(docs))
	return docs, nil
}
