package document

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/html"

	"github.com/sibylhq/sibyl/internal/log"
)

const defaultUserAgent = "sibyl/1.0 (+https://github.com/sibylhq/sibyl)"

// WebLoader fetches pages over HTTP and extracts their readable text.
// It is safe for concurrent use; each Load clones the base collector.
type WebLoader struct {
	collector *colly.Collector
	logger    log.Logger
}

// NewWebLoader creates a web loader with a shared base collector.
func NewWebLoader(logger log.Logger) *WebLoader {
	c := colly.NewCollector(
		colly.UserAgent(defaultUserAgent),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(30 * time.Second)

	return &WebLoader{collector: c, logger: logger}
}

// Load fetches every URL in order and returns one document per URL.
// The first fetch failure aborts the whole load wrapped in
// ErrSourceUnavailable; a page with no extractable content still yields
// a document with empty text.
func (l *WebLoader) Load(ctx context.Context, urls []string) ([]Document, error) {
	docs := make([]Document, 0, len(urls))
	for _, pageURL := range urls {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		doc, err := l.fetch(pageURL)
		if err != nil {
			return nil, fmt.Errorf("fetch %q: %w: %v", pageURL, ErrSourceUnavailable, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (l *WebLoader) fetch(pageURL string) (Document, error) {
	var (
		body     []byte
		fetchErr error
	)

	c := l.collector.Clone()
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	// Visit is synchronous on a non-async collector, so the callbacks
	// have fired by the time it returns.
	if err := c.Visit(pageURL); err != nil {
		return Document{}, err
	}
	if fetchErr != nil {
		return Document{}, fetchErr
	}

	text, title := extractText(body, pageURL)
	l.logger.Debug("fetched page",
		"url", pageURL,
		"bytes", len(body),
		"text_length", len(text))

	return Document{
		ID:   pageURL,
		Text: Normalize(text),
		Metadata: map[string]string{
			MetaSource: pageURL,
			MetaTitle:  title,
		},
	}, nil
}

// extractText pulls readable text and a title out of an HTML page.
// Readability handles article-shaped pages; anything it cannot parse
// falls back to a plain tag-stripping walk.
func extractText(body []byte, pageURL string) (text, title string) {
	parsed, _ := url.Parse(pageURL)

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err == nil {
		text = article.TextContent
		title = article.Title
	}

	if strings.TrimSpace(text) == "" {
		text = plainText(body)
	}
	if title == "" {
		if page, err := goquery.NewDocumentFromReader(bytes.NewReader(body)); err == nil {
			title = strings.TrimSpace(page.Find("title").First().Text())
		}
	}
	return text, title
}

// plainText strips markup from an HTML document, emitting newlines at
// block element boundaries so paragraph structure survives.
func plainText(body []byte) string {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "br", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
				b.WriteString("\n")
			}
		}
	}
	walk(root)

	return strings.TrimSpace(b.String())
}
