// Package scraper fetches and extracts text content from web pages. It is
// organized as an ordered chain of fetch strategies: a JS-capable renderer
// first, then a plain HTTP GET with HTML parsing. The first strategy that
// yields enough content wins; a page that defeats every strategy is reported
// as failed without aborting the surrounding batch.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"docseek/apps/backend/internal/document"
	"docseek/apps/backend/internal/urlnorm"
)

// ErrContentTooShort marks a fetch that technically succeeded but produced
// less text than the strategy's acceptance threshold. It is logged apart
// from transport errors because it usually means the page needs the other
// strategy, not that the site is down.
var ErrContentTooShort = errors.New("extracted content too short")

type Strategy interface {
	Name() string
	Fetch(ctx context.Context, url string) (*document.Document, error)
}

type Chain struct {
	strategies []Strategy
}

func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// Fetch tries each strategy in order and returns the first success. All
// strategies failing yields a nil document and the last error; the caller
// records the URL as failed and continues.
func (c *Chain) Fetch(ctx context.Context, url string) (*document.Document, error) {
	if len(c.strategies) == 0 {
		return nil, errors.New("no fetch strategies configured")
	}

	var lastErr error
	for _, s := range c.strategies {
		doc, err := s.Fetch(ctx, url)
		if err == nil && doc != nil {
			slog.Info("fetched page", "url", url, "scraper", s.Name(), "chars", len(doc.Content))
			return doc, nil
		}
		if errors.Is(err, ErrContentTooShort) {
			slog.Warn("fetch yielded too little content", "url", url, "scraper", s.Name())
		} else {
			slog.Warn("fetch failed", "url", url, "scraper", s.Name(), "error", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all fetch strategies failed for %s: %w", url, lastErr)
}

// buildDocument stamps the standard web-page metadata on extracted text.
func buildDocument(url, title, text, scraperName string) *document.Document {
	doc := document.New(text, document.Metadata{
		Source:  url,
		Title:   title,
		Domain:  urlnorm.Domain(url),
		Type:    document.TypeWebPage,
		Scraper: scraperName,
	})
	return &doc
}
