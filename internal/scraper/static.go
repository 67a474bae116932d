package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"docseek/apps/backend/internal/document"
)

// staticMinContentLength is lower than the renderer's threshold: the static
// strategy is the last resort, and the meta-tag fallback below covers pages
// whose body only fills in client-side.
const staticMinContentLength = 50

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Static fetches a page with a plain HTTP GET and parses the raw HTML.
type Static struct {
	client *http.Client
}

func NewStatic(timeout time.Duration) *Static {
	return &Static{client: &http.Client{Timeout: timeout}}
}

func (s *Static) Name() string { return "static" }

func (s *Static) Fetch(ctx context.Context, url string) (*document.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}

	html := string(body)
	ext, err := extractContent(html)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", url, err)
	}

	text := ext.Text
	if len(text) < staticMinContentLength {
		if meta := metaFallback(html); len(meta) > len(text) {
			text = meta
		}
	}
	if len(text) < staticMinContentLength {
		return nil, fmt.Errorf("%w: %d chars from %s", ErrContentTooShort, len(text), url)
	}

	return buildDocument(url, ext.Title, text, s.Name()), nil
}
