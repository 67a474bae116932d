// Package sitemap discovers the full set of page URLs for a domain by
// parsing sitemap.xml, including recursive sitemap indexes.
package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// urlSet is the <urlset> shape; locs come from <url><loc> entries.
type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// sitemapIndex is the <sitemapindex> shape; each loc is itself a sitemap.
type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

type Resolver struct {
	client *http.Client
}

func NewResolver(timeout time.Duration) *Resolver {
	return &Resolver{client: &http.Client{Timeout: timeout}}
}

// Resolve returns the unique page URLs reachable from a domain's sitemap.
// The input may be a bare domain, a site URL, or a direct sitemap URL.
// A failure fetching or parsing the top-level sitemap is terminal; failures
// inside recursive sub-sitemap fetches are logged and skipped.
func (r *Resolver) Resolve(ctx context.Context, domainOrURL string) ([]string, error) {
	sitemapURL := SitemapURL(domainOrURL)

	seen := make(map[string]struct{})
	if err := r.resolve(ctx, sitemapURL, seen); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(seen))
	for u := range seen {
		urls = append(urls, u)
	}
	return urls, nil
}

func (r *Resolver) resolve(ctx context.Context, sitemapURL string, seen map[string]struct{}) error {
	slog.Info("fetching sitemap", "url", sitemapURL)

	body, err := r.fetch(ctx, sitemapURL)
	if err != nil {
		return fmt.Errorf("fetching sitemap %s: %w", sitemapURL, err)
	}

	// A sitemap index delegates to sub-sitemaps; one broken sub-sitemap
	// must not sink the others.
	var index sitemapIndex
	if xml.Unmarshal(body, &index) == nil && len(index.Sitemaps) > 0 {
		slog.Info("sitemap index found", "url", sitemapURL, "sitemaps", len(index.Sitemaps))
		for _, sm := range index.Sitemaps {
			loc := strings.TrimSpace(sm.Loc)
			if loc == "" {
				continue
			}
			if err := r.resolve(ctx, loc, seen); err != nil {
				slog.Warn("skipping sub-sitemap", "url", loc, "error", err)
			}
		}
		return nil
	}

	var set urlSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return fmt.Errorf("parsing sitemap %s: %w", sitemapURL, err)
	}

	for _, u := range set.URLs {
		if loc := strings.TrimSpace(u.Loc); loc != "" {
			seen[loc] = struct{}{}
		}
	}
	return nil
}

func (r *Resolver) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 10<<20))
}

// SitemapURL builds the sitemap location for a domain: scheme prepended
// when missing, trailing slash stripped, /sitemap.xml appended unless the
// input already points at a sitemap resource.
func SitemapURL(domainOrURL string) string {
	s := strings.TrimSpace(domainOrURL)
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "https://" + s
	}
	s = strings.TrimRight(s, "/")
	if strings.HasSuffix(s, ".xml") {
		return s
	}
	return s + "/sitemap.xml"
}
