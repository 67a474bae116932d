package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// nonContentSelectors are stripped from the page before text extraction.
var nonContentSelectors = []string{
	"script", "style", "nav", "footer", "header", "aside", "noscript",
}

// mainContentSelectors are tried in order; the first match becomes the
// extraction root. Body is the fallback when none match.
var mainContentSelectors = []string{
	"main",
	"article",
	"[role=main]",
	".main-content",
	".content",
	"#content",
	".post-content",
	".entry-content",
}

type extraction struct {
	Title string
	Text  string
}

// extractContent parses HTML and pulls out the readable text: non-content
// tags are removed, a semantic main region is preferred over the whole
// body, and the result is normalized to non-blank lines.
func extractContent(html string) (*extraction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	for _, sel := range nonContentSelectors {
		doc.Find(sel).Remove()
	}

	root := doc.Find("body")
	for _, sel := range mainContentSelectors {
		if match := doc.Find(sel); match.Length() > 0 {
			root = match.First()
			break
		}
	}

	return &extraction{
		Title: title,
		Text:  normalizeLines(root.Text()),
	}, nil
}

// metaFallback collects og:title, og:description and the plain description
// meta tags. Used by the static strategy when main-content extraction comes
// up short on JS-heavy pages.
func metaFallback(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var parts []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}

	add(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	add(doc.Find(`meta[property="og:description"]`).AttrOr("content", ""))
	add(doc.Find(`meta[name="description"]`).AttrOr("content", ""))

	return strings.Join(parts, "\n")
}

func normalizeLines(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
