package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"docseek/apps/backend/internal/document"
)

// rendererMinContentLength is the acceptance threshold for rendered pages.
// Below it the chain falls through to the static strategy.
const rendererMinContentLength = 100

// Renderer fetches pages through headless Chromium so JS-rendered content
// is present in the captured HTML. The browser is launched lazily on the
// first fetch and reused; each fetch gets its own browser context.
type Renderer struct {
	timeout time.Duration

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	initErr error
	started bool
}

func NewRenderer(timeout time.Duration) *Renderer {
	return &Renderer{timeout: timeout}
}

func (r *Renderer) Name() string { return "renderer" }

func (r *Renderer) Fetch(ctx context.Context, url string) (*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browser, err := r.ensureBrowser()
	if err != nil {
		return nil, fmt.Errorf("renderer unavailable: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(userAgent),
	})
	if err != nil {
		return nil, fmt.Errorf("creating browser context: %w", err)
	}
	defer bctx.Close()

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("creating page: %w", err)
	}

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(r.timeout.Milliseconds())),
	}); err != nil {
		return nil, fmt.Errorf("navigating to %s: %w", url, err)
	}

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("capturing %s: %w", url, err)
	}

	ext, err := extractContent(html)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", url, err)
	}
	if len(ext.Text) < rendererMinContentLength {
		return nil, fmt.Errorf("%w: %d chars from %s", ErrContentTooShort, len(ext.Text), url)
	}

	return buildDocument(url, ext.Title, ext.Text, r.Name()), nil
}

// ensureBrowser launches the shared headless browser once. A failed launch
// is remembered so every subsequent fetch falls straight through to the
// next strategy instead of paying the startup cost again.
func (r *Renderer) ensureBrowser() (playwright.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return r.browser, r.initErr
	}
	r.started = true

	pw, err := playwright.Run()
	if err != nil {
		r.initErr = err
		return nil, err
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		_ = pw.Stop()
		r.initErr = err
		return nil, err
	}

	r.pw = pw
	r.browser = browser
	return browser, nil
}

// Close shuts down the shared browser, if it was ever started.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		if err := r.browser.Close(); err != nil {
			return err
		}
		r.browser = nil
	}
	if r.pw != nil {
		if err := r.pw.Stop(); err != nil {
			return err
		}
		r.pw = nil
	}
	return nil
}
