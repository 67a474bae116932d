// Package ingest orchestrates every way content enters the vector store:
// uploaded files, the watched documents folder, single URLs and full-site
// sitemap crawls, plus source-scoped deletion.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"docseek/apps/backend/internal/document"
	"docseek/apps/backend/internal/monitor"
	"docseek/apps/backend/internal/urlnorm"
)

const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"
)

// Report is the aggregate result of a batch ingestion. Failures never
// abort a batch; they are collected here alongside the success counts.
type Report struct {
	Status             string   `json:"status"`
	Message            string   `json:"message"`
	DocumentsProcessed int      `json:"documents_processed"`
	ChunksCreated      int      `json:"chunks_created"`
	Sources            []string `json:"sources"`
	Failed             []string `json:"failed,omitempty"`
}

type DeleteReport struct {
	Deleted int `json:"deleted"`
	Matched int `json:"matched"`
}

// UploadedFile pairs the stored path with the client's original filename,
// which becomes the source metadata.
type UploadedFile struct {
	Path string
	Name string
}

type FileLoader interface {
	LoadFile(path string) ([]document.Document, error)
}

type Chunker interface {
	SplitDocuments(docs []document.Document) []document.Document
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*document.Document, error)
}

type URLResolver interface {
	Resolve(ctx context.Context, domainOrURL string) ([]string, error)
}

type VectorStore interface {
	AddDocuments(ctx context.Context, chunks []document.Document) (int, error)
	DeleteBySource(ctx context.Context, url, domain string) (deleted, matched int, err error)
}

type FolderMonitor interface {
	ProcessNewDocuments(ctx context.Context) *monitor.Report
	ResetTracking() error
}

type Service struct {
	loader   FileLoader
	chunker  Chunker
	fetcher  Fetcher
	resolver URLResolver
	store    VectorStore
	monitor  FolderMonitor
}

func NewService(loader FileLoader, chunker Chunker, fetcher Fetcher, resolver URLResolver, store VectorStore, mon FolderMonitor) *Service {
	return &Service{
		loader:   loader,
		chunker:  chunker,
		fetcher:  fetcher,
		resolver: resolver,
		store:    store,
		monitor:  mon,
	}
}

// IngestFiles loads, chunks and indexes uploaded files. A file that fails
// to load is recorded and skipped; the batch carries on.
func (s *Service) IngestFiles(ctx context.Context, files []UploadedFile) (*Report, error) {
	var chunks []document.Document
	var sources, failed []string

	for _, f := range files {
		docs, err := s.loader.LoadFile(f.Path)
		if err != nil {
			slog.Error("failed to process file", "file", f.Name, "error", err)
			failed = append(failed, f.Name)
			continue
		}
		// The stored path carries a generated prefix; the source the user
		// knows is the original filename.
		for i := range docs {
			docs[i].Metadata.Source = f.Name
		}
		fileChunks := s.chunker.SplitDocuments(docs)
		slog.Info("file chunked", "file", f.Name, "chunks", len(fileChunks))
		chunks = append(chunks, fileChunks...)
		sources = append(sources, f.Name)
	}

	if len(chunks) == 0 {
		return &Report{
			Status:  StatusError,
			Message: "No valid documents could be processed",
			Sources: []string{},
			Failed:  failed,
		}, nil
	}

	added, err := s.store.AddDocuments(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("adding documents to index: %w", err)
	}

	return batchReport(
		fmt.Sprintf("Successfully ingested %d document(s)", len(sources)),
		sources, failed, added), nil
}

// IngestURL scrapes a single page and indexes it, replacing any chunks
// previously ingested from the exact same URL. With fullSite set it crawls
// the whole domain via its sitemap instead.
func (s *Service) IngestURL(ctx context.Context, url string, fullSite bool) (*Report, error) {
	if fullSite {
		return s.IngestSitemap(ctx, url)
	}

	doc, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("could not scrape content from %s: %w", url, err)
	}

	// Re-ingesting a URL must not pile new chunks on top of old ones.
	if deleted, _, err := s.store.DeleteBySource(ctx, url, ""); err != nil {
		slog.Warn("failed to clear previous chunks before re-ingest", "url", url, "error", err)
	} else if deleted > 0 {
		slog.Info("replaced previous ingestion", "url", url, "stale_chunks", deleted)
	}

	chunks := s.chunker.SplitDocuments([]document.Document{*doc})
	added, err := s.store.AddDocuments(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("adding documents to index: %w", err)
	}

	return batchReport("Successfully ingested content from URL", []string{url}, nil, added), nil
}

// IngestSitemap resolves every page URL for a domain and fetches them one
// at a time. A failed fetch is recorded per URL; resolution failure is
// terminal. Existing chunks for the domain are replaced wholesale.
func (s *Service) IngestSitemap(ctx context.Context, domain string) (*Report, error) {
	urls, err := s.resolver.Resolve(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("resolving sitemap for %s: %w", domain, err)
	}
	if len(urls) == 0 {
		return &Report{
			Status:  StatusError,
			Message: fmt.Sprintf("No URLs found in sitemap for %s", domain),
			Sources: []string{},
		}, nil
	}

	// Deterministic crawl order; aggregation below stays order-independent.
	sort.Strings(urls)
	slog.Info("starting sitemap ingestion", "domain", domain, "urls", len(urls))

	var chunks []document.Document
	var sources, failed []string

	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("sitemap ingestion cancelled: %w", err)
		}
		doc, err := s.fetcher.Fetch(ctx, u)
		if err != nil {
			failed = append(failed, u)
			continue
		}
		chunks = append(chunks, s.chunker.SplitDocuments([]document.Document{*doc})...)
		sources = append(sources, u)
	}

	if len(chunks) == 0 {
		return &Report{
			Status:  StatusError,
			Message: fmt.Sprintf("No pages could be scraped from %s", domain),
			Sources: []string{},
			Failed:  failed,
		}, nil
	}

	// Same normalization as delete-by-domain, so a re-crawl fully replaces
	// the previous one instead of accumulating stale chunks.
	if deleted, _, err := s.store.DeleteBySource(ctx, "", urlnorm.Domain(domain)); err != nil {
		slog.Warn("failed to clear previous domain chunks", "domain", domain, "error", err)
	} else if deleted > 0 {
		slog.Info("replaced previous crawl", "domain", domain, "stale_chunks", deleted)
	}

	added, err := s.store.AddDocuments(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("adding documents to index: %w", err)
	}

	return batchReport(
		fmt.Sprintf("Ingested %d of %d page(s) from sitemap", len(sources), len(urls)),
		sources, failed, added), nil
}

// DeleteSource removes indexed chunks by exact URL or by domain. The
// precondition (at least one selector) is enforced by the store.
func (s *Service) DeleteSource(ctx context.Context, url, domain string) (*DeleteReport, error) {
	deleted, matched, err := s.store.DeleteBySource(ctx, url, domain)
	if err != nil {
		return nil, err
	}
	return &DeleteReport{Deleted: deleted, Matched: matched}, nil
}

// ScanFolder runs the folder monitor's incremental-or-rebuild pass.
func (s *Service) ScanFolder(ctx context.Context) *monitor.Report {
	return s.monitor.ProcessNewDocuments(ctx)
}

// ResetTracking wipes the monitor's tracking record; every watched file is
// treated as new on the next scan.
func (s *Service) ResetTracking() error {
	return s.monitor.ResetTracking()
}

func batchReport(message string, sources, failed []string, chunks int) *Report {
	status := StatusSuccess
	if len(failed) > 0 {
		status = StatusPartial
	}
	if sources == nil {
		sources = []string{}
	}
	return &Report{
		Status:             status,
		Message:            message,
		DocumentsProcessed: len(sources),
		ChunksCreated:      chunks,
		Sources:            sources,
		Failed:             failed,
	}
}
