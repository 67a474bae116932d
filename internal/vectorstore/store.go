// Package vectorstore owns the on-disk similarity index: a flat
// cosine-similarity index persisted as two artifacts under the configured
// directory — index.bin (vectors and ids, gob-encoded) and docstore.json
// (the reverse id→chunk map). Every mutation persists synchronously before
// returning, so a successful call is durable.
//
// The store is not synchronized for concurrent writers; callers serialize
// mutating operations at the application level.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"docseek/apps/backend/internal/document"
	"docseek/apps/backend/internal/urlnorm"
)

const (
	indexFile    = "index.bin"
	docstoreFile = "docstore.json"
)

// ErrNoSelector is returned when DeleteBySource is called with neither a
// URL nor a domain. That is a caller error, not a no-op.
var ErrNoSelector = errors.New("delete requires a url or a domain")

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// entry ties an index id to its chunk and embedding. Ids are allocated
// monotonically and never reused after deletion within a process lifetime.
type entry struct {
	id     int64
	vector []float32
	doc    document.Document
}

type Manager struct {
	embedder Embedder
	path     string

	mu      sync.RWMutex
	entries []entry // nil means the store has never been created
	created bool
	nextID  int64
}

// NewManager loads any existing index from path. A corrupt or partial
// index is logged and treated as absent; the system always starts usable.
func NewManager(embedder Embedder, path string) *Manager {
	m := &Manager{embedder: embedder, path: path}

	if err := os.MkdirAll(path, 0o750); err != nil {
		slog.Error("failed to create index directory", "path", path, "error", err)
		return m
	}

	if err := m.load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Error("failed to load existing index, starting empty", "path", path, "error", err)
		} else {
			slog.Info("no existing index found, will create on first ingestion", "path", path)
		}
		m.entries = nil
		m.created = false
	} else {
		slog.Info("index loaded", "path", path, "chunks", len(m.entries))
	}
	return m
}

// AddDocuments embeds the chunks and appends them to the index, creating
// it if this is the first ingestion. Returns the number of chunks added.
func (m *Manager) AddDocuments(ctx context.Context, chunks []document.Document) (int, error) {
	if len(chunks) == 0 {
		slog.Warn("no documents to add")
		return 0, nil
	}

	added := make([]entry, 0, len(chunks))
	for _, chunk := range chunks {
		vec, err := m.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			return 0, fmt.Errorf("embedding chunk from %s: %w", chunk.Metadata.Source, err)
		}
		if len(vec) == 0 {
			return 0, fmt.Errorf("empty embedding for chunk from %s", chunk.Metadata.Source)
		}
		added = append(added, entry{vector: vec, doc: chunk})
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range added {
		added[i].id = m.nextID
		m.nextID++
	}
	m.entries = append(m.entries, added...)
	m.created = true

	if err := m.persist(); err != nil {
		return 0, fmt.Errorf("persisting index: %w", err)
	}

	slog.Info("documents added to index", "added", len(added), "total", len(m.entries))
	return len(added), nil
}

// SimilaritySearch returns the k nearest chunks to the query. A store that
// has never been created yields an empty result, not an error.
func (m *Manager) SimilaritySearch(ctx context.Context, query string, k int) ([]document.Document, error) {
	m.mu.RLock()
	created := m.created
	m.mu.RUnlock()
	if !created {
		slog.Warn("similarity search on uninitialized store")
		return []document.Document{}, nil
	}

	qvec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		score float64
		doc   document.Document
	}
	results := make([]scored, 0, len(m.entries))
	for _, e := range m.entries {
		results = append(results, scored{score: cosine(qvec, e.vector), doc: e.doc})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if k > len(results) {
		k = len(results)
	}
	docs := make([]document.Document, 0, k)
	for _, r := range results[:k] {
		docs = append(docs, r.doc)
	}
	return docs, nil
}

// Retriever returns a top-k retrieval handle for the chat layer, or nil
// when no index exists yet. Callers treat nil as "no knowledge base yet".
func (m *Manager) Retriever(k int) *Retriever {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.created {
		slog.Warn("retriever requested before any documents were ingested")
		return nil
	}
	return &Retriever{store: m, k: k}
}

// DeleteBySource removes every chunk whose source matches the given URL
// (exact, trailing slash ignored) or domain (normalized, subdomains
// included). At least one selector is required. Returns the number of
// chunks deleted and the number of distinct sources they came from.
func (m *Manager) DeleteBySource(ctx context.Context, url, domain string) (deleted, matched int, err error) {
	if url == "" && domain == "" {
		return 0, 0, ErrNoSelector
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.created {
		return 0, 0, nil
	}

	sources := make(map[string]struct{})
	kept := m.entries[:0]
	for _, e := range m.entries {
		if m.sourceMatches(e.doc.Metadata, url, domain) {
			deleted++
			sources[e.doc.Metadata.Source] = struct{}{}
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	matched = len(sources)

	if deleted == 0 {
		return 0, 0, nil
	}

	if err := m.persist(); err != nil {
		return deleted, matched, fmt.Errorf("persisting index after delete: %w", err)
	}

	slog.Info("chunks deleted from index", "deleted", deleted, "sources", matched, "url", url, "domain", domain)
	return deleted, matched, nil
}

func (m *Manager) sourceMatches(meta document.Metadata, url, domain string) bool {
	if url != "" && urlnorm.SameURL(meta.Source, url) {
		return true
	}
	if domain != "" {
		candidate := meta.Domain
		if candidate == "" {
			candidate = meta.Source
		}
		if urlnorm.MatchesDomain(candidate, domain) {
			return true
		}
	}
	return false
}

// Reset deletes the on-disk artifacts and clears in-memory state. The next
// AddDocuments call recreates the store from scratch.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	slog.Warn("clearing vector index", "path", m.path)
	for _, name := range []string{indexFile, docstoreFile} {
		if err := os.Remove(filepath.Join(m.path, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", name, err)
		}
	}
	m.entries = nil
	m.created = false
	return nil
}

// Count returns the number of indexed chunks.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Initialized reports whether an index exists.
func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.created
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return -1
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
