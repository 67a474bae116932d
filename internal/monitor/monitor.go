// Package monitor tracks a content-hash fingerprint per file in the
// watched documents folder and drives re-ingestion: new files are added
// incrementally, while any modification triggers a full index rebuild.
// The store has no stable per-document deletion key for local files prior
// to re-ingestion, so rebuilding wholesale is what keeps stale chunks out.
package monitor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"docseek/apps/backend/internal/document"
	"docseek/apps/backend/internal/loader"
)

// TrackingFile sits inside the watched folder and maps filename→hex hash.
const TrackingFile = ".processed_files.json"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Store interface {
	AddDocuments(ctx context.Context, chunks []document.Document) (int, error)
	Reset() error
}

type FileLoader interface {
	LoadFile(path string) ([]document.Document, error)
}

type Chunker interface {
	SplitDocuments(docs []document.Document) []document.Document
}

type Report struct {
	Status             string   `json:"status"`
	Message            string   `json:"message"`
	DocumentsProcessed int      `json:"documents_processed"`
	ChunksCreated      int      `json:"chunks_created"`
	Files              []string `json:"files"`
}

type Monitor struct {
	folder  string
	loader  FileLoader
	chunker Chunker
	store   Store

	tracked map[string]string
}

// New loads the tracking record from the watched folder. An unreadable
// tracking file is logged and treated as empty, never fatal.
func New(folder string, fl FileLoader, chunker Chunker, store Store) *Monitor {
	m := &Monitor{
		folder:  folder,
		loader:  fl,
		chunker: chunker,
		store:   store,
		tracked: make(map[string]string),
	}
	m.loadTracking()
	return m
}

func (m *Monitor) trackingPath() string {
	return filepath.Join(m.folder, TrackingFile)
}

func (m *Monitor) loadTracking() {
	data, err := os.ReadFile(m.trackingPath())
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to read tracking file, treating all files as new", "error", err)
		}
		return
	}
	if err := json.Unmarshal(data, &m.tracked); err != nil {
		slog.Error("tracking file corrupt, treating all files as new", "error", err)
		m.tracked = make(map[string]string)
		return
	}
	slog.Info("tracking data loaded", "files", len(m.tracked))
}

func (m *Monitor) saveTracking() error {
	if err := os.MkdirAll(m.folder, 0o750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m.tracked, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.trackingPath(), data, 0o644)
}

// ProcessNewDocuments scans the folder, classifies each supported file as
// new, modified or unchanged, and ingests accordingly. Pure additions are
// added incrementally; any modification rebuilds the whole index. Failures
// are folded into the report's status, never panics or partial state the
// caller has to unwind.
func (m *Monitor) ProcessNewDocuments(ctx context.Context) *Report {
	newFiles, modified, err := m.scan()
	if err != nil {
		slog.Error("folder scan failed", "folder", m.folder, "error", err)
		return &Report{Status: StatusError, Message: fmt.Sprintf("scanning folder: %v", err), Files: []string{}}
	}

	if len(newFiles) == 0 && len(modified) == 0 {
		slog.Info("no new or modified documents found")
		return &Report{Status: StatusSuccess, Message: "No new documents to process", Files: []string{}}
	}

	// A modified file means the store holds chunks from its old content.
	// There is no per-file deletion key for local files, so the only safe
	// move is a full rebuild from everything currently in the folder.
	if len(modified) > 0 {
		slog.Info("modified documents detected, rebuilding entire index", "modified", len(modified))
		return m.rebuild(ctx)
	}

	return m.addIncremental(ctx, newFiles)
}

func (m *Monitor) addIncremental(ctx context.Context, paths []string) *Report {
	var chunks []document.Document
	var processed []string
	hashes := make(map[string]string)

	for _, path := range paths {
		name := filepath.Base(path)
		docs, err := m.loader.LoadFile(path)
		if err != nil {
			slog.Error("skipping file", "file", name, "error", err)
			continue
		}
		hash, err := hashFile(path)
		if err != nil {
			slog.Error("skipping file, hash failed", "file", name, "error", err)
			continue
		}
		fileChunks := m.chunker.SplitDocuments(docs)
		slog.Info("processed document", "file", name, "chunks", len(fileChunks))
		chunks = append(chunks, fileChunks...)
		processed = append(processed, name)
		hashes[name] = hash
	}

	if len(chunks) == 0 {
		return &Report{Status: StatusError, Message: "No documents could be processed successfully", Files: []string{}}
	}

	added, err := m.store.AddDocuments(ctx, chunks)
	if err != nil {
		slog.Error("failed to add chunks to index", "error", err)
		return &Report{Status: StatusError, Message: fmt.Sprintf("adding to index: %v", err), Files: []string{}}
	}

	for name, hash := range hashes {
		m.tracked[name] = hash
	}
	if err := m.saveTracking(); err != nil {
		slog.Error("failed to save tracking data", "error", err)
	}

	return &Report{
		Status:             StatusSuccess,
		Message:            fmt.Sprintf("Successfully processed %d new document(s)", len(processed)),
		DocumentsProcessed: len(processed),
		ChunksCreated:      added,
		Files:              processed,
	}
}

// rebuild reloads every supported file in the folder, clears the index and
// re-adds everything, then rewrites the tracking record from scratch.
// Partial progress is not rolled back on failure; the next scan retries.
func (m *Monitor) rebuild(ctx context.Context) *Report {
	paths, err := m.supportedFiles()
	if err != nil {
		return &Report{Status: StatusError, Message: fmt.Sprintf("scanning folder: %v", err), Files: []string{}}
	}
	if len(paths) == 0 {
		return &Report{Status: StatusSuccess, Message: "No documents to rebuild", Files: []string{}}
	}

	slog.Info("rebuilding index", "files", len(paths))

	var chunks []document.Document
	var processed []string
	fresh := make(map[string]string)

	for _, path := range paths {
		name := filepath.Base(path)
		docs, err := m.loader.LoadFile(path)
		if err != nil {
			slog.Error("skipping file during rebuild", "file", name, "error", err)
			continue
		}
		hash, err := hashFile(path)
		if err != nil {
			slog.Error("skipping file during rebuild, hash failed", "file", name, "error", err)
			continue
		}
		chunks = append(chunks, m.chunker.SplitDocuments(docs)...)
		processed = append(processed, name)
		fresh[name] = hash
	}

	if len(chunks) == 0 {
		return &Report{Status: StatusError, Message: "No documents could be loaded", Files: []string{}}
	}

	if err := m.store.Reset(); err != nil {
		slog.Error("failed to clear index for rebuild", "error", err)
		return &Report{Status: StatusError, Message: fmt.Sprintf("clearing index: %v", err), Files: []string{}}
	}

	added, err := m.store.AddDocuments(ctx, chunks)
	if err != nil {
		slog.Error("failed to re-add chunks during rebuild", "error", err)
		return &Report{Status: StatusError, Message: fmt.Sprintf("rebuilding index: %v", err), Files: []string{}}
	}

	m.tracked = fresh
	if err := m.saveTracking(); err != nil {
		slog.Error("failed to save tracking data", "error", err)
	}

	slog.Info("index rebuild complete", "documents", len(processed), "chunks", added)
	return &Report{
		Status:             StatusSuccess,
		Message:            fmt.Sprintf("Rebuilt index from %d document(s)", len(processed)),
		DocumentsProcessed: len(processed),
		ChunksCreated:      added,
		Files:              processed,
	}
}

// ResetTracking discards the tracking record entirely, in memory and on
// disk, so the next scan treats every file as new. The vector store itself
// is untouched.
func (m *Monitor) ResetTracking() error {
	m.tracked = make(map[string]string)
	if err := os.Remove(m.trackingPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	slog.Info("tracking data reset")
	return nil
}

// TrackedCount returns how many files the monitor currently tracks.
func (m *Monitor) TrackedCount() int {
	return len(m.tracked)
}

// scan classifies the folder's supported files against the tracking
// record. Unchanged files are excluded entirely.
func (m *Monitor) scan() (newFiles, modified []string, err error) {
	paths, err := m.supportedFiles()
	if err != nil {
		return nil, nil, err
	}

	for _, path := range paths {
		name := filepath.Base(path)
		hash, err := hashFile(path)
		if err != nil {
			slog.Error("failed to hash file", "file", name, "error", err)
			continue
		}
		prev, known := m.tracked[name]
		switch {
		case !known:
			slog.Info("new document found", "file", name)
			newFiles = append(newFiles, path)
		case prev != hash:
			slog.Info("modified document found", "file", name)
			modified = append(modified, path)
		}
	}
	return newFiles, modified, nil
}

func (m *Monitor) supportedFiles() ([]string, error) {
	if _, err := os.Stat(m.folder); os.IsNotExist(err) {
		slog.Info("creating documents folder", "folder", m.folder)
		if err := os.MkdirAll(m.folder, 0o750); err != nil {
			return nil, err
		}
		return nil, nil
	}

	dirEntries, err := os.ReadDir(m.folder)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range dirEntries {
		if e.IsDir() {
			continue
		}
		if loader.SupportedExt(strings.ToLower(filepath.Ext(e.Name()))) {
			paths = append(paths, filepath.Join(m.folder, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// hashFile fingerprints file content with streamed reads, so arbitrarily
// large files never load into memory at once.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
