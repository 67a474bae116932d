package monitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docseek/apps/backend/internal/document"
	"docseek/apps/backend/internal/loader"
	"docseek/apps/backend/internal/text"
)

// --- Stub store ---

type stubStore struct {
	addCalls   int
	resetCalls int
	chunks     []document.Document
}

func (s *stubStore) AddDocuments(_ context.Context, chunks []document.Document) (int, error) {
	s.addCalls++
	s.chunks = append(s.chunks, chunks...)
	return len(chunks), nil
}

func (s *stubStore) Reset() error {
	s.resetCalls++
	s.chunks = nil
	return nil
}

func newTestMonitor(t *testing.T) (*Monitor, *stubStore, string) {
	t.Helper()
	folder := t.TempDir()
	store := &stubStore{}
	m := New(folder, loader.New(), text.NewSplitter(1000, 200), store)
	return m, store, folder
}

func writeDoc(t *testing.T, folder, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(folder, name), []byte(content), 0o644))
}

func TestMonitor_EmptyFolder(t *testing.T) {
	m, store, _ := newTestMonitor(t)

	report := m.ProcessNewDocuments(context.Background())
	assert.Equal(t, StatusSuccess, report.Status)
	assert.Equal(t, 0, report.DocumentsProcessed)
	assert.Equal(t, 0, store.addCalls)
}

func TestMonitor_CreatesMissingFolder(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "does", "not", "exist")
	m := New(folder, loader.New(), text.NewSplitter(1000, 200), &stubStore{})

	report := m.ProcessNewDocuments(context.Background())
	assert.Equal(t, StatusSuccess, report.Status)

	info, err := os.Stat(folder)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestMonitor_ProcessesNewFiles(t *testing.T) {
	m, store, folder := newTestMonitor(t)
	writeDoc(t, folder, "alpha.txt", "alpha content")
	writeDoc(t, folder, "beta.txt", "beta content")
	writeDoc(t, folder, "ignored.png", "not a document")

	report := m.ProcessNewDocuments(context.Background())
	assert.Equal(t, StatusSuccess, report.Status)
	assert.Equal(t, 2, report.DocumentsProcessed)
	assert.ElementsMatch(t, []string{"alpha.txt", "beta.txt"}, report.Files)
	assert.Equal(t, 1, store.addCalls)
	assert.Equal(t, 2, m.TrackedCount())

	// Tracking record lands inside the watched folder.
	_, err := os.Stat(filepath.Join(folder, TrackingFile))
	require.NoError(t, err)
}

func TestMonitor_SecondScanIsIdempotent(t *testing.T) {
	m, store, folder := newTestMonitor(t)
	writeDoc(t, folder, "alpha.txt", "alpha content")

	m.ProcessNewDocuments(context.Background())
	report := m.ProcessNewDocuments(context.Background())

	assert.Equal(t, StatusSuccess, report.Status)
	assert.Equal(t, 0, report.DocumentsProcessed)
	assert.Equal(t, 1, store.addCalls, "unchanged files must not be re-ingested")
	assert.Equal(t, 0, store.resetCalls)
}

func TestMonitor_PureAdditionIsIncremental(t *testing.T) {
	m, store, folder := newTestMonitor(t)
	writeDoc(t, folder, "alpha.txt", "alpha content")
	m.ProcessNewDocuments(context.Background())

	writeDoc(t, folder, "beta.txt", "beta content")
	report := m.ProcessNewDocuments(context.Background())

	assert.Equal(t, StatusSuccess, report.Status)
	assert.Equal(t, []string{"beta.txt"}, report.Files)
	assert.Equal(t, 0, store.resetCalls, "pure additions must not rebuild")
	assert.Equal(t, 2, store.addCalls)
	assert.Equal(t, 2, m.TrackedCount())
}

func TestMonitor_ModificationTriggersRebuild(t *testing.T) {
	m, store, folder := newTestMonitor(t)
	writeDoc(t, folder, "alpha.txt", "alpha content")
	writeDoc(t, folder, "beta.txt", "beta content")
	m.ProcessNewDocuments(context.Background())

	writeDoc(t, folder, "alpha.txt", "alpha content, revised")
	report := m.ProcessNewDocuments(context.Background())

	assert.Equal(t, StatusSuccess, report.Status)
	assert.Equal(t, 1, store.resetCalls, "modification must clear the index first")
	assert.Equal(t, 2, report.DocumentsProcessed, "rebuild re-ingests every file")
	assert.ElementsMatch(t, []string{"alpha.txt", "beta.txt"}, report.Files)

	// Re-ingested content reflects the new version.
	var found bool
	for _, c := range store.chunks {
		if c.Content == "alpha content, revised" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestMonitor_MixedNewAndModifiedRebuilds(t *testing.T) {
	m, store, folder := newTestMonitor(t)
	writeDoc(t, folder, "alpha.txt", "alpha content")
	m.ProcessNewDocuments(context.Background())

	writeDoc(t, folder, "alpha.txt", "alpha content, revised")
	writeDoc(t, folder, "beta.txt", "beta content")
	report := m.ProcessNewDocuments(context.Background())

	assert.Equal(t, 1, store.resetCalls)
	assert.Equal(t, 2, report.DocumentsProcessed)
}

func TestMonitor_UnreadableFileSkipped(t *testing.T) {
	m, _, folder := newTestMonitor(t)
	writeDoc(t, folder, "good.txt", "good content")
	// .doc that is not a zip container fails to load.
	writeDoc(t, folder, "broken.doc", "this is not an OOXML container")

	report := m.ProcessNewDocuments(context.Background())
	assert.Equal(t, StatusSuccess, report.Status)
	assert.Equal(t, []string{"good.txt"}, report.Files)
	assert.Equal(t, 1, m.TrackedCount(), "failed files stay untracked and retry next scan")
}

func TestMonitor_CorruptTrackingTreatedAsNew(t *testing.T) {
	folder := t.TempDir()
	writeDoc(t, folder, "alpha.txt", "alpha content")
	require.NoError(t, os.WriteFile(filepath.Join(folder, TrackingFile), []byte("{broken"), 0o644))

	store := &stubStore{}
	m := New(folder, loader.New(), text.NewSplitter(1000, 200), store)

	report := m.ProcessNewDocuments(context.Background())
	assert.Equal(t, StatusSuccess, report.Status)
	assert.Equal(t, 1, report.DocumentsProcessed)
}

func TestMonitor_TrackingSurvivesRestart(t *testing.T) {
	folder := t.TempDir()
	writeDoc(t, folder, "alpha.txt", "alpha content")

	store := &stubStore{}
	m := New(folder, loader.New(), text.NewSplitter(1000, 200), store)
	m.ProcessNewDocuments(context.Background())

	// A fresh monitor over the same folder sees the tracking record.
	m2 := New(folder, loader.New(), text.NewSplitter(1000, 200), store)
	assert.Equal(t, 1, m2.TrackedCount())

	report := m2.ProcessNewDocuments(context.Background())
	assert.Equal(t, 0, report.DocumentsProcessed)
	assert.Equal(t, 1, store.addCalls)
}

func TestMonitor_ResetTracking(t *testing.T) {
	m, store, folder := newTestMonitor(t)
	writeDoc(t, folder, "alpha.txt", "alpha content")
	m.ProcessNewDocuments(context.Background())
	require.Equal(t, 1, m.TrackedCount())

	require.NoError(t, m.ResetTracking())
	assert.Equal(t, 0, m.TrackedCount())

	_, err := os.Stat(filepath.Join(folder, TrackingFile))
	assert.True(t, os.IsNotExist(err))

	// Next scan re-processes everything, incrementally (nothing is
	// "modified" from the empty record's point of view).
	report := m.ProcessNewDocuments(context.Background())
	assert.Equal(t, 1, report.DocumentsProcessed)
	assert.Equal(t, 0, store.resetCalls)

	// Resetting twice is fine.
	require.NoError(t, m.ResetTracking())
}
