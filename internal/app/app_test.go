package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docseek/apps/backend/internal/config"
	"docseek/apps/backend/internal/document"
	"docseek/apps/backend/internal/monitor"
)

// --- Stubs ---

type stubStore struct{}

func (stubStore) AddDocuments(context.Context, []document.Document) (int, error) { return 0, nil }
func (stubStore) DeleteBySource(context.Context, string, string) (int, int, error) {
	return 0, 0, nil
}
func (stubStore) SimilaritySearch(context.Context, string, int) ([]document.Document, error) {
	return []document.Document{}, nil
}
func (stubStore) Count() int        { return 7 }
func (stubStore) Initialized() bool { return true }

type stubMonitor struct{}

func (stubMonitor) ProcessNewDocuments(context.Context) *monitor.Report {
	return &monitor.Report{Status: monitor.StatusSuccess, Message: "No new documents to process", Files: []string{}}
}
func (stubMonitor) ResetTracking() error { return nil }
func (stubMonitor) TrackedCount() int    { return 2 }

type stubLoader struct{}

func (stubLoader) LoadFile(string) ([]document.Document, error) { return nil, nil }

type stubChunker struct{}

func (stubChunker) SplitDocuments(docs []document.Document) []document.Document { return docs }

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, url string) (*document.Document, error) {
	d := document.New("content", document.Metadata{Source: url})
	return &d, nil
}

type stubResolver struct{}

func (stubResolver) Resolve(context.Context, string) ([]string, error) { return nil, nil }

type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, string) (string, error) { return "answer", nil }

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := &config.Config{
		ServerPort:            8080,
		MaxUploadSizeMB:       50,
		UploadDir:             t.TempDir(),
		RetrievalK:            4,
		MaxFailedSourcesInRes: 20,
	}
	return New(cfg, Deps{
		Store:     stubStore{},
		Monitor:   stubMonitor{},
		Loader:    stubLoader{},
		Chunker:   stubChunker{},
		Fetcher:   stubFetcher{},
		Resolver:  stubResolver{},
		Generator: stubGenerator{},
	})
}

func TestHealthEndpoint(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStatsEndpoint(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(7), resp["data"]["documents"])
	assert.Equal(t, true, resp["data"]["store_initialized"])
	assert.Equal(t, float64(2), resp["data"]["watched_files"])
}

func TestScanEndpoint(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/ingest/scan", nil)
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No new documents to process")
}

func TestChatEndpoint(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hi"}`))
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "answer")
}

func TestMethodRouting(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/ingest/docs", nil)
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSHeadersOnResponse(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCorrelationIDMiddlewareApplied(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}
