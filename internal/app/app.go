// Package app wires the feature handlers onto the HTTP mux and owns the
// server lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"docseek/apps/backend/features/chat"
	"docseek/apps/backend/features/ingest"
	"docseek/apps/backend/features/stats"
	"docseek/apps/backend/internal/config"
	"docseek/apps/backend/internal/middleware"
	"docseek/apps/backend/internal/retrieval"
)

// Deps carries the already-constructed core components. Everything here is
// built once in main and shared; the app only does routing and glue.
type Deps struct {
	Store       VectorStore
	Monitor     FolderMonitor
	Loader      ingest.FileLoader
	Chunker     ingest.Chunker
	Fetcher     ingest.Fetcher
	Resolver    ingest.URLResolver
	Generator   chat.Generator
	QueryLogger *retrieval.QueryLogger
}

type VectorStore interface {
	ingest.VectorStore
	retrieval.Searcher
	Count() int
	Initialized() bool
}

type FolderMonitor interface {
	ingest.FolderMonitor
	TrackedCount() int
}

type App struct {
	Handler http.Handler
	port    int
}

func New(cfg *config.Config, deps Deps) *App {
	ingestService := ingest.NewService(deps.Loader, deps.Chunker, deps.Fetcher, deps.Resolver, deps.Store, deps.Monitor)
	ingestHandler := ingest.NewHandler(ingestService, cfg.UploadDir, cfg.MaxUploadSizeMB, cfg.MaxFailedSourcesInRes)

	retrievalService := retrieval.NewService(deps.Store, deps.QueryLogger)

	chatService := chat.NewService(retrievalService, deps.Generator, cfg.RetrievalK)
	chatHandler := chat.NewHandler(chatService)

	statsHandler := stats.NewHandler(deps.Store, deps.Monitor)

	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()

	mux.Handle("POST /ingest/docs", middleware.CorrelationID(enableCORS(ingestHandler.IngestDocs)))
	mux.Handle("POST /ingest/url", middleware.CorrelationID(enableCORS(ingestHandler.IngestURL)))
	mux.Handle("POST /ingest/sitemap", middleware.CorrelationID(enableCORS(ingestHandler.IngestSitemap)))
	mux.Handle("POST /ingest/scan", middleware.CorrelationID(enableCORS(ingestHandler.Scan)))
	mux.Handle("POST /ingest/tracking/reset", middleware.CorrelationID(enableCORS(ingestHandler.ResetTracking)))
	mux.Handle("DELETE /ingest/source", middleware.CorrelationID(enableCORS(ingestHandler.DeleteSource)))

	mux.Handle("POST /chat", middleware.CorrelationID(enableCORS(chatHandler.Ask)))
	mux.Handle("DELETE /chat/sessions/{id}", middleware.CorrelationID(enableCORS(chatHandler.ClearSession)))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{Handler: mux, port: cfg.ServerPort}
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
