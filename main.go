package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docseek/apps/backend/internal/adapter/gemini"
	"docseek/apps/backend/internal/app"
	"docseek/apps/backend/internal/config"
	"docseek/apps/backend/internal/loader"
	"docseek/apps/backend/internal/logger"
	"docseek/apps/backend/internal/monitor"
	"docseek/apps/backend/internal/retrieval"
	"docseek/apps/backend/internal/scraper"
	"docseek/apps/backend/internal/sitemap"
	"docseek/apps/backend/internal/text"
	"docseek/apps/backend/internal/vectorstore"
)

func main() {
	// Initialize structured logger with correlation id propagation
	base := slog.NewJSONHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(logger.NewContextHandler(base)))

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Gemini client (embeddings + generation)
	geminiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel, cfg.GenerationModel)
	if err != nil {
		slog.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}
	defer geminiClient.Close()

	// 3. Core components
	store := vectorstore.NewManager(geminiClient, cfg.IndexPath)
	splitter := text.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	fileLoader := loader.New()
	folderMonitor := monitor.New(cfg.DocumentsFolder, fileLoader, splitter, store)

	// 4. Web fetching: JS renderer first when enabled, plain HTTP after
	var strategies []scraper.Strategy
	var renderer *scraper.Renderer
	if cfg.RendererEnabled {
		renderer = scraper.NewRenderer(time.Duration(cfg.RendererTimeoutSecs) * time.Second)
		strategies = append(strategies, renderer)
	}
	strategies = append(strategies, scraper.NewStatic(time.Duration(cfg.FetchTimeoutSecs)*time.Second))
	fetchChain := scraper.NewChain(strategies...)
	if renderer != nil {
		defer renderer.Close()
	}

	resolver := sitemap.NewResolver(time.Duration(cfg.SitemapTimeoutSecs) * time.Second)

	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}

	// 5. Process anything already sitting in the watched folder
	report := folderMonitor.ProcessNewDocuments(ctx)
	slog.Info("startup folder scan complete",
		"status", report.Status, "documents", report.DocumentsProcessed, "chunks", report.ChunksCreated)

	// 6. Wire and run
	a := app.New(cfg, app.Deps{
		Store:       store,
		Monitor:     folderMonitor,
		Loader:      fileLoader,
		Chunker:     splitter,
		Fetcher:     fetchChain,
		Resolver:    resolver,
		Generator:   geminiClient,
		QueryLogger: queryLogger,
	})

	if err := a.Run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
