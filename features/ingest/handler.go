package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"docseek/apps/backend/internal/loader"
	"docseek/apps/backend/internal/middleware"
	"docseek/apps/backend/internal/vectorstore"
)

type Handler struct {
	service         *Service
	uploadDir       string
	maxUploadBytes  int64
	maxFailedInBody int
}

func NewHandler(service *Service, uploadDir string, maxUploadMB int64, maxFailedInBody int) *Handler {
	return &Handler{
		service:         service,
		uploadDir:       uploadDir,
		maxUploadBytes:  maxUploadMB << 20,
		maxFailedInBody: maxFailedInBody,
	}
}

// IngestDocs accepts one or more files under the "files" multipart field.
// Every filename must carry a supported extension before any file is
// stored or processed; a single bad extension rejects the whole request.
func (h *Handler) IngestDocs(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", "Unable to parse upload, check file size", http.StatusBadRequest)
		return
	}

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["files"]
	}
	if len(headers) == 0 {
		h.writeError(r.Context(), w, "BAD_REQUEST", "No files provided", http.StatusBadRequest)
		return
	}

	for _, header := range headers {
		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !loader.SupportedExt(ext) {
			msg := fmt.Sprintf("Unsupported file type %q, supported: %s",
				header.Filename, strings.Join(loader.Extensions(), ", "))
			h.writeError(r.Context(), w, "BAD_REQUEST", msg, http.StatusBadRequest)
			return
		}
	}

	if err := os.MkdirAll(h.uploadDir, 0o750); err != nil {
		slog.Error("failed to create upload directory", "error", err, "path", filepath.Clean(h.uploadDir))
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Failed to create upload directory", http.StatusInternalServerError)
		return
	}

	var files []UploadedFile
	for _, header := range headers {
		path, err := h.saveUpload(header)
		if err != nil {
			slog.Error("failed to save uploaded file", "error", err, "file", header.Filename)
			h.writeError(r.Context(), w, "INTERNAL_ERROR", "Failed to save file", http.StatusInternalServerError)
			return
		}
		files = append(files, UploadedFile{Path: path, Name: filepath.Base(header.Filename)})
	}

	report, err := h.service.IngestFiles(r.Context(), files)
	if err != nil {
		slog.Error("file ingestion failed", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.writeReport(w, report)
}

func (h *Handler) saveUpload(header *multipart.FileHeader) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	filename := fmt.Sprintf("%s_%s", uuid.New().String(), filepath.Base(header.Filename))
	path := filepath.Clean(filepath.Join(h.uploadDir, filename))

	dst, err := os.Create(path) // #nosec G304 -- path is UUID-based plus sanitized basename
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return path, nil
}

// IngestURL scrapes a single page, or the whole site when scrape_full_site
// is set.
func (h *Handler) IngestURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL            string `json:"url"`
		ScrapeFullSite bool   `json:"scrape_full_site"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "URL is required", http.StatusBadRequest)
		return
	}

	report, err := h.service.IngestURL(r.Context(), req.URL, req.ScrapeFullSite)
	if err != nil {
		slog.Error("url ingestion failed", "error", err, "url", req.URL)
		h.writeError(r.Context(), w, "INGEST_FAILED", err.Error(), http.StatusBadGateway)
		return
	}

	h.writeReport(w, report)
}

func (h *Handler) IngestSitemap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Domain == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Domain is required", http.StatusBadRequest)
		return
	}

	report, err := h.service.IngestSitemap(r.Context(), req.Domain)
	if err != nil {
		slog.Error("sitemap ingestion failed", "error", err, "domain", req.Domain)
		h.writeError(r.Context(), w, "INGEST_FAILED", err.Error(), http.StatusBadGateway)
		return
	}

	h.writeReport(w, report)
}

// Scan triggers the folder monitor's pass over the watched directory.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	report := h.service.ScanFolder(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": report}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) ResetTracking(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetTracking(); err != nil {
		slog.Error("tracking reset failed", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"data": map[string]string{"status": StatusSuccess, "message": "Tracking data reset"},
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// DeleteSource removes indexed chunks by exact URL or by domain. At least
// one selector is required.
func (h *Handler) DeleteSource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL    string `json:"url"`
		Domain string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.service.DeleteSource(r.Context(), req.URL, req.Domain)
	if err != nil {
		if errors.Is(err, vectorstore.ErrNoSelector) {
			h.writeError(r.Context(), w, "VALIDATION_ERROR", "Either url or domain is required", http.StatusBadRequest)
			return
		}
		slog.Error("source deletion failed", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": report}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeReport truncates oversized failure lists before responding; the
// full list is always in the logs.
func (h *Handler) writeReport(w http.ResponseWriter, report *Report) {
	if len(report.Failed) > h.maxFailedInBody && h.maxFailedInBody > 0 {
		slog.Warn("failed sources truncated in response",
			"total", len(report.Failed), "shown", h.maxFailedInBody, "failed", report.Failed)
		trimmed := *report
		trimmed.Failed = report.Failed[:h.maxFailedInBody]
		trimmed.Message = fmt.Sprintf("%s (%d failed sources, first %d shown)",
			report.Message, len(report.Failed), h.maxFailedInBody)
		report = &trimmed
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": report}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
