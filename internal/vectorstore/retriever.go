package vectorstore

import (
	"context"

	"docseek/apps/backend/internal/document"
)

// Retriever is the handle handed to the chat layer for top-k retrieval.
type Retriever struct {
	store *Manager
	k     int
}

func (r *Retriever) Retrieve(ctx context.Context, query string) ([]document.Document, error) {
	return r.store.SimilaritySearch(ctx, query, r.k)
}

func (r *Retriever) K() int { return r.k }
