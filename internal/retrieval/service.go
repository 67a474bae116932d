package retrieval

import (
	"context"
	"time"

	"docseek/apps/backend/internal/document"
	"docseek/apps/backend/internal/middleware"
)

type Searcher interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]document.Document, error)
}

type Service struct {
	store  Searcher
	logger *QueryLogger
}

func NewService(store Searcher, logger *QueryLogger) *Service {
	return &Service{store: store, logger: logger}
}

// Search runs a top-k similarity query and logs it. An uninitialized store
// yields an empty result, matching the store's own read semantics.
func (s *Service) Search(ctx context.Context, query string, k int) ([]document.Document, error) {
	start := time.Now()

	docs, err := s.store.SimilaritySearch(ctx, query, k)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:         query,
			K:             k,
			NumResults:    len(docs),
			Duration:      time.Since(start),
			CorrelationID: middleware.GetCorrelationID(ctx),
		})
	}
	return docs, nil
}
