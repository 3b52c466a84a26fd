package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/schemalens/schemalens-engine/pkg/apperrors"
	"github.com/schemalens/schemalens-engine/pkg/llm"
	"github.com/schemalens/schemalens-engine/pkg/models"
	"github.com/schemalens/schemalens-engine/pkg/vectorindex"
)

// TopK bounds for search requests. Values outside the range are a validation
// error, not a silent clamp.
const (
	MinTopK = 1
	MaxTopK = 100
)

// RunRecorder exposes the last successful run; search refuses to run before
// one exists. ExtractionService satisfies it.
type RunRecorder interface {
	LastSuccess() *models.RunSummary
}

// SearchService answers free-text queries over the indexed columns.
type SearchService interface {
	// Search embeds the query with the same model used at storage time and
	// returns up to topK columns reconstructed from the nearest stored
	// records. Parameter validation happens before any provider call.
	Search(ctx context.Context, query string, topK int) ([]models.Column, error)
}

type searchService struct {
	embedder llm.EmbeddingClient
	index    vectorindex.Index
	runs     RunRecorder
	logger   *zap.Logger
}

// NewSearchService creates a search service with dependencies.
func NewSearchService(embedder llm.EmbeddingClient, index vectorindex.Index, runs RunRecorder, logger *zap.Logger) SearchService {
	return &searchService{
		embedder: embedder,
		index:    index,
		runs:     runs,
		logger:   logger.Named("search"),
	}
}

func (s *searchService) Search(ctx context.Context, query string, topK int) ([]models.Column, error) {
	if query == "" {
		return nil, apperrors.NewValidationError("query", "must not be empty")
	}
	if topK < MinTopK || topK > MaxTopK {
		return nil, apperrors.NewValidationError("top_k",
			fmt.Sprintf("must be an integer between %d and %d", MinTopK, MaxTopK))
	}
	if s.runs.LastSuccess() == nil {
		return nil, apperrors.ErrNotIndexed
	}

	s.logger.Info("Searching", zap.String("query", query), zap.Int("top_k", topK))

	vector, err := s.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Asking the index for more neighbors than it holds is not an error,
	// just fewer results.
	k := topK
	if count, err := s.index.Count(ctx); err == nil && count < int64(k) {
		k = int(count)
	}
	if k == 0 {
		return []models.Column{}, nil
	}

	hits, err := s.index.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	columns := make([]models.Column, 0, len(hits))
	for _, hit := range hits {
		col, err := models.ColumnFromMetadata(hit.Metadata)
		if err != nil {
			// A record stored by an incompatible writer; skip it rather
			// than failing the whole search.
			s.logger.Warn("Discarding unreadable index record",
				zap.String("id", hit.ID),
				zap.Error(err))
			continue
		}
		columns = append(columns, col)
	}

	s.logger.Info("Search complete", zap.Int("results", len(columns)))

	return columns, nil
}
