package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/schemalens/schemalens-engine/pkg/llm"
	"github.com/schemalens/schemalens-engine/pkg/models"
	"github.com/schemalens/schemalens-engine/pkg/vectorindex"
)

// DefaultEmbedInterval is the fixed delay between provider calls. This is a
// rate-control constant, not adaptive backoff: the provider sees exactly one
// request at a time with this gap between them.
const DefaultEmbedInterval = 300 * time.Millisecond

// Pacer spaces out consecutive provider calls. Injectable so tests run with
// zero delay and a token-bucket limiter can slot in later, as long as the
// one-call-in-flight property holds.
type Pacer interface {
	Pace()
}

// FixedDelayPacer sleeps a fixed duration between calls.
type FixedDelayPacer struct {
	Delay time.Duration
}

func (p FixedDelayPacer) Pace() {
	time.Sleep(p.Delay)
}

// NopPacer applies no delay. For tests.
type NopPacer struct{}

func (NopPacer) Pace() {}

// VectorizeResult summarizes a pipeline run. Individual failures are counted
// here rather than aborting the batch.
type VectorizeResult struct {
	Succeeded  int
	Failed     int
	FailedKeys []string
}

// VectorizerService embeds columns and stores them in the vector index.
type VectorizerService interface {
	// VectorizeColumns processes columns strictly sequentially: render the
	// embedding text, embed, upsert, pace, next. Each column is a unit of
	// failure; one column's error is counted and logged but never stops
	// the rest of the batch.
	VectorizeColumns(ctx context.Context, columns []models.Column) VectorizeResult
}

type vectorizerService struct {
	embedder llm.EmbeddingClient
	index    vectorindex.Index
	pacer    Pacer
	logger   *zap.Logger
}

// NewVectorizerService creates a vectorizer with dependencies. A nil pacer
// gets the fixed production delay.
func NewVectorizerService(embedder llm.EmbeddingClient, index vectorindex.Index, pacer Pacer, logger *zap.Logger) VectorizerService {
	if pacer == nil {
		pacer = FixedDelayPacer{Delay: DefaultEmbedInterval}
	}
	return &vectorizerService{
		embedder: embedder,
		index:    index,
		pacer:    pacer,
		logger:   logger.Named("vectorizer"),
	}
}

func (s *vectorizerService) VectorizeColumns(ctx context.Context, columns []models.Column) VectorizeResult {
	s.logger.Info("Storing column embeddings", zap.Int("columns", len(columns)))

	var result VectorizeResult
	for i := range columns {
		col := &columns[i]
		if i > 0 {
			s.pacer.Pace()
		}

		key := col.IdentityKey()
		if err := s.vectorizeOne(ctx, col, key); err != nil {
			result.Failed++
			result.FailedKeys = append(result.FailedKeys, key)
			// The raw metadata goes into the log so a malformed column can
			// be diagnosed after the run.
			s.logger.Error("Failed to process column",
				zap.String("id", key),
				zap.Any("metadata", col.Metadata()),
				zap.Error(err))
			continue
		}

		result.Succeeded++
		s.logger.Debug("Column embedded",
			zap.String("id", key),
			zap.Int("done", result.Succeeded),
			zap.Int("total", len(columns)))
	}

	s.logger.Info("Embedding storage complete",
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))

	return result
}

func (s *vectorizerService) vectorizeOne(ctx context.Context, col *models.Column, key string) error {
	text := col.EmbeddingText()

	vector, err := s.embedder.CreateEmbedding(ctx, text)
	if err != nil {
		return err
	}

	return s.index.Upsert(ctx, []vectorindex.Record{{
		ID:        key,
		Embedding: vector,
		Document:  text,
		Metadata:  col.Metadata(),
	}})
}
