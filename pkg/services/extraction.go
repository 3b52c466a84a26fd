package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schemalens/schemalens-engine/pkg/adapters/source"
	"github.com/schemalens/schemalens-engine/pkg/apperrors"
	"github.com/schemalens/schemalens-engine/pkg/models"
	"github.com/schemalens/schemalens-engine/pkg/vectorindex"
)

// ExtractionService coordinates one end-to-end run: extract the catalog,
// flatten tables into columns, optionally reset the index, then embed and
// store every column. Runs are single-flight system-wide.
type ExtractionService interface {
	// Trigger starts a run in the background and returns immediately.
	// Returns ErrExtractionRunning if a run is active, or
	// ErrSourceNotConfigured if the source has no extractor wired.
	Trigger(sourceType models.SourceType, scope string, forceRefresh bool) error

	// Status returns the current run state verbatim.
	Status() models.RunStatus

	// LastSuccess returns the most recent successful run summary, or nil
	// if no run has ever succeeded.
	LastSuccess() *models.RunSummary
}

type extractionService struct {
	extractors map[models.SourceType]source.Extractor
	vectorizer VectorizerService
	index      vectorindex.Index
	state      runState
	logger     *zap.Logger
}

// NewExtractionService creates the orchestrator. Extractors may be nil for
// sources that are not configured; triggering those fails with
// ErrSourceNotConfigured.
func NewExtractionService(
	extractors map[models.SourceType]source.Extractor,
	vectorizer VectorizerService,
	index vectorindex.Index,
	logger *zap.Logger,
) ExtractionService {
	return &extractionService{
		extractors: extractors,
		vectorizer: vectorizer,
		index:      index,
		logger:     logger.Named("extraction"),
	}
}

func (s *extractionService) Trigger(sourceType models.SourceType, scope string, forceRefresh bool) error {
	extractor, ok := s.extractors[sourceType]
	if !ok || extractor == nil {
		return fmt.Errorf("%w: %s", apperrors.ErrSourceNotConfigured, sourceType)
	}

	if err := s.state.tryStart(); err != nil {
		return err
	}

	runID := uuid.NewString()
	s.logger.Info("Extraction run queued",
		zap.String("run_id", runID),
		zap.String("source", string(sourceType)),
		zap.String("scope", scope),
		zap.Bool("force_refresh", forceRefresh))

	// The run is detached from the triggering request: it gets its own
	// context and cannot be cancelled by a later request.
	go s.run(context.Background(), runID, extractor, sourceType, scope, forceRefresh)

	return nil
}

func (s *extractionService) run(ctx context.Context, runID string, extractor source.Extractor, sourceType models.SourceType, scope string, forceRefresh bool) {
	defer func() {
		// A panicking run must never take the serving process down.
		if r := recover(); r != nil {
			err := fmt.Errorf("extraction run panicked: %v", r)
			s.logger.Error("Extraction run panicked", zap.String("run_id", runID), zap.Any("panic", r))
			s.state.finishError(err)
		}
	}()

	tables, err := extractor.ExtractMetadata(ctx, scope)
	if err != nil {
		s.logger.Error("Extraction failed", zap.String("run_id", runID), zap.Error(err))
		s.state.finishError(err)
		return
	}

	columns := models.FlattenColumns(tables)
	s.logger.Info("Catalog extracted",
		zap.String("run_id", runID),
		zap.Int("tables", len(tables)),
		zap.Int("columns", len(columns)))

	if forceRefresh {
		s.logger.Info("Force refresh requested, resetting index", zap.String("run_id", runID))
		if err := s.index.Reset(ctx); err != nil {
			s.logger.Error("Index reset failed", zap.String("run_id", runID), zap.Error(err))
			s.state.finishError(fmt.Errorf("reset index: %w", err))
			return
		}
	}

	// Per-column failures are already absorbed inside the pipeline; a run
	// with partial failures still counts as an overall success.
	result := s.vectorizer.VectorizeColumns(ctx, columns)

	s.state.finishSuccess(models.RunSummary{
		RunID:       runID,
		SourceType:  sourceType,
		Scope:       scope,
		TableCount:  len(tables),
		ColumnCount: len(columns),
		CompletedAt: time.Now(),
	})

	s.logger.Info("Extraction run complete",
		zap.String("run_id", runID),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))
}

func (s *extractionService) Status() models.RunStatus {
	return s.state.status()
}

func (s *extractionService) LastSuccess() *models.RunSummary {
	return s.state.lastSuccessful()
}
