package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schemalens/schemalens-engine/pkg/adapters/source"
	"github.com/schemalens/schemalens-engine/pkg/apperrors"
	"github.com/schemalens/schemalens-engine/pkg/models"
)

func warehouseTables() []models.Table {
	return []models.Table{
		{
			Name:          "t1",
			ContainerName: "d1",
			ProjectID:     "p1",
			SourceType:    models.SourceTypeWarehouse,
			Columns: []models.Column{
				{Name: "id", DataType: "INT64", TableName: "t1", ContainerName: "d1", ProjectID: "p1", Mode: models.ModeRequired, SourceType: models.SourceTypeWarehouse},
				{Name: "email", DataType: "STRING", TableName: "t1", ContainerName: "d1", ProjectID: "p1", Mode: models.ModeNullable, IsNullable: true, SourceType: models.SourceTypeWarehouse},
			},
		},
	}
}

func newTestExtraction(extractor source.Extractor) (ExtractionService, *mockIndex) {
	index := newMockIndex()
	vectorizer := NewVectorizerService(&mockEmbedder{}, index, NopPacer{}, zap.NewNop())
	extractors := map[models.SourceType]source.Extractor{}
	if extractor != nil {
		extractors[extractor.SourceType()] = extractor
	}
	svc := NewExtractionService(extractors, vectorizer, index, zap.NewNop())
	return svc, index
}

func waitForIdle(t *testing.T, svc ExtractionService) models.RunStatus {
	t.Helper()
	require.Eventually(t, func() bool {
		return !svc.Status().IsRunning
	}, 5*time.Second, 10*time.Millisecond, "run never finished")
	return svc.Status()
}

func TestTrigger_UnconfiguredSource(t *testing.T) {
	svc, _ := newTestExtraction(nil)

	err := svc.Trigger(models.SourceTypeWarehouse, "p1", false)
	assert.ErrorIs(t, err, apperrors.ErrSourceNotConfigured)
}

func TestTrigger_SuccessRecordsSummary(t *testing.T) {
	extractor := &mockExtractor{tables: warehouseTables(), sourceType: models.SourceTypeWarehouse}
	svc, index := newTestExtraction(extractor)

	require.NoError(t, svc.Trigger(models.SourceTypeWarehouse, "p1", false))

	status := waitForIdle(t, svc)
	require.NotNil(t, status.LastSuccess)
	assert.Nil(t, status.LastError)
	assert.Equal(t, models.SourceTypeWarehouse, status.LastSuccess.SourceType)
	assert.Equal(t, "p1", status.LastSuccess.Scope)
	assert.Equal(t, 1, status.LastSuccess.TableCount)
	assert.Equal(t, 2, status.LastSuccess.ColumnCount)
	assert.NotEmpty(t, status.LastSuccess.RunID)
	assert.False(t, status.LastSuccess.CompletedAt.IsZero())
	assert.Equal(t, 2, index.storedCount())
}

func TestTrigger_ConflictWhileRunning(t *testing.T) {
	block := make(chan struct{})
	extractor := &mockExtractor{
		tables:     warehouseTables(),
		sourceType: models.SourceTypeWarehouse,
		block:      block,
	}
	svc, _ := newTestExtraction(extractor)

	require.NoError(t, svc.Trigger(models.SourceTypeWarehouse, "p1", false))

	// Any further trigger is rejected while the first run holds the slot,
	// regardless of source.
	err := svc.Trigger(models.SourceTypeWarehouse, "p2", false)
	assert.ErrorIs(t, err, apperrors.ErrExtractionRunning)

	close(block)
	waitForIdle(t, svc)

	// Once idle, a new run is accepted again
	assert.NoError(t, svc.Trigger(models.SourceTypeWarehouse, "p1", false))
	waitForIdle(t, svc)
}

func TestTrigger_ExtractionFailureRecordsError(t *testing.T) {
	extractor := &mockExtractor{
		err:        errors.New("catalog unreachable"),
		sourceType: models.SourceTypeWarehouse,
	}
	svc, index := newTestExtraction(extractor)

	require.NoError(t, svc.Trigger(models.SourceTypeWarehouse, "p1", false))

	status := waitForIdle(t, svc)
	require.NotNil(t, status.LastError)
	assert.Contains(t, *status.LastError, "catalog unreachable")
	assert.Nil(t, status.LastSuccess)
	assert.Zero(t, index.storedCount(), "nothing is stored when extraction aborts")
}

func TestTrigger_NewRunClearsPreviousError(t *testing.T) {
	extractor := &mockExtractor{
		err:        errors.New("first run fails"),
		sourceType: models.SourceTypeWarehouse,
	}
	svc, _ := newTestExtraction(extractor)

	require.NoError(t, svc.Trigger(models.SourceTypeWarehouse, "p1", false))
	status := waitForIdle(t, svc)
	require.NotNil(t, status.LastError)

	extractor.err = nil
	extractor.tables = warehouseTables()
	require.NoError(t, svc.Trigger(models.SourceTypeWarehouse, "p1", false))

	status = waitForIdle(t, svc)
	assert.Nil(t, status.LastError)
	require.NotNil(t, status.LastSuccess)
}

func TestTrigger_PanicInRunIsRecovered(t *testing.T) {
	extractor := &mockExtractor{
		panicWith:  "boom",
		sourceType: models.SourceTypeWarehouse,
	}
	svc, _ := newTestExtraction(extractor)

	require.NoError(t, svc.Trigger(models.SourceTypeWarehouse, "p1", false))

	status := waitForIdle(t, svc)
	require.NotNil(t, status.LastError)
	assert.Contains(t, *status.LastError, "panicked")

	// The service remains usable after the panic
	extractor.panicWith = nil
	extractor.tables = warehouseTables()
	assert.NoError(t, svc.Trigger(models.SourceTypeWarehouse, "p1", false))
	waitForIdle(t, svc)
}

func TestTrigger_ForceRefreshResetsIndex(t *testing.T) {
	extractor := &mockExtractor{tables: warehouseTables(), sourceType: models.SourceTypeWarehouse}
	svc, index := newTestExtraction(extractor)

	require.NoError(t, svc.Trigger(models.SourceTypeWarehouse, "p1", true))
	waitForIdle(t, svc)

	assert.Equal(t, 1, index.resetCount())
	assert.Equal(t, 2, index.storedCount())
}

func TestTrigger_WithoutForceRefreshKeepsIndex(t *testing.T) {
	extractor := &mockExtractor{tables: warehouseTables(), sourceType: models.SourceTypeWarehouse}
	svc, index := newTestExtraction(extractor)

	require.NoError(t, svc.Trigger(models.SourceTypeWarehouse, "p1", false))
	waitForIdle(t, svc)

	assert.Zero(t, index.resetCount())
}

func TestTrigger_ResetFailureRecordsError(t *testing.T) {
	extractor := &mockExtractor{tables: warehouseTables(), sourceType: models.SourceTypeWarehouse}
	svc, index := newTestExtraction(extractor)
	index.resetErr = errors.New("locked")

	require.NoError(t, svc.Trigger(models.SourceTypeWarehouse, "p1", true))

	status := waitForIdle(t, svc)
	require.NotNil(t, status.LastError)
	assert.Contains(t, *status.LastError, "reset index")
	assert.Nil(t, status.LastSuccess)
}

func TestTrigger_PartialEmbeddingFailuresStillSucceed(t *testing.T) {
	extractor := &mockExtractor{tables: warehouseTables(), sourceType: models.SourceTypeWarehouse}
	index := newMockIndex()
	embedder := &mockEmbedder{failCalls: map[int]error{1: errors.New("provider error")}}
	vectorizer := NewVectorizerService(embedder, index, NopPacer{}, zap.NewNop())
	svc := NewExtractionService(
		map[models.SourceType]source.Extractor{models.SourceTypeWarehouse: extractor},
		vectorizer, index, zap.NewNop())

	require.NoError(t, svc.Trigger(models.SourceTypeWarehouse, "p1", false))

	status := waitForIdle(t, svc)
	assert.Nil(t, status.LastError)
	require.NotNil(t, status.LastSuccess, "per-column failures do not fail the run")
	assert.Equal(t, 2, status.LastSuccess.ColumnCount)
	assert.Equal(t, 1, index.storedCount())
}

func TestLastSuccess_NilBeforeAnyRun(t *testing.T) {
	svc, _ := newTestExtraction(&mockExtractor{sourceType: models.SourceTypeWarehouse})
	assert.Nil(t, svc.LastSuccess())
}

func TestStatus_ReportsRunning(t *testing.T) {
	block := make(chan struct{})
	extractor := &mockExtractor{
		tables:     warehouseTables(),
		sourceType: models.SourceTypeWarehouse,
		block:      block,
	}
	svc, _ := newTestExtraction(extractor)

	require.NoError(t, svc.Trigger(models.SourceTypeWarehouse, "p1", false))
	assert.True(t, svc.Status().IsRunning)

	close(block)
	waitForIdle(t, svc)
}
