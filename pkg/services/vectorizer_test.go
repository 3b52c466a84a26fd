package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schemalens/schemalens-engine/pkg/models"
)

func testColumns(n int) []models.Column {
	columns := make([]models.Column, n)
	for i := range columns {
		columns[i] = models.Column{
			Name:          string(rune('a' + i)),
			DataType:      "INT64",
			TableName:     "t1",
			ContainerName: "d1",
			ProjectID:     "p1",
			Mode:          models.ModeNullable,
			IsNullable:    true,
			SourceType:    models.SourceTypeWarehouse,
		}
	}
	return columns
}

func TestVectorizeColumns_AllSucceed(t *testing.T) {
	embedder := &mockEmbedder{}
	index := newMockIndex()
	svc := NewVectorizerService(embedder, index, NopPacer{}, zap.NewNop())

	result := svc.VectorizeColumns(context.Background(), testColumns(3))

	assert.Equal(t, 3, result.Succeeded)
	assert.Zero(t, result.Failed)
	assert.Empty(t, result.FailedKeys)
	assert.Equal(t, 3, index.storedCount())
}

func TestVectorizeColumns_StoresIdentityKeyAndDocument(t *testing.T) {
	embedder := &mockEmbedder{vector: []float32{0.1, 0.2}}
	index := newMockIndex()
	svc := NewVectorizerService(embedder, index, NopPacer{}, zap.NewNop())

	col := models.Column{
		Name:          "id",
		DataType:      "INT64",
		TableName:     "t1",
		ContainerName: "d1",
		ProjectID:     "p1",
		SourceType:    models.SourceTypeWarehouse,
	}
	result := svc.VectorizeColumns(context.Background(), []models.Column{col})
	require.Equal(t, 1, result.Succeeded)

	rec, ok := index.stored("warehouse.p1.d1.t1.id")
	require.True(t, ok)
	assert.Equal(t, "Column Name: id | Data Type: INT64 | Table: d1.t1", rec.Document)
	assert.Equal(t, []float32{0.1, 0.2}, rec.Embedding)
	assert.Equal(t, "warehouse", rec.Metadata["source_type"])
}

func TestVectorizeColumns_SingleFailureDoesNotStopBatch(t *testing.T) {
	embedder := &mockEmbedder{
		failCalls: map[int]error{4: errors.New("provider timeout")},
	}
	index := newMockIndex()
	svc := NewVectorizerService(embedder, index, NopPacer{}, zap.NewNop())

	columns := testColumns(10)
	result := svc.VectorizeColumns(context.Background(), columns)

	assert.Equal(t, 9, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.FailedKeys, 1)
	assert.Equal(t, columns[3].IdentityKey(), result.FailedKeys[0])
	assert.Equal(t, 9, index.storedCount())
	assert.Equal(t, 10, embedder.callCount(), "every column gets its provider call")
}

func TestVectorizeColumns_UpsertFailureCountsAsColumnFailure(t *testing.T) {
	embedder := &mockEmbedder{}
	index := newMockIndex()
	index.upsertErr = errors.New("disk full")
	svc := NewVectorizerService(embedder, index, NopPacer{}, zap.NewNop())

	result := svc.VectorizeColumns(context.Background(), testColumns(2))

	assert.Zero(t, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
}

func TestVectorizeColumns_PacesBetweenCallsOnly(t *testing.T) {
	pacer := &countingPacer{}
	svc := NewVectorizerService(&mockEmbedder{}, newMockIndex(), pacer, zap.NewNop())

	svc.VectorizeColumns(context.Background(), testColumns(5))

	// n columns means n-1 gaps, no leading or trailing delay
	assert.Equal(t, 4, pacer.paces())
}

func TestVectorizeColumns_EmptyBatch(t *testing.T) {
	pacer := &countingPacer{}
	embedder := &mockEmbedder{}
	svc := NewVectorizerService(embedder, newMockIndex(), pacer, zap.NewNop())

	result := svc.VectorizeColumns(context.Background(), nil)

	assert.Zero(t, result.Succeeded)
	assert.Zero(t, result.Failed)
	assert.Zero(t, embedder.callCount())
	assert.Zero(t, pacer.paces())
}

func TestNewVectorizerService_NilPacerGetsDefault(t *testing.T) {
	svc := NewVectorizerService(&mockEmbedder{}, newMockIndex(), nil, zap.NewNop())

	impl, ok := svc.(*vectorizerService)
	require.True(t, ok)
	pacer, ok := impl.pacer.(FixedDelayPacer)
	require.True(t, ok)
	assert.Equal(t, DefaultEmbedInterval, pacer.Delay)
}
