package services

import (
	"context"
	"sync"

	"github.com/schemalens/schemalens-engine/pkg/models"
	"github.com/schemalens/schemalens-engine/pkg/vectorindex"
)

// mockEmbedder returns canned vectors and can be scripted to fail specific
// calls. Call counting is synchronized because extraction runs embed from a
// background goroutine.
type mockEmbedder struct {
	mu        sync.Mutex
	calls     int
	inputs    []string
	vector    []float32
	failCalls map[int]error // 1-based call number -> error
}

func (m *mockEmbedder) CreateEmbedding(_ context.Context, input string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.inputs = append(m.inputs, input)
	if err, ok := m.failCalls[m.calls]; ok {
		return nil, err
	}
	if m.vector != nil {
		return m.vector, nil
	}
	return []float32{1, 0, 0}, nil
}

func (m *mockEmbedder) Model() string { return "mock-embedding-model" }

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockIndex records upserts in memory and implements just enough of Index for
// the service tests.
type mockIndex struct {
	mu         sync.Mutex
	records    map[string]vectorindex.Record
	searchHits []vectorindex.SearchHit
	upsertErr  error
	searchErr  error
	resetErr   error
	resets     int
}

func newMockIndex() *mockIndex {
	return &mockIndex{records: make(map[string]vectorindex.Record)}
}

func (m *mockIndex) Upsert(_ context.Context, records []vectorindex.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	for _, rec := range records {
		m.records[rec.ID] = rec
	}
	return nil
}

func (m *mockIndex) Search(_ context.Context, _ []float32, _ int) ([]vectorindex.SearchHit, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchHits, nil
}

func (m *mockIndex) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.searchHits) > 0 {
		return int64(len(m.searchHits)), nil
	}
	return int64(len(m.records)), nil
}

func (m *mockIndex) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resetErr != nil {
		return m.resetErr
	}
	m.resets++
	m.records = make(map[string]vectorindex.Record)
	return nil
}

func (m *mockIndex) Stats(_ context.Context) vectorindex.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return vectorindex.Stats{
		Collection:   "mock",
		TotalRecords: int64(len(m.records)),
		HasData:      len(m.records) > 0,
	}
}

func (m *mockIndex) Close() error { return nil }

func (m *mockIndex) stored(id string) (vectorindex.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	return rec, ok
}

func (m *mockIndex) storedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *mockIndex) resetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// mockExtractor returns canned tables or an error, and can block until
// released to hold a run in the running state.
type mockExtractor struct {
	tables     []models.Table
	err        error
	sourceType models.SourceType
	block      chan struct{} // if non-nil, ExtractMetadata waits until closed
	panicWith  any
}

func (m *mockExtractor) ExtractMetadata(ctx context.Context, _ string) ([]models.Table, error) {
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.tables, nil
}

func (m *mockExtractor) SourceType() models.SourceType { return m.sourceType }

func (m *mockExtractor) Close() error { return nil }

// countingPacer counts Pace calls without sleeping.
type countingPacer struct {
	mu    sync.Mutex
	count int
}

func (p *countingPacer) Pace() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
}

func (p *countingPacer) paces() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}
