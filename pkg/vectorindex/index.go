// Package vectorindex implements the persistent nearest-neighbor store for
// column embeddings. Records are kept in a local SQLite database, one row per
// column, with the embedding serialized as a little-endian float32 BLOB.
// Search is brute-force cosine similarity over all rows, which is more than
// adequate for catalog-sized collections (thousands of columns, not millions
// of documents).
package vectorindex

import "context"

// Record is one stored (id, vector, document, metadata) tuple. The id is the
// column's identity key; the document is the embedding text; the metadata map
// holds the column's fields as primitive string values.
type Record struct {
	ID        string
	Embedding []float32
	Document  string
	Metadata  map[string]string
}

// SearchHit is a Record plus its cosine similarity to the query vector.
type SearchHit struct {
	Record
	Similarity float64
}

// Stats reports the state of the collection. Inspection failures never
// propagate as errors; they degrade to a Stats value carrying the error
// string.
type Stats struct {
	Collection     string `json:"collection_name"`
	TotalRecords   int64  `json:"total_embeddings"`
	HasData        bool   `json:"has_data"`
	SampleID       string `json:"sample_id,omitempty"`
	PersistPath    string `json:"persist_directory"`
	EmbeddingModel string `json:"embedding_model"`
	Error          string `json:"error,omitempty"`
}

// Index is the vector index contract used by the pipeline and search.
type Index interface {
	// Upsert stores records, overwriting by id (idempotent, never duplicates).
	Upsert(ctx context.Context, records []Record) error

	// Search returns the k nearest stored records by cosine similarity,
	// most similar first.
	Search(ctx context.Context, vector []float32, k int) ([]SearchHit, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)

	// Reset destroys and recreates the collection empty.
	Reset(ctx context.Context) error

	// Stats inspects the collection. It never fails; see Stats.Error.
	Stats(ctx context.Context) Stats

	// Close releases the underlying database.
	Close() error
}
