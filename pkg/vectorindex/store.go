package vectorindex

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver
)

// collectionNamePattern restricts collection names to safe SQL identifiers,
// since the collection name becomes the table name.
var collectionNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store is the SQLite-backed Index implementation.
type Store struct {
	db             *sql.DB
	collection     string
	persistPath    string
	embeddingModel string
	logger         *zap.Logger
}

// Open opens or creates the index database at path and ensures the collection
// table exists. The embedding model name is recorded for stats reporting only;
// the store itself never calls the provider.
func Open(path, collection, embeddingModel string, logger *zap.Logger) (*Store, error) {
	if !collectionNamePattern.MatchString(collection) {
		return nil, fmt.Errorf("invalid collection name %q", collection)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index database: %w", err)
	}

	s := &Store{
		db:             db,
		collection:     collection,
		persistPath:    path,
		embeddingModel: embeddingModel,
		logger:         logger.Named("vectorindex"),
	}

	if err := s.createSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index schema: %w", err)
	}

	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema(ctx context.Context) error {
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id         TEXT PRIMARY KEY,
			embedding  BLOB NOT NULL,
			document   TEXT NOT NULL,
			metadata   TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, s.collection)

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Upsert stores records, overwriting by id. Re-adding the same identity key
// replaces the previous record, so re-extraction never duplicates.
func (s *Store) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, embedding, document, metadata)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			embedding  = excluded.embedding,
			document   = excluded.document,
			metadata   = excluded.metadata,
			updated_at = CURRENT_TIMESTAMP
	`, s.collection))
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		metadata, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", rec.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, serializeEmbedding(rec.Embedding), rec.Document, string(metadata)); err != nil {
			return fmt.Errorf("upsert record %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}

	return nil
}

// Search returns the k nearest stored records by cosine similarity, most
// similar first. k larger than the collection simply returns everything.
func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]SearchHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, embedding, document, metadata FROM %s`, s.collection))
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var (
			id, document string
			embBlob      []byte
			metaJSON     string
		)
		if err := rows.Scan(&id, &embBlob, &document, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		metadata := make(map[string]string)
		if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata for %s: %w", id, err)
		}

		embedding := deserializeEmbedding(embBlob)
		hits = append(hits, SearchHit{
			Record: Record{
				ID:        id,
				Embedding: embedding,
				Document:  document,
				Metadata:  metadata,
			},
			Similarity: cosineSimilarity(vector, embedding),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	return hits, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.collection)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// Reset destroys and recreates the collection empty, same name.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, s.collection)); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	if err := s.createSchema(ctx); err != nil {
		return fmt.Errorf("recreate collection: %w", err)
	}
	s.logger.Info("Collection reset", zap.String("collection", s.collection))
	return nil
}

// Stats inspects the collection. Inspection failures are caught and reported
// inside the returned value, never as an error.
func (s *Store) Stats(ctx context.Context) Stats {
	stats := Stats{
		Collection:     s.collection,
		PersistPath:    s.persistPath,
		EmbeddingModel: s.embeddingModel,
	}

	count, err := s.Count(ctx)
	if err != nil {
		s.logger.Error("Failed to inspect collection", zap.Error(err))
		stats.Error = err.Error()
		return stats
	}
	stats.TotalRecords = count
	stats.HasData = count > 0

	if count > 0 {
		var sampleID string
		if err := s.db.QueryRowContext(ctx, fmt.Sprintf(
			`SELECT id FROM %s ORDER BY id LIMIT 1`, s.collection)).Scan(&sampleID); err != nil {
			s.logger.Error("Failed to read sample id", zap.Error(err))
			stats.Error = err.Error()
			return stats
		}
		stats.SampleID = sampleID
	}

	return stats
}

// serializeEmbedding converts a float32 slice to little-endian bytes.
func serializeEmbedding(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// deserializeEmbedding converts bytes back to a float32 slice.
func deserializeEmbedding(data []byte) []float32 {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil
	}

	embedding := make([]float32, len(data)/4)
	for i := range embedding {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		embedding[i] = math.Float32frombits(bits)
	}
	return embedding
}

// cosineSimilarity computes cosine similarity between two vectors.
// Mismatched lengths or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Ensure Store implements Index at compile time.
var _ Index = (*Store)(nil)
