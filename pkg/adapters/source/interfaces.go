// Package source defines the contract shared by the catalog extractors.
// Each implementation queries one source system's catalog and produces
// normalized table/column metadata; it never reads the data itself.
package source

import (
	"context"

	"github.com/schemalens/schemalens-engine/pkg/models"
)

// Extractor extracts catalog metadata for one source system.
// Each implementation owns its connection and must be closed when done.
type Extractor interface {
	// ExtractMetadata enumerates the catalog under the given scope (a
	// warehouse project id or a relational schema name) and returns one
	// Table per catalog table. An empty scope falls back to the
	// extractor's configured default. A scope with nothing in it returns
	// an empty slice, not an error.
	ExtractMetadata(ctx context.Context, scope string) ([]models.Table, error)

	// SourceType returns the tag stored with every record this extractor
	// produces.
	SourceType() models.SourceType

	// Close releases the source connection.
	Close() error
}
