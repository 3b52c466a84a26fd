// Package models defines the catalog metadata records shared by the source
// extractors, the embedding pipeline, and the vector index.
package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/schemalens/schemalens-engine/pkg/apperrors"
)

// SourceType tags which kind of catalog a record came from. The tag is stored
// alongside every index record and selects the reconstruction schema when
// search results are mapped back to typed columns.
type SourceType string

const (
	// SourceTypeWarehouse is the BigQuery-backed warehouse source.
	SourceTypeWarehouse SourceType = "warehouse"
	// SourceTypeRelational is the PostgreSQL-backed relational source.
	SourceTypeRelational SourceType = "relational"
)

// Column mode values. The warehouse source reports these natively; the
// relational source derives them from nullability.
const (
	ModeNullable = "NULLABLE"
	ModeRequired = "REQUIRED"
	ModeRepeated = "REPEATED"
)

// Column is the atomic unit of extracted metadata: one column of one table,
// with enough addressing context to be globally unique across sources.
// ContainerName holds the dataset name for warehouse columns and the schema
// name for relational columns. ProjectID is set for warehouse columns only.
type Column struct {
	Name          string     `json:"name"`
	DataType      string     `json:"data_type"`
	Description   string     `json:"description,omitempty"`
	TableName     string     `json:"table_name"`
	ContainerName string     `json:"container_name"`
	ProjectID     string     `json:"project_id,omitempty"`
	IsNullable    bool       `json:"is_nullable"`
	Mode          string     `json:"mode"`
	SourceType    SourceType `json:"source_type"`
}

// IdentityKey returns the unique id used for idempotent upsert into the
// vector index. Re-extracting the same column always produces the same key,
// so re-runs overwrite instead of duplicating.
func (c *Column) IdentityKey() string {
	parts := []string{string(c.SourceType)}
	if c.SourceType == SourceTypeWarehouse {
		parts = append(parts, c.ProjectID)
	}
	parts = append(parts, c.ContainerName, c.TableName, c.Name)
	return strings.Join(parts, ".")
}

// EmbeddingText renders the canonical text submitted to the embedding
// provider. It is a pure function of the column's fields: same column, same
// bytes, every time.
func (c *Column) EmbeddingText() string {
	parts := []string{
		fmt.Sprintf("Column Name: %s", c.Name),
		fmt.Sprintf("Data Type: %s", c.DataType),
		fmt.Sprintf("Table: %s.%s", c.ContainerName, c.TableName),
	}
	if c.Description != "" {
		parts = append(parts, fmt.Sprintf("Description: %s", c.Description))
	}
	return strings.Join(parts, " | ")
}

// Metadata flattens the column into the string map stored with its index
// record. The index accepts only primitive scalar values, so booleans are
// stringified and empty optional fields are dropped.
func (c *Column) Metadata() map[string]string {
	m := map[string]string{
		"name":           c.Name,
		"data_type":      c.DataType,
		"table_name":     c.TableName,
		"container_name": c.ContainerName,
		"is_nullable":    strconv.FormatBool(c.IsNullable),
		"mode":           c.Mode,
		"source_type":    string(c.SourceType),
	}
	if c.Description != "" {
		m["description"] = c.Description
	}
	if c.ProjectID != "" {
		m["project_id"] = c.ProjectID
	}
	return m
}

// ColumnFromMetadata reconstructs a typed Column from a stored metadata map,
// dispatching on the source_type tag. Keys outside the target schema are
// discarded, which tolerates drift between what an older run stored and what
// the current schema expects.
func ColumnFromMetadata(m map[string]string) (Column, error) {
	col := Column{
		Name:          m["name"],
		DataType:      m["data_type"],
		Description:   m["description"],
		TableName:     m["table_name"],
		ContainerName: m["container_name"],
		Mode:          m["mode"],
	}
	col.IsNullable, _ = strconv.ParseBool(m["is_nullable"])

	switch SourceType(m["source_type"]) {
	case SourceTypeWarehouse:
		col.SourceType = SourceTypeWarehouse
		col.ProjectID = m["project_id"]
	case SourceTypeRelational:
		col.SourceType = SourceTypeRelational
	default:
		return Column{}, fmt.Errorf("%w: source_type %q", apperrors.ErrUnknownSource, m["source_type"])
	}

	return col, nil
}
