package models

import "time"

// Table is one extracted table with its ordered columns. Tables are built
// fresh on every extraction run from live catalog queries and are never
// mutated afterwards; once their columns are flattened and stored they are
// discarded.
type Table struct {
	Name          string     `json:"name"`
	ContainerName string     `json:"container_name"`
	ProjectID     string     `json:"project_id,omitempty"`
	Description   string     `json:"description,omitempty"`
	Columns       []Column   `json:"columns"`
	CreatedTime   time.Time  `json:"created_time"`
	ModifiedTime  time.Time  `json:"modified_time"`
	RowCount      *int64     `json:"row_count,omitempty"` // relational source only
	SourceType    SourceType `json:"source_type"`
}

// FlattenColumns flattens tables into a single ordered column sequence:
// table order times column ordinal position. It is the seam that lets both
// source extractors feed one embedding pipeline uniformly.
func FlattenColumns(tables []Table) []Column {
	var columns []Column
	for _, t := range tables {
		columns = append(columns, t.Columns...)
	}
	return columns
}
