package models

import "time"

// RunSummary describes the most recent successful extraction run.
type RunSummary struct {
	RunID       string     `json:"run_id"`
	SourceType  SourceType `json:"source_type"`
	Scope       string     `json:"scope"`
	TableCount  int        `json:"tables_count"`
	ColumnCount int        `json:"columns_count"`
	CompletedAt time.Time  `json:"completed_at"`
}

// RunStatus is the process-wide extraction state. It lives in memory only
// and resets on restart; the vector index is the only durable artifact.
type RunStatus struct {
	IsRunning   bool        `json:"is_running"`
	LastError   *string     `json:"last_error"`
	LastSuccess *RunSummary `json:"last_success"`
}
