// Package postgres implements the relational catalog extractor.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/schemalens/schemalens-engine/pkg/adapters/source"
	"github.com/schemalens/schemalens-engine/pkg/logging"
	"github.com/schemalens/schemalens-engine/pkg/models"
)

// Extractor extracts table/column metadata from one PostgreSQL schema.
//
// Table-level failures are isolated: a table whose columns cannot be read is
// skipped and logged, and extraction continues with the remaining tables. A
// schema that does not exist yields an empty slice, not an error.
type Extractor struct {
	pool          *pgxpool.Pool
	defaultSchema string
	ownedPool     bool
	logger        *zap.Logger
}

// NewExtractor creates a PostgreSQL extractor with its own connection pool.
func NewExtractor(ctx context.Context, connString string, logger *zap.Logger) (*Extractor, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %s", logging.SanitizeError(err))
	}

	logger.Info("Connected to relational source",
		zap.String("conn", logging.SanitizeConnectionString(connString)))

	return &Extractor{
		pool:          pool,
		defaultSchema: "public",
		ownedPool:     true,
		logger:        logger.Named("postgres"),
	}, nil
}

// NewExtractorWithPool creates an extractor over an existing pool. The caller
// keeps ownership of the pool (used by tests).
func NewExtractorWithPool(pool *pgxpool.Pool, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		pool:          pool,
		defaultSchema: "public",
		logger:        logger.Named("postgres"),
	}
}

// Close releases the pool if this extractor created it.
func (e *Extractor) Close() error {
	if e.ownedPool && e.pool != nil {
		e.pool.Close()
	}
	return nil
}

// SourceType returns the relational tag.
func (e *Extractor) SourceType() models.SourceType {
	return models.SourceTypeRelational
}

// tableRow is one row of the schema-level table query.
type tableRow struct {
	name         string
	description  *string
	rowCount     int64
	modifiedTime *time.Time
}

// ExtractMetadata enumerates base tables in the schema that are visible under
// the caller's SELECT privilege, with catalog statistics and comment
// annotations joined in.
//
// created_time is stamped with the extraction time: the PostgreSQL catalog
// does not record table creation time, so this is a documented approximation,
// not a bug.
func (e *Extractor) ExtractMetadata(ctx context.Context, scope string) ([]models.Table, error) {
	schema := scope
	if schema == "" {
		schema = e.defaultSchema
	}

	e.logger.Info("Extracting metadata", zap.String("schema", schema))

	tableRows, err := e.listTables(ctx, schema)
	if err != nil {
		return nil, fmt.Errorf("list tables in schema %s: %w", schema, err)
	}

	extractedAt := time.Now()
	var tables []models.Table
	for _, tr := range tableRows {
		columns, err := e.listColumns(ctx, schema, tr.name)
		if err != nil {
			// One broken table must not fail the whole run.
			e.logger.Warn("Skipping table, failed to read columns",
				zap.String("schema", schema),
				zap.String("table", tr.name),
				zap.Error(err))
			continue
		}

		table := models.Table{
			Name:          tr.name,
			ContainerName: schema,
			Columns:       columns,
			CreatedTime:   extractedAt,
			ModifiedTime:  extractedAt,
			RowCount:      &tr.rowCount,
			SourceType:    models.SourceTypeRelational,
		}
		if tr.description != nil {
			table.Description = *tr.description
		}
		if tr.modifiedTime != nil {
			table.ModifiedTime = *tr.modifiedTime
		}
		tables = append(tables, table)
	}

	e.logger.Info("Extraction complete",
		zap.String("schema", schema),
		zap.Int("tables", len(tables)))

	return tables, nil
}

// listTables returns base tables in the schema visible to the current role.
// A nonexistent schema simply matches zero rows.
func (e *Extractor) listTables(ctx context.Context, schema string) ([]tableRow, error) {
	const query = `
		SELECT
			t.table_name,
			obj_description(c.oid, 'pg_class') AS table_description,
			COALESCE(s.n_live_tup, 0)::bigint AS row_count,
			GREATEST(s.last_vacuum, s.last_autovacuum, s.last_analyze, s.last_autoanalyze) AS modified_time
		FROM information_schema.tables t
		JOIN pg_namespace n ON n.nspname = t.table_schema
		JOIN pg_class c ON c.relnamespace = n.oid AND c.relname = t.table_name
		LEFT JOIN pg_stat_user_tables s
			ON s.schemaname = t.table_schema AND s.relname = t.table_name
		WHERE t.table_schema = $1
		  AND t.table_type = 'BASE TABLE'
		  AND has_table_privilege(c.oid, 'SELECT')
		ORDER BY t.table_name
	`

	rows, err := e.pool.Query(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []tableRow
	for rows.Next() {
		var tr tableRow
		if err := rows.Scan(&tr.name, &tr.description, &tr.rowCount, &tr.modifiedTime); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, tr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	return tables, nil
}

// listColumns returns the columns of one table in ordinal order, with
// column-level comments. Mode is derived from nullability; PostgreSQL has no
// native REPEATED mode.
func (e *Extractor) listColumns(ctx context.Context, schema, table string) ([]models.Column, error) {
	const query = `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' AS is_nullable,
			col_description(pgc.oid, c.ordinal_position) AS column_description
		FROM information_schema.columns c
		JOIN pg_namespace n ON n.nspname = c.table_schema
		JOIN pg_class pgc ON pgc.relnamespace = n.oid AND pgc.relname = c.table_name
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`

	rows, err := e.pool.Query(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []models.Column
	for rows.Next() {
		var (
			name, dataType string
			isNullable     bool
			description    *string
		)
		if err := rows.Scan(&name, &dataType, &isNullable, &description); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}

		mode := models.ModeRequired
		if isNullable {
			mode = models.ModeNullable
		}

		col := models.Column{
			Name:          name,
			DataType:      dataType,
			TableName:     table,
			ContainerName: schema,
			IsNullable:    isNullable,
			Mode:          mode,
			SourceType:    models.SourceTypeRelational,
		}
		if description != nil {
			col.Description = *description
		}
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	return columns, nil
}

// Ensure Extractor implements source.Extractor at compile time.
var _ source.Extractor = (*Extractor)(nil)
