// Package bigquery implements the warehouse catalog extractor.
package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/schemalens/schemalens-engine/pkg/adapters/source"
	"github.com/schemalens/schemalens-engine/pkg/models"
)

// Extractor extracts dataset/table/field metadata from a BigQuery project.
//
// Unlike the relational extractor, any catalog-access failure aborts the
// whole extraction and partial results are discarded: the warehouse source
// favors catalog-wide consistency over per-table convenience.
type Extractor struct {
	client    *bigquery.Client
	projectID string
	logger    *zap.Logger
}

// Config holds the settings needed to reach the BigQuery catalog.
type Config struct {
	ProjectID          string
	ServiceAccountJSON string
}

// NewExtractor creates a BigQuery extractor authenticated with a service
// account key.
func NewExtractor(ctx context.Context, cfg *Config, logger *zap.Logger) (*Extractor, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project id is required")
	}

	client, err := bigquery.NewClient(ctx, cfg.ProjectID,
		option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)))
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}

	return &Extractor{
		client:    client,
		projectID: cfg.ProjectID,
		logger:    logger.Named("bigquery"),
	}, nil
}

// Close releases the BigQuery client.
func (e *Extractor) Close() error {
	return e.client.Close()
}

// SourceType returns the warehouse tag.
func (e *Extractor) SourceType() models.SourceType {
	return models.SourceTypeWarehouse
}

// ExtractMetadata enumerates all datasets, tables, and fields in the project.
// An empty scope falls back to the configured project. A project with zero
// datasets returns an empty slice. Any catalog error aborts the extraction.
func (e *Extractor) ExtractMetadata(ctx context.Context, scope string) ([]models.Table, error) {
	projectID := scope
	if projectID == "" {
		projectID = e.projectID
	}

	e.logger.Info("Extracting metadata", zap.String("project_id", projectID))

	var tables []models.Table

	datasets := e.client.Datasets(ctx)
	datasets.ProjectID = projectID
	for {
		ds, err := datasets.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list datasets in %s: %w", projectID, err)
		}

		e.logger.Debug("Processing dataset", zap.String("dataset", ds.DatasetID))

		dsTables := ds.Tables(ctx)
		for {
			tbl, err := dsTables.Next()
			if errors.Is(err, iterator.Done) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("list tables in %s.%s: %w", projectID, ds.DatasetID, err)
			}

			md, err := tbl.Metadata(ctx)
			if err != nil {
				return nil, fmt.Errorf("get table %s.%s.%s: %w", projectID, ds.DatasetID, tbl.TableID, err)
			}

			tables = append(tables, tableFromMetadata(projectID, ds.DatasetID, tbl.TableID, md))
		}
	}

	e.logger.Info("Extraction complete",
		zap.String("project_id", projectID),
		zap.Int("tables", len(tables)))

	return tables, nil
}

// tableFromMetadata converts a BigQuery table description into the normalized
// model. Only top-level schema fields are carried; nested RECORD members are
// not flattened.
func tableFromMetadata(projectID, datasetID, tableID string, md *bigquery.TableMetadata) models.Table {
	columns := make([]models.Column, 0, len(md.Schema))
	for _, field := range md.Schema {
		columns = append(columns, models.Column{
			Name:          field.Name,
			DataType:      string(field.Type),
			Description:   field.Description,
			TableName:     tableID,
			ContainerName: datasetID,
			ProjectID:     projectID,
			IsNullable:    !field.Required && !field.Repeated,
			Mode:          fieldMode(field),
			SourceType:    models.SourceTypeWarehouse,
		})
	}

	return models.Table{
		Name:          tableID,
		ContainerName: datasetID,
		ProjectID:     projectID,
		Description:   md.Description,
		Columns:       columns,
		CreatedTime:   md.CreationTime,
		ModifiedTime:  md.LastModifiedTime,
		SourceType:    models.SourceTypeWarehouse,
	}
}

// fieldMode maps the BigQuery field flags onto the provider-native mode.
func fieldMode(field *bigquery.FieldSchema) string {
	switch {
	case field.Repeated:
		return models.ModeRepeated
	case field.Required:
		return models.ModeRequired
	default:
		return models.ModeNullable
	}
}

// Ensure Extractor implements source.Extractor at compile time.
var _ source.Extractor = (*Extractor)(nil)
