package main

import (
	"context"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/schemalens/schemalens-engine/pkg/adapters/source"
	"github.com/schemalens/schemalens-engine/pkg/adapters/source/bigquery"
	"github.com/schemalens/schemalens-engine/pkg/adapters/source/postgres"
	"github.com/schemalens/schemalens-engine/pkg/config"
	"github.com/schemalens/schemalens-engine/pkg/handlers"
	"github.com/schemalens/schemalens-engine/pkg/llm"
	"github.com/schemalens/schemalens-engine/pkg/middleware"
	"github.com/schemalens/schemalens-engine/pkg/models"
	"github.com/schemalens/schemalens-engine/pkg/services"
	"github.com/schemalens/schemalens-engine/pkg/vectorindex"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("embedding_model", cfg.OpenAI.EmbeddingModel),
		zap.String("index_path", cfg.Index.PersistPath),
		zap.String("collection", cfg.Index.Collection),
		zap.Bool("bigquery_configured", cfg.BigQuery.Configured()),
		zap.Bool("postgres_configured", cfg.Postgres.Configured()))

	index, err := vectorindex.Open(cfg.Index.PersistPath, cfg.Index.Collection, cfg.OpenAI.EmbeddingModel, logger)
	if err != nil {
		logger.Fatal("Failed to open vector index", zap.Error(err))
	}
	defer index.Close()

	embedder, err := llm.NewClient(&llm.Config{
		APIKey:         cfg.OpenAI.APIKey,
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
		ChatModel:      cfg.OpenAI.ChatModel,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create embedding client", zap.Error(err))
	}

	ctx := context.Background()
	extractors := make(map[models.SourceType]source.Extractor)

	if cfg.BigQuery.Configured() {
		bq, err := bigquery.NewExtractor(ctx, &bigquery.Config{
			ProjectID:          cfg.BigQuery.ProjectID,
			ServiceAccountJSON: cfg.BigQuery.ServiceAccountJSON,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create BigQuery extractor", zap.Error(err))
		}
		defer bq.Close()
		extractors[models.SourceTypeWarehouse] = bq
	}

	if cfg.Postgres.Configured() {
		pg, err := postgres.NewExtractor(ctx, cfg.Postgres.ConnectionString(), logger)
		if err != nil {
			logger.Fatal("Failed to create PostgreSQL extractor", zap.Error(err))
		}
		defer pg.Close()
		extractors[models.SourceTypeRelational] = pg
	}

	vectorizer := services.NewVectorizerService(embedder, index, nil, logger)
	extraction := services.NewExtractionService(extractors, vectorizer, index, logger)
	search := services.NewSearchService(embedder, index, extraction, logger)

	mux := http.NewServeMux()

	// Register handlers
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewExtractHandler(cfg, extraction, logger).RegisterRoutes(mux)
	handlers.NewStatusHandler(extraction, index, logger).RegisterRoutes(mux)
	handlers.NewSearchHandler(search, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting schemalens-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// newLogger builds the process logger. The debug flag affects verbosity only.
func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
