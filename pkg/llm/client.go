package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/schemalens/schemalens-engine/pkg/retry"
)

// Client provides access to the OpenAI embeddings endpoint.
type Client struct {
	client         *openai.Client
	embeddingModel string
	chatModel      string
	retryCfg       *retry.Config
	logger         *zap.Logger
}

// Config holds configuration for creating an embedding client.
type Config struct {
	APIKey         string
	EmbeddingModel string // e.g. "text-embedding-3-large"
	ChatModel      string // reserved, not called by the pipeline
}

// NewClient creates a new OpenAI embedding client.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.EmbeddingModel == "" {
		return nil, fmt.Errorf("embedding model is required")
	}

	return &Client{
		client:         openai.NewClient(cfg.APIKey),
		embeddingModel: cfg.EmbeddingModel,
		chatModel:      cfg.ChatModel,
		retryCfg:       retry.DefaultConfig(),
		logger:         logger.Named("llm"),
	}, nil
}

// CreateEmbedding generates an embedding vector for the input text.
// Transient provider errors are retried with backoff before the call is
// reported as failed; retries happen in place, so the caller still sees at
// most one outstanding request.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	start := time.Now()

	var resp openai.EmbeddingResponse
	err := retry.Do(ctx, c.retryCfg, func() error {
		var callErr error
		resp, callErr = c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(c.embeddingModel),
			Input: []string{input},
		})
		return callErr
	})
	if err != nil {
		c.logger.Error("Embedding request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, fmt.Errorf("create embedding: %w", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("no embedding in response")
	}

	c.logger.Debug("Embedding request completed",
		zap.Int("input_len", len(input)),
		zap.Int("dimensions", len(resp.Data[0].Embedding)),
		zap.Duration("elapsed", time.Since(start)))

	return resp.Data[0].Embedding, nil
}

// Model returns the configured embedding model name.
func (c *Client) Model() string {
	return c.embeddingModel
}

// ChatModel returns the configured chat model name. Reserved for future
// summarization features; nothing in the pipeline calls it today.
func (c *Client) ChatModel() string {
	return c.chatModel
}
