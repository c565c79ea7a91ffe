// Package openai implements the embedding provider backed by the
// OpenAI embeddings API (or any API-compatible endpoint).
package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "text-embedding-3-small"

	// DefaultDimensions matches DefaultModel's output width.
	DefaultDimensions = 1536
)

// Config holds the OpenAI embedder settings.
type Config struct {
	// APIKey authenticates against the API. Required.
	APIKey string `json:"api_key"`

	// Model is the embedding model name. Defaults to DefaultModel.
	Model string `json:"model"`

	// BaseURL overrides the API endpoint, for compatible providers.
	BaseURL string `json:"base_url,omitempty"`

	// Dimensions is the output vector width. Defaults to
	// DefaultDimensions.
	Dimensions int `json:"dimensions"`
}

// Client is an embedding provider backed by the OpenAI API.
type Client struct {
	client *openai.Client
	model  string
	dims   int
}

// NewClient creates an OpenAI embedding client from cfg.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai embedder: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		dims:   cfg.Dimensions,
	}, nil
}

// Embed generates the embedding for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one API call.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedder: create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embedder: got %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float64, len(resp.Data))
	for i, item := range resp.Data {
		vec := make([]float64, len(item.Embedding))
		for j, v := range item.Embedding {
			vec[j] = float64(v)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimensions returns the configured vector width.
func (c *Client) Dimensions() int {
	return c.dims
}

// Close is a no-op; the underlying HTTP client needs no teardown.
func (c *Client) Close() error {
	return nil
}
