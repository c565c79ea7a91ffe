// Package embedder defines the text embedding provider interface.
package embedder

import "context"

// Provider is the interface all embedding providers implement.
type Provider interface {
	// Embed generates the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch generates embedding vectors for multiple texts in one
	// request where the backend supports it.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the dimensionality of the vectors this provider
	// produces.
	Dimensions() int

	// Close releases any resources held by the provider.
	Close() error
}
