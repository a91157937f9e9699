// Package embedding provides a pluggable interface for text embedding providers.
package embedding

import (
	"context"
	"fmt"
)

// Vector is a float32 embedding vector.
type Vector = []float32

// Embedder generates embedding vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Dims() int
}

// Options selects and configures a provider.
type Options struct {
	// Provider is "local", "ollama" or "openai".
	Provider string
	Model    string
	URL      string
	APIKey   string
	Dims     int
}

// New creates an embedder from options.
func New(opts Options) (Embedder, error) {
	switch opts.Provider {
	case "", "local":
		return NewLocalEmbedder(opts.Dims), nil
	case "ollama":
		model := opts.Model
		if model == "" {
			model = "all-minilm"
		}
		return NewOllamaEmbedder(opts.URL, model, opts.Dims), nil
	case "openai":
		return NewOpenAIEmbedder(opts.URL, opts.APIKey, opts.Model, opts.Dims), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", opts.Provider)
	}
}
