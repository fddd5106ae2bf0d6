package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

// DefaultOllamaModel is the local embedding model.
const DefaultOllamaModel = "all-minilm"

// OllamaEmbedder is the local embedding tier backed by an Ollama server.
type OllamaEmbedder struct {
	client *api.Client
	model  string
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder creates a local embedder talking to baseURL.
func NewOllamaEmbedder(baseURL, model string) (*OllamaEmbedder, error) {
	if model == "" {
		model = DefaultOllamaModel
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama url: %w", err)
	}
	return &OllamaEmbedder{
		client: api.NewClient(u, &http.Client{Timeout: 60 * time.Second}),
		model:  model,
	}, nil
}

func (c *OllamaEmbedder) Model() string {
	return "ollama:" + c.model
}

// Embed returns the embedding vector for the given text.
func (c *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.Embed(ctx, &api.EmbedRequest{
		Model: c.model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("ollama embed: no embeddings returned")
	}
	return resp.Embeddings[0], nil
}

// HealthCheck verifies Ollama is reachable.
func (c *OllamaEmbedder) HealthCheck(ctx context.Context) error {
	if _, err := c.client.List(ctx); err != nil {
		return fmt.Errorf("ollama health check: %w", err)
	}
	return nil
}
