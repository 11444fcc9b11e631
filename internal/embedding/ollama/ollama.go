// Package ollama embeds text with a local or remote Ollama server.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

const DefaultModel = "nomic-embed-text"

// Config configures the Ollama embedder. An empty Host falls back to OLLAMA_HOST.
type Config struct {
	Host    string
	Model   string
	Timeout time.Duration
}

// Embedder generates embeddings using the Ollama /api/embed endpoint, which
// accepts the whole batch in one request.
type Embedder struct {
	client *api.Client
	model  string
}

// NewEmbedder creates an Ollama embedder.
func NewEmbedder(cfg Config) (*Embedder, error) {
	client, err := NewAPIClient(cfg.Host, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Embedder{client: client, model: cfg.Model}, nil
}

// NewAPIClient builds an ollama api client for host, defaulting to the
// environment's OLLAMA_HOST.
func NewAPIClient(host string, timeout time.Duration) (*api.Client, error) {
	hostURL := envconfig.Host()
	if host != "" {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
		}
		hostURL = u
	}
	return api.NewClient(hostURL, &http.Client{Timeout: timeout}), nil
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "ollama" }

// Embed requests one embedding per text in a single call.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}
	vecs := make([][]float64, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		v := make([]float64, len(emb))
		for j, x := range emb {
			v[j] = float64(x)
		}
		vecs[i] = v
	}
	return vecs, nil
}
