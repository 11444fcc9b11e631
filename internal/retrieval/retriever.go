// Package retrieval answers "which chunks are most like this question".
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"contractqa/internal/domain"
)

// Searcher is the read side of an index.
type Searcher interface {
	Query(vector []float64, topK int) []domain.SearchResult
	Size() int
}

// Retriever embeds a question and ranks indexed chunks against it. It never
// mutates the index and is safe for concurrent use when the embedder is.
type Retriever struct {
	embedder domain.Embedder
	index    Searcher
}

// New creates a retriever over index.
func New(embedder domain.Embedder, index Searcher) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

// Retrieve returns up to topK chunks ordered by descending similarity.
// An empty index short-circuits without an embedding call.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &domain.InvalidQueryError{Query: query}
	}
	if topK <= 0 || r.index.Size() == 0 {
		return []domain.RetrievalResult{}, nil
	}
	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, &domain.EmbeddingServiceError{Op: r.embedder.Name(), Count: 1, Cause: fmt.Errorf("expected 1 query vector, got %d", len(vectors))}
	}
	hits := r.index.Query(vectors[0], topK)
	out := make([]domain.RetrievalResult, len(hits))
	for i, h := range hits {
		out[i] = domain.RetrievalResult{ChunkID: h.Chunk.ID, Text: h.Chunk.Text, Score: h.Score}
	}
	return out, nil
}
