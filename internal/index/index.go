// Package index builds and queries the per-document retrieval index.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"contractqa/internal/domain"
	"contractqa/internal/vectorstore"
	"contractqa/internal/vectorstore/memory"
)

// Index chunks a document, embeds every chunk in one batch and keeps the
// result in an in-memory store. It is owned by a single session.
type Index struct {
	chunker  domain.Chunker
	embedder domain.Embedder
	store    vectorstore.Storage
	log      *slog.Logger
}

// New creates an empty index.
func New(chunker domain.Chunker, embedder domain.Embedder, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Index{
		chunker:  chunker,
		embedder: embedder,
		store:    memory.NewStorage(),
		log:      logger,
	}
}

// Build replaces the index contents with the chunks of text. If chunking
// yields nothing the index is emptied and the embedder is not called. Any
// failure leaves the previous contents in place.
func (ix *Index) Build(ctx context.Context, text string, metadata map[string]string) error {
	chunks, err := ix.Prepare(ctx, text, metadata)
	if err != nil {
		return err
	}
	return ix.Commit(chunks)
}

// Prepare chunks and embeds text without touching the stored records.
// The result is installed with Commit.
func (ix *Index) Prepare(ctx context.Context, text string, metadata map[string]string) ([]domain.Chunk, error) {
	started := time.Now()
	chunks, err := ix.chunker.Chunk(domain.Document{Content: text, Metadata: metadata})
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		ix.log.Info("Document produced no chunks", slog.Int("chars", len(text)))
		return []domain.Chunk{}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, &domain.EmbeddingServiceError{
			Op:    ix.embedder.Name(),
			Count: len(chunks),
			Cause: fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks)),
		}
	}
	for i := range chunks {
		chunks[i].Vector = vectors[i]
	}
	ix.log.Info("Prepared index",
		slog.Int("chunks", len(chunks)),
		slog.Int("dimension", len(vectors[0])),
		slog.String("embedder", ix.embedder.Name()),
		slog.Duration("took", time.Since(started)))
	return chunks, nil
}

// Commit atomically installs prepared chunks.
func (ix *Index) Commit(chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		ix.store.Clear()
		return nil
	}
	if err := ix.store.Replace(chunks); err != nil {
		return fmt.Errorf("commit index: %w", err)
	}
	return nil
}

// Clear drops every indexed chunk.
func (ix *Index) Clear() { ix.store.Clear() }

// Size returns the number of indexed chunks.
func (ix *Index) Size() int { return ix.store.Size() }

// Chunks returns the indexed chunks in order.
func (ix *Index) Chunks() []domain.Chunk { return ix.store.Chunks() }

// Query ranks indexed chunks against vector by cosine similarity.
func (ix *Index) Query(vector []float64, topK int) []domain.SearchResult {
	return ix.store.Search(vector, topK)
}
