package index

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractqa/internal/chunker"
	"contractqa/internal/domain"
)

// mockEmbedder returns [len(text), 1] for each text and counts calls.
type mockEmbedder struct {
	calls   int
	batches [][]string
	err     error
	short   bool
}

func (m *mockEmbedder) Name() string { return "mock" }

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	m.calls++
	m.batches = append(m.batches, texts)
	if m.err != nil {
		return nil, &domain.EmbeddingServiceError{Op: "mock", Count: len(texts), Cause: m.err}
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = []float64{float64(len(t)), 1}
	}
	if m.short {
		out = out[1:]
	}
	return out, nil
}

func newIndex(t *testing.T, size, overlap int, emb domain.Embedder) *Index {
	t.Helper()
	ch, err := chunker.NewWindowChunker(size, overlap)
	require.NoError(t, err)
	return New(ch, emb, nil)
}

func TestBuild(t *testing.T) {
	ctx := context.Background()

	t.Run("Embeds all chunks in one batch", func(t *testing.T) {
		emb := &mockEmbedder{}
		ix := newIndex(t, 30, 5, emb)

		err := ix.Build(ctx, "Clause A about termination.\n\nClause B about payment terms.", map[string]string{"source": "c.pdf"})
		require.NoError(t, err)

		assert.Equal(t, 1, emb.calls)
		assert.Equal(t, 3, ix.Size())
		require.Len(t, emb.batches[0], 3)
		for i, c := range ix.Chunks() {
			assert.Equal(t, emb.batches[0][i], c.Text)
			assert.Equal(t, []float64{float64(len(c.Text)), 1}, c.Vector)
			assert.Equal(t, "c.pdf", c.Metadata["source"])
		}
	})

	t.Run("Empty text skips embedding", func(t *testing.T) {
		emb := &mockEmbedder{}
		ix := newIndex(t, 30, 5, emb)

		require.NoError(t, ix.Build(ctx, "", nil))
		assert.Equal(t, 0, ix.Size())
		assert.Equal(t, 0, emb.calls)

		require.NoError(t, ix.Build(ctx, "   \n\t ", nil))
		assert.Equal(t, 0, emb.calls)
	})

	t.Run("Rebuild with empty text empties the index", func(t *testing.T) {
		emb := &mockEmbedder{}
		ix := newIndex(t, 10, 0, emb)
		require.NoError(t, ix.Build(ctx, strings.Repeat("word ", 10), nil))
		require.Positive(t, ix.Size())

		require.NoError(t, ix.Build(ctx, "", nil))
		assert.Equal(t, 0, ix.Size())
		assert.Equal(t, 1, emb.calls)
	})

	t.Run("Embedding failure leaves index empty", func(t *testing.T) {
		emb := &mockEmbedder{err: errors.New("dial tcp: connection refused")}
		ix := newIndex(t, 30, 5, emb)

		err := ix.Build(ctx, "Some contract text.", nil)
		assert.ErrorIs(t, err, domain.ErrEmbeddingService)
		assert.Equal(t, 0, ix.Size())
	})

	t.Run("Embedding failure keeps previous good build", func(t *testing.T) {
		emb := &mockEmbedder{}
		ix := newIndex(t, 10, 0, emb)
		require.NoError(t, ix.Build(ctx, "first document text", nil))
		before := ix.Chunks()

		emb.err = errors.New("timeout")
		err := ix.Build(ctx, "second, much longer document text that differs", nil)
		assert.ErrorIs(t, err, domain.ErrEmbeddingService)
		assert.Equal(t, before, ix.Chunks())
	})

	t.Run("Vector count mismatch is a service error", func(t *testing.T) {
		emb := &mockEmbedder{short: true}
		ix := newIndex(t, 10, 0, emb)
		err := ix.Build(ctx, "twenty characters!!!", nil)
		assert.ErrorIs(t, err, domain.ErrEmbeddingService)
		assert.Equal(t, 0, ix.Size())
	})
}

func TestPrepareDoesNotTouchStore(t *testing.T) {
	ix := newIndex(t, 10, 0, &mockEmbedder{})
	chunks, err := ix.Prepare(context.Background(), "some text to prepare", nil)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
	assert.Equal(t, 0, ix.Size())

	require.NoError(t, ix.Commit(chunks))
	assert.Equal(t, 2, ix.Size())
}

func TestQuery(t *testing.T) {
	ix := newIndex(t, 10, 0, &mockEmbedder{})
	assert.Empty(t, ix.Query([]float64{1, 1}, 3), "empty index")

	require.NoError(t, ix.Build(context.Background(), "0123456789abc", nil))
	res := ix.Query([]float64{10, 1}, 5)
	require.Len(t, res, 2)
	assert.Equal(t, "chunk_0", res[0].Chunk.ID)
	assert.Empty(t, ix.Query([]float64{10, 1}, 0))
}
