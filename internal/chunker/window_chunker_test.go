package chunker

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractqa/internal/domain"
)

const clauses = "Clause A about termination.\n\nClause B about payment terms."

func TestNewWindowChunker(t *testing.T) {
	t.Run("Valid sizing", func(t *testing.T) {
		c, err := NewWindowChunker(DefaultChunkSize, DefaultOverlap)
		require.NoError(t, err)
		assert.NotNil(t, c)
	})

	tests := []struct {
		name    string
		size    int
		overlap int
		field   string
	}{
		{"Zero chunk size", 0, 0, "chunk_size"},
		{"Negative chunk size", -5, 0, "chunk_size"},
		{"Negative overlap", 10, -1, "overlap"},
		{"Overlap equal to size", 10, 10, "overlap"},
		{"Overlap larger than size", 10, 11, "overlap"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWindowChunker(tt.size, tt.overlap)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
			var cfgErr *domain.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestSplit(t *testing.T) {
	t.Run("Empty text", func(t *testing.T) {
		chunks, err := Split("", 10, 2)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("Whitespace only text", func(t *testing.T) {
		chunks, err := Split(" \n\t  \n", 3, 1)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("Shorter than chunk size", func(t *testing.T) {
		chunks, err := Split("  short contract  ", 100, 20)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "short contract", chunks[0].Text)
		assert.Equal(t, 0, chunks[0].Start)
		assert.Equal(t, 18, chunks[0].End)
		assert.Equal(t, "chunk_0", chunks[0].ID)
	})

	t.Run("Clauses with overlap", func(t *testing.T) {
		chunks, err := Split(clauses, 30, 5)
		require.NoError(t, err)
		require.Len(t, chunks, 3)

		assert.Equal(t, 0, chunks[0].Start)
		assert.Equal(t, 30, chunks[0].End)
		assert.True(t, strings.HasPrefix(chunks[0].Text, "Clause A about termination."))

		assert.Equal(t, 25, chunks[1].Start)
		assert.Equal(t, 55, chunks[1].End)
		assert.Contains(t, chunks[1].Text, "Clause B")

		assert.Equal(t, 50, chunks[2].Start)
		assert.Equal(t, 58, chunks[2].End)
		assert.Equal(t, "t terms.", chunks[2].Text)
	})

	t.Run("Whitespace windows are skipped without consuming ids", func(t *testing.T) {
		text := "abc" + strings.Repeat(" ", 10) + "def"
		chunks, err := Split(text, 5, 0)
		require.NoError(t, err)
		require.Len(t, chunks, 3)
		assert.Equal(t, []string{"abc", "de", "f"}, texts(chunks))
		assert.Equal(t, []string{"chunk_0", "chunk_1", "chunk_2"}, ids(chunks))
		assert.Equal(t, 10, chunks[1].Start)
		assert.Equal(t, 15, chunks[2].Start)
	})

	t.Run("Offsets count runes not bytes", func(t *testing.T) {
		chunks, err := Split("héllo wörld", 5, 0)
		require.NoError(t, err)
		require.Len(t, chunks, 3)
		assert.Equal(t, []string{"héllo", "wörl", "d"}, texts(chunks))
		assert.Equal(t, 11, chunks[2].End)
	})

	t.Run("Invalid sizing", func(t *testing.T) {
		_, err := Split("text", 4, 4)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
}

func TestSplitInvariants(t *testing.T) {
	docs := []string{
		clauses,
		strings.Repeat("The supplier shall invoice monthly. ", 40),
		"a\n\n\n\n\n\n\n\n\n\nb  c   d\t\te",
		"Vertrag über Lieferung – Zahlungsziel 30 Tage. ",
	}
	sizings := [][2]int{{1, 0}, {7, 3}, {30, 5}, {64, 63}, {1000, 200}}

	for _, doc := range docs {
		for _, sz := range sizings {
			chunks, err := Split(doc, sz[0], sz[1])
			require.NoError(t, err)
			runes := []rune(doc)

			covered := make([]bool, len(runes))
			for i, ch := range chunks {
				assert.Equal(t, i, ch.Index, "ids must be dense and ordered")
				assert.Equal(t, ChunkID(i), ch.ID)
				assert.NotEmpty(t, ch.Text)
				assert.Equal(t, strings.TrimSpace(ch.Text), ch.Text)
				assert.True(t, ch.Start >= 0 && ch.Start < ch.End && ch.End <= len(runes))
				assert.LessOrEqual(t, ch.End-ch.Start, sz[0])
				for p := ch.Start; p < ch.End; p++ {
					covered[p] = true
				}
			}
			for p, r := range runes {
				if !unicode.IsSpace(r) {
					assert.True(t, covered[p], "rune %d of %q not covered (size=%d overlap=%d)", p, doc, sz[0], sz[1])
				}
			}
		}
	}
}

func TestWindowChunkerCopiesMetadata(t *testing.T) {
	c, err := NewWindowChunker(10, 2)
	require.NoError(t, err)

	meta := map[string]string{"source": "contract.pdf"}
	chunks, err := c.Chunk(domain.Document{Content: strings.Repeat("x", 25), Metadata: meta})
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	chunks[0].Metadata["source"] = "changed"
	assert.Equal(t, "contract.pdf", meta["source"])
	assert.Equal(t, "contract.pdf", chunks[1].Metadata["source"])
}

func texts(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

func ids(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.ID
	}
	return out
}
