package chunker

import (
	"fmt"
	"strings"

	"contractqa/internal/domain"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// WindowChunker splits text into fixed-size character windows that overlap
// by a configurable number of characters.
type WindowChunker struct {
	chunkSize int
	overlap   int
}

// NewWindowChunker validates the sizing and returns a chunker.
func NewWindowChunker(chunkSize, overlap int) (*WindowChunker, error) {
	if err := validate(chunkSize, overlap); err != nil {
		return nil, err
	}
	return &WindowChunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk splits the document content and stamps every chunk with a copy of
// the document metadata.
func (c *WindowChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	chunks, err := Split(document.Content, c.chunkSize, c.overlap)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		chunks[i].Metadata = copyMetadata(document.Metadata)
	}
	return chunks, nil
}

// Split walks text left to right in windows of chunkSize runes, stepping back
// overlap runes after each window. Windows that are only whitespace are
// skipped and do not consume an id.
func Split(text string, chunkSize, overlap int) ([]domain.Chunk, error) {
	if err := validate(chunkSize, overlap); err != nil {
		return nil, err
	}
	runes := []rune(text)
	length := len(runes)
	var chunks []domain.Chunk
	start := 0
	idx := 0
	for start < length {
		end := min(start+chunkSize, length)
		trimmed := strings.TrimSpace(string(runes[start:end]))
		if trimmed != "" {
			chunks = append(chunks, domain.Chunk{
				ID:    ChunkID(idx),
				Index: idx,
				Text:  trimmed,
				Start: start,
				End:   end,
			})
			idx++
		}
		if end == length {
			break
		}
		start = end - overlap
	}
	return chunks, nil
}

// ChunkID renders the stable identifier of the n-th chunk of a document.
func ChunkID(n int) string {
	return fmt.Sprintf("chunk_%d", n)
}

func validate(chunkSize, overlap int) error {
	if chunkSize <= 0 {
		return &domain.ConfigurationError{Field: "chunk_size", Value: chunkSize, Reason: "must be positive"}
	}
	if overlap < 0 || overlap >= chunkSize {
		return &domain.ConfigurationError{Field: "overlap", Value: overlap, Reason: fmt.Sprintf("must be in [0, %d)", chunkSize)}
	}
	return nil
}

func copyMetadata(meta map[string]string) map[string]string {
	if len(meta) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
