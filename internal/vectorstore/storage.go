package vectorstore

import "contractqa/internal/domain"

// Storage holds embedded chunks and answers similarity queries.
// Replace swaps the full record set in one step.
type Storage interface {
	Replace(chunks []domain.Chunk) error
	Clear()
	Size() int
	Chunks() []domain.Chunk
	Search(vector []float64, topK int) []domain.SearchResult
}
