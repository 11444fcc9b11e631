package memory

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"contractqa/internal/domain"
	"contractqa/internal/vectorstore"
)

// Storage is an in-memory vector store using brute-force cosine similarity.
// Records are held as an immutable snapshot; Replace swaps the snapshot so a
// reader sees either the previous or the new generation, never a mix.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	chunks    []domain.Chunk
}

var _ vectorstore.Storage = (*Storage)(nil)

func NewStorage() *Storage { return &Storage{} }

// Replace validates chunks and installs them as the new snapshot. On error
// the previous snapshot is kept.
func (s *Storage) Replace(chunks []domain.Chunk) error {
	dim := 0
	seen := make(map[string]struct{}, len(chunks))
	for i, c := range chunks {
		if len(c.Vector) == 0 {
			return fmt.Errorf("chunk %q has no vector", c.ID)
		}
		if i == 0 {
			dim = len(c.Vector)
		} else if len(c.Vector) != dim {
			return errors.New("vector dimension mismatch")
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("duplicate chunk id %q", c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	snapshot := make([]domain.Chunk, len(chunks))
	copy(snapshot, chunks)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = snapshot
	s.dimension = dim
	return nil
}

// Clear empties the store.
func (s *Storage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
	s.dimension = 0
}

// Size returns the number of indexed chunks.
func (s *Storage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Dimension returns the vector dimensionality of the current snapshot, or 0 when empty.
func (s *Storage) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// Chunks returns the current snapshot in index order.
func (s *Storage) Chunks() []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// Search ranks every chunk by cosine similarity to vector and returns at most
// topK results, highest first. Equal scores keep index order.
func (s *Storage) Search(vector []float64, topK int) []domain.SearchResult {
	s.mu.RLock()
	snapshot := s.chunks
	s.mu.RUnlock()

	if topK <= 0 || len(snapshot) == 0 {
		return []domain.SearchResult{}
	}
	topK = min(topK, len(snapshot))

	scored := make([]domain.SearchResult, len(snapshot))
	for i, c := range snapshot {
		scored[i] = domain.SearchResult{Chunk: c, Score: Cosine(vector, c.Vector)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored[:topK:topK]
}

// Cosine returns the cosine similarity of a and b. It is 0 when either vector
// has zero norm or the lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
