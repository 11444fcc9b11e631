// Package local provides an offline embedder: hashed term-frequency vectors
// over the shared tokenizer. It needs no corpus preparation, so query and
// chunk vectors always share one space.
package local

import (
	"context"
	"hash/fnv"
	"math"

	"contractqa/internal/textutil"
)

const DefaultDimension = 512

// Embedder maps each non-stopword term to a bucket and weights it by
// sublinear term frequency. Vectors are L2-normalized; text without terms
// maps to the zero vector.
type Embedder struct {
	dimension int
}

// NewEmbedder creates a hashed embedder with the given dimension.
func NewEmbedder(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{dimension: dimension}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "local" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed computes one vector per text.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *Embedder) vector(text string) []float64 {
	vec := make([]float64, e.dimension)
	tf := make(map[int]int)
	for _, term := range textutil.Terms(text) {
		tf[e.bucket(term)]++
	}
	if len(tf) == 0 {
		return vec
	}
	for idx, count := range tf {
		vec[idx] = 1 + math.Log(float64(count))
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

func (e *Embedder) bucket(term string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(term))
	return int(h.Sum32() % uint32(e.dimension))
}
