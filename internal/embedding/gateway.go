// Package embedding turns batches of text into vectors through a pluggable
// backend and enforces the all-or-nothing contract callers rely on.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"contractqa/internal/domain"
)

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 30 * time.Second

// Gateway wraps an embedding backend. Every failure, including a response
// with the wrong number of vectors, inconsistent dimensions or non-finite
// components, surfaces as a
// *domain.EmbeddingServiceError and no partial result is returned.
type Gateway struct {
	backend       domain.Embedder
	timeout       time.Duration
	batchSize     int
	maxConcurrent int
	progress      ProgressReporter
	log           *slog.Logger
}

var _ domain.Embedder = (*Gateway)(nil)

// Option configures a Gateway.
type Option func(*Gateway)

// WithTimeout sets the per-call deadline. Zero keeps DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithBatching splits large inputs into sub-batches of size texts, running at
// most maxConcurrent backend calls at once. Results keep input order.
func WithBatching(size, maxConcurrent int) Option {
	return func(g *Gateway) {
		g.batchSize = size
		g.maxConcurrent = maxConcurrent
	}
}

// WithProgress reports completed sub-batches.
func WithProgress(p ProgressReporter) Option {
	return func(g *Gateway) { g.progress = p }
}

// WithLogger sets the logger used for call diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.log = l
		}
	}
}

// NewGateway creates a gateway in front of backend.
func NewGateway(backend domain.Embedder, opts ...Option) *Gateway {
	g := &Gateway{
		backend:       backend,
		timeout:       DefaultTimeout,
		maxConcurrent: 1,
		log:           slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.maxConcurrent <= 0 {
		g.maxConcurrent = 1
	}
	return g
}

// Name returns the backend name.
func (g *Gateway) Name() string { return g.backend.Name() }

// Embed returns one vector per text, in order. An empty batch returns
// without contacting the backend.
func (g *Gateway) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}
	started := time.Now()
	batches := g.split(texts)
	if g.progress != nil {
		g.progress.Start(len(batches))
		defer g.progress.Finish()
	}

	results := make([][][]float64, len(batches))
	if len(batches) == 1 {
		vecs, err := g.call(ctx, batches[0])
		if err != nil {
			return nil, g.fail(len(texts), err)
		}
		results[0] = vecs
	} else {
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(g.maxConcurrent)
		for i, batch := range batches {
			eg.Go(func() error {
				vecs, err := g.call(egCtx, batch)
				if err != nil {
					return fmt.Errorf("sub-batch %d: %w", i, err)
				}
				results[i] = vecs
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, g.fail(len(texts), err)
		}
	}

	out := make([][]float64, 0, len(texts))
	for _, vecs := range results {
		out = append(out, vecs...)
	}
	if err := checkVectors(out); err != nil {
		return nil, g.fail(len(texts), err)
	}
	g.log.Debug("Embedded texts",
		slog.String("backend", g.backend.Name()),
		slog.Int("texts", len(texts)),
		slog.Int("batches", len(batches)),
		slog.Duration("took", time.Since(started)))
	return out, nil
}

func (g *Gateway) call(ctx context.Context, texts []string) ([][]float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	vecs, err := g.backend.Embed(callCtx, texts)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("timed out after %s: %w", g.timeout, err)
		}
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("backend returned %d vectors for %d texts", len(vecs), len(texts))
	}
	if g.progress != nil {
		g.progress.Increment()
	}
	return vecs, nil
}

func (g *Gateway) split(texts []string) [][]string {
	if g.batchSize <= 0 || len(texts) <= g.batchSize {
		return [][]string{texts}
	}
	var batches [][]string
	for start := 0; start < len(texts); start += g.batchSize {
		end := min(start+g.batchSize, len(texts))
		batches = append(batches, texts[start:end])
	}
	return batches
}

func (g *Gateway) fail(count int, err error) error {
	g.log.Warn("Embedding call failed",
		slog.String("backend", g.backend.Name()),
		slog.Int("texts", count),
		slog.String("error", err.Error()))
	return &domain.EmbeddingServiceError{Op: g.backend.Name(), Count: count, Cause: err}
}

func checkVectors(vecs [][]float64) error {
	dim := -1
	for i, v := range vecs {
		if len(v) == 0 {
			return fmt.Errorf("empty vector at position %d", i)
		}
		if dim == -1 {
			dim = len(v)
			continue
		}
		if len(v) != dim {
			return fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), dim)
		}
	}
	for i, v := range vecs {
		for j, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return fmt.Errorf("vector %d has non-finite component %v at %d", i, x, j)
			}
		}
	}
	return nil
}
