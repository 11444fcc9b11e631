// Package session owns one user's document index and conversation and runs
// the retrieve, prompt and answer loop for each question.
package session

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"contractqa/internal/domain"
	"contractqa/internal/index"
	"contractqa/internal/retrieval"
)

const (
	DefaultTopK              = 3
	DefaultMaxContextChars   = 1000
	DefaultMaxTokens         = 512
	DefaultCompletionTimeout = 120 * time.Second
)

// ErrSuperseded is returned by EnsureIndex when a newer document or a Reset
// replaced the build while it was running. Its result is discarded.
var ErrSuperseded = errors.New("index build superseded")

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session closed")

// Config holds per-session answer settings.
type Config struct {
	TopK              int
	MaxContextChars   int
	Model             string
	MaxTokens         int
	Temperature       float64
	CompletionTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.MaxContextChars <= 0 {
		c.MaxContextChars = DefaultMaxContextChars
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.CompletionTimeout <= 0 {
		c.CompletionTimeout = DefaultCompletionTimeout
	}
	return c
}

// Deps are the collaborators a session needs. Chunker, Embedder and
// Completer may be shared between sessions; the index never is.
type Deps struct {
	Chunker   domain.Chunker
	Embedder  domain.Embedder
	Completer domain.Completer
	Logger    *slog.Logger
}

// Answer is the result of Ask.
type Answer struct {
	Text    string
	Sources []domain.RetrievalResult
}

// Session is the per-user state bundle. Every exported method is safe to
// call from multiple goroutines; the index is swapped only while holding mu.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	index     *index.Index
	retriever *retrieval.Retriever
	completer domain.Completer
	cfg       Config
	log       *slog.Logger

	mu           sync.Mutex
	generation   uint64
	building     string
	buildDone    chan struct{}
	convEpoch    uint64
	docKey       string
	docText      string
	metadata     map[string]string
	indexed      bool
	closed       bool
	conversation []domain.Turn
}

// New creates an empty session with its own index.
func New(deps Deps, cfg Config) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	id := uuid.New()
	logger = logger.With(slog.String("session", id.String()))
	ix := index.New(deps.Chunker, deps.Embedder, logger)
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		index:     ix,
		retriever: retrieval.New(deps.Embedder, ix),
		completer: deps.Completer,
		cfg:       cfg.withDefaults(),
		log:       logger,
	}
}

// Config returns the session's answer settings.
func (s *Session) Config() Config { return s.cfg }

// EnsureIndex builds the index for a document at most once. Calling it again
// with the same text and source is a no-op. A different document starts a
// fresh build; when that build succeeds the old index and the conversation
// are replaced. A failed build changes nothing.
//
// The latest call wins: a build still running for another document is
// superseded, including when the latest call asks for the document already
// indexed. A call for the document currently being built waits for that
// build instead of starting a second one.
func (s *Session) EnsureIndex(ctx context.Context, text string, metadata map[string]string) error {
	key := documentKey(text, metadata)

	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return ErrClosed
		}
		if s.buildDone != nil && s.building == key {
			done, waitGen := s.buildDone, s.generation
			s.mu.Unlock()
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
			s.mu.Lock()
			superseded := s.generation != waitGen && !(s.indexed && s.docKey == key)
			s.mu.Unlock()
			if superseded {
				return ErrSuperseded
			}
			continue
		}
		if s.indexed && s.docKey == key {
			if s.buildDone != nil {
				s.generation++
				s.building, s.buildDone = "", nil
				s.log.Info("Superseding index build in flight", slog.Uint64("generation", s.generation))
			}
			s.mu.Unlock()
			return nil
		}
		break
	}
	s.generation++
	gen := s.generation
	done := make(chan struct{})
	s.building, s.buildDone = key, done
	s.mu.Unlock()
	defer close(done)

	chunks, err := s.index.Prepare(ctx, text, metadata)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buildDone == done {
		s.building, s.buildDone = "", nil
	}
	if gen != s.generation || s.closed {
		s.log.Info("Discarding superseded index build", slog.Uint64("generation", gen))
		return ErrSuperseded
	}
	if err != nil {
		s.log.Error("Index build failed", slog.String("error", err.Error()))
		return err
	}
	if err := s.index.Commit(chunks); err != nil {
		return err
	}
	if key != s.docKey {
		s.conversation = nil
		s.convEpoch++
	}
	s.docKey = key
	s.docText = text
	s.metadata = cloneMetadata(metadata)
	s.indexed = true
	s.log.Info("Index ready",
		slog.Int("chunks", len(chunks)),
		slog.String("source", metadata["source"]))
	return nil
}

// Ask answers query from the indexed document. Non-positive topK or
// maxContextChars fall back to the session config. The user turn is kept
// even when retrieval or generation fails; the assistant turn is only added
// on success, and only while the conversation it was asked in is still the
// current one.
func (s *Session) Ask(ctx context.Context, query string, topK, maxContextChars int) (Answer, error) {
	if strings.TrimSpace(query) == "" {
		return Answer{}, &domain.InvalidQueryError{Query: query}
	}
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	if maxContextChars <= 0 {
		maxContextChars = s.cfg.MaxContextChars
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Answer{}, ErrClosed
	}
	s.conversation = append(s.conversation, domain.Turn{Role: domain.RoleUser, Message: query})
	epoch := s.convEpoch
	s.mu.Unlock()

	results, err := s.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		s.log.Warn("Retrieval failed", slog.String("error", err.Error()))
		return Answer{}, err
	}

	model := s.cfg.Model
	if model == "" && s.completer != nil {
		model = s.completer.Name()
	}
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CompletionTimeout)
	defer cancel()
	started := time.Now()
	text, err := s.completer.Complete(callCtx, domain.CompletionRequest{
		Model:        s.cfg.Model,
		SystemPrompt: SystemPrompt,
		UserPrompt:   BuildUserPrompt(query, results, maxContextChars),
		MaxTokens:    s.cfg.MaxTokens,
		Temperature:  s.cfg.Temperature,
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", s.cfg.CompletionTimeout, err)
		}
		s.log.Warn("Answer generation failed", slog.String("error", err.Error()))
		return Answer{}, &domain.AnswerGenerationError{Model: model, Cause: err}
	}
	if strings.TrimSpace(text) == "" {
		return Answer{}, &domain.AnswerGenerationError{Model: model, Cause: errors.New("empty completion")}
	}

	s.mu.Lock()
	if s.convEpoch == epoch {
		s.conversation = append(s.conversation, domain.Turn{Role: domain.RoleAssistant, Message: text})
	} else {
		s.log.Info("Conversation replaced while answering; answer not recorded")
	}
	s.mu.Unlock()

	s.log.Debug("Answered question",
		slog.Int("sources", len(results)),
		slog.Int("top_k", topK),
		slog.Duration("took", time.Since(started)))
	return Answer{Text: text, Sources: results}, nil
}

// Reset forgets the document, index and conversation and abandons any build
// in flight.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.building, s.buildDone = "", nil
	s.index.Clear()
	s.conversation = nil
	s.convEpoch++
	s.docKey = ""
	s.docText = ""
	s.metadata = nil
	s.indexed = false
}

// Close resets the session and rejects further use.
func (s *Session) Close() {
	s.Reset()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Conversation returns a copy of the turns so far.
func (s *Session) Conversation() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Turn, len(s.conversation))
	copy(out, s.conversation)
	return out
}

// Indexed reports whether the current document has a built index.
func (s *Session) Indexed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexed
}

// IndexSize returns the number of indexed chunks.
func (s *Session) IndexSize() int { return s.index.Size() }

// Document returns the text and metadata of the indexed document.
func (s *Session) Document() (string, map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docText, cloneMetadata(s.metadata)
}

func documentKey(text string, metadata map[string]string) string {
	h := sha1.New()
	h.Write([]byte(text))
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(metadata[k]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func cloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
