package domain

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching against the typed errors below.
var (
	ErrConfiguration    = errors.New("invalid configuration")
	ErrInvalidQuery     = errors.New("invalid query")
	ErrEmbeddingService = errors.New("embedding service error")
	ErrAnswerGeneration = errors.New("answer generation error")
)

// ConfigurationError reports an invalid sizing or setting.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s=%v: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// InvalidQueryError reports an empty or whitespace-only question.
type InvalidQueryError struct {
	Query string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query %q: question must not be empty", e.Query)
}

func (e *InvalidQueryError) Is(target error) bool { return target == ErrInvalidQuery }

// EmbeddingServiceError wraps any failure of the embedding collaborator,
// including transport errors, timeouts and malformed or mismatched responses.
type EmbeddingServiceError struct {
	Op    string
	Count int
	Cause error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding %s (%d texts): %v", e.Op, e.Count, e.Cause)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Cause }

func (e *EmbeddingServiceError) Is(target error) bool { return target == ErrEmbeddingService }

// AnswerGenerationError wraps a failed or empty chat-completion call.
type AnswerGenerationError struct {
	Model string
	Cause error
}

func (e *AnswerGenerationError) Error() string {
	return fmt.Sprintf("answer generation with %s: %v", e.Model, e.Cause)
}

func (e *AnswerGenerationError) Unwrap() error { return e.Cause }

func (e *AnswerGenerationError) Is(target error) bool { return target == ErrAnswerGeneration }
