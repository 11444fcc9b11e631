// Package ollama answers prompts with an Ollama chat model.
package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"contractqa/internal/domain"
	embedollama "contractqa/internal/embedding/ollama"
)

const DefaultModel = "llama3.1"

// Config configures the Ollama completer. An empty Host falls back to OLLAMA_HOST.
type Config struct {
	Host    string
	Model   string
	Timeout time.Duration
}

// Completer handles interactions with the Ollama chat API.
type Completer struct {
	client *api.Client
	model  string
}

var _ domain.Completer = (*Completer)(nil)

// NewCompleter creates an Ollama chat client.
func NewCompleter(cfg Config) (*Completer, error) {
	client, err := embedollama.NewAPIClient(cfg.Host, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Completer{client: client, model: cfg.Model}, nil
}

// Name returns the configured model.
func (o *Completer) Name() string { return o.model }

// Complete runs a non-streaming chat with a system and a user message.
func (o *Completer) Complete(ctx context.Context, in domain.CompletionRequest) (string, error) {
	model := in.Model
	if model == "" {
		model = o.model
	}
	stream := false
	options := map[string]any{"temperature": in.Temperature}
	if in.MaxTokens > 0 {
		options["num_predict"] = in.MaxTokens
	}
	req := api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{Role: "system", Content: in.SystemPrompt},
			{Role: "user", Content: in.UserPrompt},
		},
		Stream:  &stream,
		Options: options,
	}

	var answer strings.Builder
	err := o.client.Chat(ctx, &req, func(resp api.ChatResponse) error {
		_, err := answer.WriteString(resp.Message.Content)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}
	return answer.String(), nil
}
