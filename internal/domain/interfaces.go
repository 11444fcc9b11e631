package domain

import "context"

// Document is the extracted text of one uploaded contract.
type Document struct {
	ID       string
	Path     string
	Content  string
	Metadata map[string]string
}

// Chunk is an overlapping window of document text with its embedding.
// Start and End are rune offsets into the source text.
type Chunk struct {
	ID       string
	Index    int
	Text     string
	Start    int
	End      int
	Vector   []float64
	Metadata map[string]string
}

// SearchResult is an indexed chunk paired with its similarity to a query vector.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// RetrievalResult is the per-query view of a matching chunk handed to the session and UI.
type RetrievalResult struct {
	ChunkID string
	Text    string
	Score   float64
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	Role    Role
	Message string
}

// CompletionRequest is a single system+user prompt for a chat-completion model.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// Chunker splits a document into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Embedder converts an ordered batch of texts into one vector per text, in input order.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Completer issues chat-completion calls.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// DocumentLoader turns a file on disk into extracted document text.
type DocumentLoader interface {
	Load(path string) (Document, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
