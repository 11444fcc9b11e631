package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractqa/internal/chunker"
	"contractqa/internal/document"
	"contractqa/internal/domain"
	"contractqa/internal/embedding"
	"contractqa/internal/embedding/local"
	"contractqa/internal/session"
	"contractqa/internal/summarizer"
)

const contract = "Either party may terminate this Agreement with thirty days written notice. " +
	"Payment is due within thirty days of invoice. " +
	"Liability is capped at the fees paid in the preceding twelve months."

type fixedCompleter struct {
	answer string
	err    error
	last   domain.CompletionRequest
}

func (f *fixedCompleter) Name() string { return "fixed" }

func (f *fixedCompleter) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	f.last = req
	return f.answer, f.err
}

type failingSummarizer struct{}

func (failingSummarizer) Summarize(string, int) (string, error) { return "", errors.New("boom") }

func newService(t *testing.T, comp domain.Completer, sum domain.Summarizer) *ContractService {
	t.Helper()
	ch, err := chunker.NewWindowChunker(80, 10)
	require.NoError(t, err)
	sess := session.New(session.Deps{
		Chunker:   ch,
		Embedder:  embedding.NewGateway(local.NewEmbedder(256)),
		Completer: comp,
	}, session.Config{TopK: 1, MaxContextChars: 500})
	return NewContractService(document.NewLoader(), sum, 2, sess, nil)
}

func TestIngestFileAndAsk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msa.txt")
	require.NoError(t, os.WriteFile(path, []byte(contract), 0o644))

	comp := &fixedCompleter{answer: "Thirty days written notice (chunk_0)."}
	svc := newService(t, comp, summarizer.NewFrequencySummarizer())

	ing, err := svc.IngestFile(context.Background(), filepath.Join(filepath.Dir(path), "*.txt"))
	require.NoError(t, err)
	assert.Equal(t, "msa.txt", ing.Document.Metadata["source"])
	assert.Positive(t, ing.Chunks)
	assert.NotEmpty(t, ing.Summary)

	ans, err := svc.Ask(context.Background(), "How can the agreement be terminated?", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, comp.answer, ans.Text)
	require.Len(t, ans.Sources, 1)
	assert.Equal(t, "chunk_0", ans.Sources[0].ChunkID)
	assert.Contains(t, comp.last.UserPrompt, "CHUNK_ID: chunk_0")
	assert.Len(t, svc.Conversation(), 2)
}

func TestIngestFileErrors(t *testing.T) {
	svc := newService(t, &fixedCompleter{answer: "x"}, nil)
	_, err := svc.IngestFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSummaryFailureDoesNotFailIngest(t *testing.T) {
	svc := newService(t, &fixedCompleter{answer: "x"}, failingSummarizer{})
	ing, err := svc.IngestDocument(context.Background(), domain.Document{
		Content:  contract,
		Metadata: map[string]string{"source": "inline"},
	})
	require.NoError(t, err)
	assert.Empty(t, ing.Summary)
	assert.Positive(t, ing.Chunks)
}

func TestClosedServiceRejectsQuestions(t *testing.T) {
	svc := newService(t, &fixedCompleter{answer: "x"}, nil)
	svc.Close()
	_, err := svc.Ask(context.Background(), "anything", 1, 100)
	assert.ErrorIs(t, err, session.ErrClosed)
}
