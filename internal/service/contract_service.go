// Package service ties a document loader, a summarizer and a chat session
// into the operations the terminal front ends call.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"contractqa/internal/document"
	"contractqa/internal/domain"
	"contractqa/internal/session"
)

// ContractService answers questions about one loaded contract.
type ContractService struct {
	loader              domain.DocumentLoader
	summarizer          domain.Summarizer
	summaryMaxSentences int
	session             *session.Session
	log                 *slog.Logger
}

// NewContractService wires the collaborators around an existing session.
func NewContractService(loader domain.DocumentLoader, summarizer domain.Summarizer, summaryMaxSentences int, sess *session.Session, logger *slog.Logger) *ContractService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ContractService{
		loader:              loader,
		summarizer:          summarizer,
		summaryMaxSentences: summaryMaxSentences,
		session:             sess,
		log:                 logger,
	}
}

// Ingested describes the document that was indexed.
type Ingested struct {
	Document domain.Document
	Summary  string
	Chunks   int
}

// IngestFile loads the file matching path, indexes it and summarizes it.
// Ingesting the same file again reuses the existing index.
func (s *ContractService) IngestFile(ctx context.Context, path string) (Ingested, error) {
	doc, err := s.loader.Load(document.Resolve(path))
	if err != nil {
		return Ingested{}, fmt.Errorf("load %s: %w", path, err)
	}
	return s.IngestDocument(ctx, doc)
}

// IngestDocument indexes already extracted text.
func (s *ContractService) IngestDocument(ctx context.Context, doc domain.Document) (Ingested, error) {
	s.log.Info("Indexing document",
		slog.String("source", doc.Metadata["source"]),
		slog.Int("runes", len([]rune(doc.Content))))
	if err := s.session.EnsureIndex(ctx, doc.Content, doc.Metadata); err != nil {
		return Ingested{}, err
	}
	summary := ""
	if s.summarizer != nil {
		var err error
		if summary, err = s.summarizer.Summarize(doc.Content, s.summaryMaxSentences); err != nil {
			s.log.Warn("Summary failed", slog.String("error", err.Error()))
			summary = ""
		}
	}
	return Ingested{Document: doc, Summary: summary, Chunks: s.session.IndexSize()}, nil
}

// Ask answers a question about the ingested contract.
func (s *ContractService) Ask(ctx context.Context, query string, topK, maxContextChars int) (session.Answer, error) {
	return s.session.Ask(ctx, query, topK, maxContextChars)
}

// Conversation returns the turns so far.
func (s *ContractService) Conversation() []domain.Turn {
	return s.session.Conversation()
}

// Close releases the session.
func (s *ContractService) Close() {
	s.session.Close()
}
