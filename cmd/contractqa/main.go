package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"contractqa/internal/chunker"
	"contractqa/internal/config"
	"contractqa/internal/document"
	"contractqa/internal/domain"
	"contractqa/internal/embedding"
	"contractqa/internal/embedding/local"
	embedollama "contractqa/internal/embedding/ollama"
	embedopenai "contractqa/internal/embedding/openai"
	llmollama "contractqa/internal/llm/ollama"
	llmopenai "contractqa/internal/llm/openai"
	"contractqa/internal/logging"
	"contractqa/internal/service"
	"contractqa/internal/session"
	"contractqa/internal/summarizer"
	"contractqa/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath  string
		question string
		verbose  bool
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/contractqa/config.yaml if not provided)")
	flag.StringVar(&question, "q", "", "Ask one question, print the answer and exit")
	flag.BoolVar(&verbose, "verbose", false, "Log at debug level")
	flag.Parse()
	inputs := flag.Args()
	if len(inputs) != 1 {
		fmt.Println("Usage: contractqa [--config=config.yaml] [--verbose] [-q \"question\"] contract.pdf")
		os.Exit(1)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	oneShot := question != ""
	mode := "tui"
	if oneShot {
		mode = "ask"
	}
	logger, logPath, closeLog, err := logging.Setup(logging.Options{
		Level:    cfg.Log.Level,
		Verbose:  verbose,
		File:     cfg.Log.File,
		ToFile:   !oneShot,
		Mode:     mode,
		Document: inputs[0],
	})
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ch, err := chunker.NewWindowChunker(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap)
	if err != nil {
		log.Fatalf("chunker init failed: %v", err)
	}
	emb, err := buildEmbedder(cfg.Embedder, logger)
	if err != nil {
		log.Fatalf("embedder init failed: %v", err)
	}
	comp, err := buildCompleter(cfg.Completion)
	if err != nil {
		log.Fatalf("completion init failed: %v", err)
	}
	var sum domain.Summarizer
	switch cfg.Summarizer.Type {
	case "frequency", "":
		sum = summarizer.NewFrequencySummarizer()
	case "none":
		sum = summarizer.None{}
	default:
		log.Fatalf("unknown summarizer: %s", cfg.Summarizer.Type)
	}

	sessions := session.NewManager(session.Deps{
		Chunker:   ch,
		Embedder:  emb,
		Completer: comp,
		Logger:    logger,
	}, session.Config{
		TopK:              cfg.Retrieval.TopK,
		MaxContextChars:   cfg.Retrieval.MaxContextChars,
		Model:             comp.Name(),
		MaxTokens:         cfg.Completion.MaxTokens,
		Temperature:       cfg.Completion.Temperature,
		CompletionTimeout: cfg.Completion.Timeout(),
	})
	defer sessions.CloseAll()

	svc := service.NewContractService(document.NewLoader(), sum, cfg.Summarizer.MaxSentences, sessions.Create(), logger)
	ingested, err := svc.IngestFile(ctx, inputs[0])
	if err != nil {
		log.Fatalf("ingest failed: %v", err)
	}
	logger.Info("Ready",
		slog.String("source", ingested.Document.Metadata["source"]),
		slog.Int("chunks", ingested.Chunks),
		slog.String("embedder", emb.Name()),
		slog.String("model", comp.Name()))

	if oneShot {
		if err := askOnce(ctx, svc, question, cfg.Retrieval); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if logPath != "" {
		fmt.Fprintf(os.Stderr, "Logging to %s\n", logPath)
	}
	m := tui.New(ctx, svc, tui.Options{
		Source:          filepath.Base(ingested.Document.Path),
		Summary:         ingested.Summary,
		TopK:            cfg.Retrieval.TopK,
		MaxContextChars: cfg.Retrieval.MaxContextChars,
	})
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		log.Fatal(err)
	}
}

func buildEmbedder(cfg config.EmbedderConfig, logger *slog.Logger) (*embedding.Gateway, error) {
	var backend domain.Embedder
	switch cfg.Type {
	case "local", "":
		dim := 0
		if cfg.Local != nil {
			dim = cfg.Local.Dimension
		}
		backend = local.NewEmbedder(dim)
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := embedopenai.NewClient(embedopenai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			APIVersion: cfg.OpenAI.APIVersion,
			Model:      cfg.OpenAI.Model,
			Timeout:    cfg.Timeout(),
		})
		if err != nil {
			return nil, err
		}
		backend = client
	case "ollama":
		if cfg.Ollama == nil {
			return nil, fmt.Errorf("ollama embedder config missing")
		}
		e, err := embedollama.NewEmbedder(embedollama.Config{
			Host:    cfg.Ollama.Host,
			Model:   cfg.Ollama.Model,
			Timeout: cfg.Timeout(),
		})
		if err != nil {
			return nil, err
		}
		backend = e
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}

	opts := []embedding.Option{
		embedding.WithTimeout(cfg.Timeout()),
		embedding.WithLogger(logger),
		embedding.WithProgress(embedding.NewBarProgress(true)),
	}
	if cfg.BatchSize > 0 {
		opts = append(opts, embedding.WithBatching(cfg.BatchSize, cfg.MaxConcurrent))
	}
	return embedding.NewGateway(backend, opts...), nil
}

func buildCompleter(cfg config.CompletionConfig) (domain.Completer, error) {
	switch cfg.Type {
	case "openai", "":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai completion config missing")
		}
		return llmopenai.NewCompleter(llmopenai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			APIVersion: cfg.OpenAI.APIVersion,
			Model:      cfg.OpenAI.Model,
			Timeout:    cfg.Timeout(),
		})
	case "ollama":
		if cfg.Ollama == nil {
			return nil, fmt.Errorf("ollama completion config missing")
		}
		return llmollama.NewCompleter(llmollama.Config{
			Host:    cfg.Ollama.Host,
			Model:   cfg.Ollama.Model,
			Timeout: cfg.Timeout(),
		})
	}
	return nil, fmt.Errorf("unknown completion backend: %s", cfg.Type)
}

func askOnce(ctx context.Context, svc *service.ContractService, question string, cfg config.RetrievalConfig) error {
	ans, err := svc.Ask(ctx, question, cfg.TopK, cfg.MaxContextChars)
	if err != nil {
		return err
	}
	fmt.Println(ans.Text)
	if len(ans.Sources) > 0 {
		fmt.Println()
		fmt.Println("Retrieved chunks:")
		for _, r := range ans.Sources {
			fmt.Printf("- %s (%.3f): %s\n", r.ChunkID, r.Score, tui.Snippet(r.Text, tui.SnippetChars))
		}
	}
	return nil
}
