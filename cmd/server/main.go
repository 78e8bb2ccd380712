package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docchunk/internal/api"
	"github.com/dgallion1/docchunk/internal/chunker"
	"github.com/dgallion1/docchunk/internal/config"
	"github.com/dgallion1/docchunk/internal/llm"
	"github.com/dgallion1/docchunk/internal/parser"
	"github.com/dgallion1/docchunk/internal/pathstore"
	"github.com/dgallion1/docchunk/internal/pipeline"
	"github.com/dgallion1/docchunk/internal/strategy"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err == nil {
		err = cfg.ValidateServer()
	}
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		log.Error("invalid chunking policy", "error", err)
		os.Exit(1)
	}
	engineOpts, err := policy.EngineOptions()
	if err != nil {
		log.Error("invalid chunking policy", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	ps := pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
	publisher := pathstore.NewPublisher(ps, cfg.MaxConcurrentStore, log)
	provider, stats, closeProvider := newProvider(cfg)

	// Initialize chunking.
	chunkCfg := cfg.ChunkerConfig()
	engine := chunker.New(chunkCfg, engineOpts...)
	scfg := strategy.DefaultConfig()
	scfg.Method = cfg.Method()
	scfg.Fallbacks = cfg.Fallbacks()
	scfg.DocumentType = cfg.DocumentType
	scfg.LLMTimeout = cfg.LLMTimeout
	chunks := strategy.New(scfg, engine, provider, log)
	parserOpts := parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(pipeline.Options{
		Workers:    cfg.WorkerCount,
		QueueSize:  cfg.MaxQueueSize,
		JobTTL:     cfg.JobTTL,
		ParserOpts: parserOpts,
	}, chunks, publisher, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(api.Deps{
		Pipeline:   orch,
		Chunker:    chunks,
		Documents:  publisher,
		Stats:      stats,
		ParserOpts: parserOpts,
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		closeProvider()
		ps.Close()
	}()

	log.Info("starting docchunk",
		"port", cfg.Port,
		"chain", scfg.Method,
		"fallbacks", scfg.Fallbacks,
		"llm_provider", cfg.LLMProvider,
	)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// newProvider builds the configured LLM backend. With LLM_PROVIDER=none all
// three results are inert and LLM methods fall through to the next strategy.
func newProvider(cfg config.Config) (llm.Provider, api.StatsSource, func()) {
	opts := []llm.ClientOption{
		llm.WithChunkSizes(cfg.MinChunkSize, cfg.MaxChunkSize),
		llm.WithStats(llm.NewLLMStats(time.Hour)),
	}
	switch cfg.LLMProvider {
	case config.ProviderClaude:
		c := llm.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, opts...)
		return c, c, c.Close
	case config.ProviderOpenAI:
		c := llm.NewOpenAIClient(cfg.OpenAIURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, opts...)
		return c, c, c.Close
	}
	return nil, nil, func() {}
}
