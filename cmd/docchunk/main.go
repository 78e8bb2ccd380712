// Command docchunk chunks a local document and prints the ChunkingResult
// as JSON.
//
//	docchunk [-method structural] [-fallbacks llm_assisted] [-policy policy.yaml] [-pretty] file
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dgallion1/docchunk/internal/chunker"
	"github.com/dgallion1/docchunk/internal/config"
	"github.com/dgallion1/docchunk/internal/llm"
	"github.com/dgallion1/docchunk/internal/parser"
	"github.com/dgallion1/docchunk/internal/strategy"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "docchunk:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("docchunk", flag.ContinueOnError)
	fs.SetOutput(stderr)
	method := fs.String("method", "", "primary chunking method (overrides CHUNKING_METHOD)")
	fallbacks := fs.String("fallbacks", "", "comma-separated fallback methods (overrides CHUNKING_FALLBACKS)")
	policyPath := fs.String("policy", "", "chunking policy YAML (overrides POLICY_FILE)")
	docID := fs.String("id", "", "document ID (default: derived from content)")
	pretty := fs.Bool("pretty", false, "indent JSON output")
	verbose := fs.Bool("v", false, "log strategy attempts to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected one input file, got %d", fs.NArg())
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *method != "" {
		cfg.ChunkingMethod = *method
	}
	if *fallbacks != "" {
		cfg.ChunkingFallbacks = strings.Split(*fallbacks, ",")
	}
	if *policyPath != "" {
		cfg.PolicyFile = *policyPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return err
	}
	engineOpts, err := policy.EngineOptions()
	if err != nil {
		return err
	}

	path := fs.Arg(0)
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	src, err := parser.Parse(f, path, parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext})
	if err != nil {
		return err
	}

	var provider llm.Provider
	switch cfg.LLMProvider {
	case config.ProviderClaude:
		c := llm.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, llm.WithChunkSizes(cfg.MinChunkSize, cfg.MaxChunkSize))
		defer c.Close()
		provider = c
	case config.ProviderOpenAI:
		c := llm.NewOpenAIClient(cfg.OpenAIURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, llm.WithChunkSizes(cfg.MinChunkSize, cfg.MaxChunkSize))
		defer c.Close()
		provider = c
	}

	scfg := strategy.DefaultConfig()
	scfg.Method = cfg.Method()
	scfg.Fallbacks = cfg.Fallbacks()
	scfg.DocumentType = cfg.DocumentType
	scfg.LLMTimeout = cfg.LLMTimeout
	orch := strategy.New(scfg, chunker.New(cfg.ChunkerConfig(), engineOpts...), provider, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	start := time.Now()
	res, err := orch.Run(ctx, *docID, *src)
	if err != nil {
		return err
	}
	log.Info("chunked", "file", path, "chunks", len(res.Chunks), "method", res.MethodUsed, "elapsed", time.Since(start))

	enc := json.NewEncoder(stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(res)
}
