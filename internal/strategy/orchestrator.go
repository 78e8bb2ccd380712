// Package strategy selects one chunking method per document. Methods are
// tried in a fixed order and the first success ends the run; the
// fixed-window splitter is always last and cannot fail on non-blank text.
package strategy

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docchunk/internal/chunker"
	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/llm"
)

var (
	// ErrEmptyInput is returned for documents with no non-whitespace text.
	ErrEmptyInput = errors.New("strategy: empty input")
	// ErrInternal wraps a panic recovered from a chunking method.
	ErrInternal = errors.New("strategy: internal error")
)

// State is a step of the fallback state machine.
type State int

const (
	NotStarted State = iota
	TryPrimary
	TrySecondary
	TryTertiary
	Fallback
	Done
)

var stateNames = [...]string{"not_started", "try_primary", "try_secondary", "try_tertiary", "fallback", "done"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) next() State {
	if s >= Done {
		return Done
	}
	return s + 1
}

// Outcome is the successful output of exactly one method. It is implemented
// only by StructuralResult, LLMResult and FixedWindowResult.
type Outcome interface{ outcome() }

// StructuralResult is produced by the hierarchy-aware pipeline.
type StructuralResult struct {
	Chunks []doctree.Chunk
}

// LLMResult is produced by an LLM-assisted method.
type LLMResult struct {
	Method   doctree.Method
	Provider string
	Chunks   []doctree.Chunk
}

// FixedWindowResult is produced by the fixed-window splitter.
type FixedWindowResult struct {
	Chunks []doctree.Chunk
}

func (StructuralResult) outcome()  {}
func (LLMResult) outcome()         {}
func (FixedWindowResult) outcome() {}

// Config selects the method chain.
type Config struct {
	Method         doctree.Method   // Primary method
	Fallbacks      []doctree.Method // Up to two methods tried before fixed-window
	DocumentType   string           // Hint passed to LLM providers
	LLMTimeout     time.Duration    // Bound on one LLM proposal call
	MaxInputTokens int              // Larger documents skip LLM methods
}

// DefaultConfig returns the structural-first chain.
func DefaultConfig() Config {
	return Config{
		Method:         doctree.MethodStructural,
		LLMTimeout:     60 * time.Second,
		MaxInputTokens: 150000,
	}
}

// Orchestrator runs the fallback state machine. Configuration is immutable
// after New, so Run may be called concurrently.
type Orchestrator struct {
	cfg      Config
	engine   *chunker.Engine
	provider llm.Provider
	log      *slog.Logger
}

// New creates an orchestrator. provider may be nil, in which case LLM methods
// fail over immediately.
func New(cfg Config, engine *chunker.Engine, provider llm.Provider, log *slog.Logger) *Orchestrator {
	if cfg.Method == "" {
		cfg.Method = doctree.MethodStructural
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = DefaultConfig().LLMTimeout
	}
	if cfg.MaxInputTokens <= 0 {
		cfg.MaxInputTokens = DefaultConfig().MaxInputTokens
	}
	cfg.Fallbacks = normalizeFallbacks(cfg.Method, cfg.Fallbacks)
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{cfg: cfg, engine: engine, provider: provider, log: log}
}

// normalizeFallbacks drops duplicates and fixed-window entries, which always
// run last, and keeps at most two.
func normalizeFallbacks(primary doctree.Method, in []doctree.Method) []doctree.Method {
	seen := map[doctree.Method]bool{primary: true, doctree.MethodTraditional: true}
	var out []doctree.Method
	for _, m := range in {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
		if len(out) == 2 {
			break
		}
	}
	return out
}

// Chain lists the methods in the order they are tried.
func (o *Orchestrator) Chain() []doctree.Method {
	var chain []doctree.Method
	for s := TryPrimary; s != Done; s = s.next() {
		if m, ok := o.methodFor(s); ok {
			chain = append(chain, m)
		}
	}
	return chain
}

func (o *Orchestrator) methodFor(s State) (doctree.Method, bool) {
	switch s {
	case TryPrimary:
		return o.cfg.Method, true
	case TrySecondary:
		if len(o.cfg.Fallbacks) > 0 {
			return o.cfg.Fallbacks[0], true
		}
	case TryTertiary:
		if len(o.cfg.Fallbacks) > 1 {
			return o.cfg.Fallbacks[1], true
		}
	case Fallback:
		if o.cfg.Method != doctree.MethodTraditional {
			return doctree.MethodTraditional, true
		}
	}
	return "", false
}

// Run chunks one document. docID may be empty, in which case an ID is
// derived from the text. Only empty input and cancellation of ctx are
// returned as errors; every method failure advances the chain.
func (o *Orchestrator) Run(ctx context.Context, docID string, src doctree.Source) (*doctree.ChunkingResult, error) {
	if strings.TrimSpace(src.Text) == "" {
		return nil, ErrEmptyInput
	}
	sum := sha256.Sum256([]byte(src.Text))
	if docID == "" {
		docID = uuid.NewSHA1(uuid.NameSpaceOID, sum[:]).String()
	}
	log := o.log.With("document_id", docID)

	plan := o.engine.Analyze(src)

	var (
		outcome  Outcome
		attempts []doctree.Attempt
		lastErr  error
	)
	for state := TryPrimary; state != Done; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		method, ok := o.methodFor(state)
		if !ok {
			state = state.next()
			continue
		}
		out, err := o.attempt(ctx, method, plan)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Warn("chunking method failed", "method", method, "state", state, "error", err)
			attempts = append(attempts, doctree.Attempt{Method: method, Error: err.Error()})
			lastErr = err
			state = state.next()
			continue
		}
		attempts = append(attempts, doctree.Attempt{Method: method})
		outcome = out
		state = Done
	}
	if outcome == nil {
		return nil, fmt.Errorf("strategy: no method produced chunks: %w", lastErr)
	}

	var (
		used   doctree.Method
		chunks []doctree.Chunk
	)
	switch r := outcome.(type) {
	case StructuralResult:
		used, chunks = doctree.MethodStructural, r.Chunks
	case LLMResult:
		used, chunks = r.Method, r.Chunks
		log = log.With("provider", r.Provider)
	case FixedWindowResult:
		used, chunks = doctree.MethodTraditional, r.Chunks
	default:
		panic(fmt.Sprintf("strategy: unhandled outcome %T", outcome))
	}

	assignIDs(chunks, sum[:])
	log.Info("document chunked", "method_used", used, "chunks", len(chunks), "attempts", len(attempts))
	return &doctree.ChunkingResult{
		DocumentID: docID,
		Chunks:     chunks,
		MethodUsed: used,
		Summary:    doctree.Summarize(chunks, plan.HeadedSections()),
		Attempts:   attempts,
	}, nil
}

// attempt runs one method, converting a panic into ErrInternal.
func (o *Orchestrator) attempt(ctx context.Context, method doctree.Method, plan *chunker.Plan) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %s: %v", ErrInternal, method, r)
		}
	}()

	switch method {
	case doctree.MethodStructural:
		chunks, err := o.engine.Finish(plan, o.engine.Assemble(plan), doctree.MethodStructural)
		if err != nil {
			return nil, err
		}
		return StructuralResult{Chunks: chunks}, nil
	case doctree.MethodLLMAssisted, doctree.MethodLangExtractLike:
		return o.runLLM(ctx, method, plan)
	case doctree.MethodTraditional:
		chunks := o.engine.FixedWindow(plan)
		if len(chunks) == 0 {
			return nil, chunker.ErrEmptyOutput
		}
		return FixedWindowResult{Chunks: chunks}, nil
	default:
		return nil, fmt.Errorf("strategy: unknown method %q", method)
	}
}

func (o *Orchestrator) runLLM(ctx context.Context, method doctree.Method, plan *chunker.Plan) (Outcome, error) {
	if o.provider == nil {
		return nil, fmt.Errorf("%w: no provider configured", llm.ErrProviderUnavailable)
	}
	if n := chunker.EstimateTokens(plan.Text); n > o.cfg.MaxInputTokens {
		return nil, fmt.Errorf("%w: ~%d tokens, limit %d", llm.ErrInputTooLarge, n, o.cfg.MaxInputTokens)
	}

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.LLMTimeout)
	defer cancel()

	props, err := o.provider.ProposeChunks(callCtx, llm.ProposalRequest{
		Text:              plan.Text,
		DocumentType:      o.cfg.DocumentType,
		PreserveStructure: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", o.provider.Name(), err)
	}

	spans, err := anchorProposals(plan, props)
	if err != nil {
		return nil, err
	}
	chunks, err := o.engine.Finish(plan, spans, method)
	if err != nil {
		return nil, err
	}
	return LLMResult{Method: method, Provider: o.provider.Name(), Chunks: chunks}, nil
}

var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:docchunk:chunk"))

// assignIDs gives every chunk an ID derived from the document content, its
// position and its span, so rerunning a document reproduces the same IDs.
func assignIDs(chunks []doctree.Chunk, docHash []byte) {
	for i := range chunks {
		name := fmt.Sprintf("%x:%d:%d:%d", docHash, chunks[i].Index, chunks[i].Start, chunks[i].End)
		chunks[i].ID = uuid.NewSHA1(chunkNamespace, []byte(name)).String()
	}
}
