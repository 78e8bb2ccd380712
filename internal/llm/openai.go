package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIClient proposes chunks through any OpenAI-compatible chat completions
// endpoint (OpenAI, Ollama, vLLM).
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	minChars   int
	maxChars   int
	httpClient *http.Client
	stats      *LLMStats
	backoff    func(int) time.Duration
}

// NewOpenAIClient creates a client for baseURL, e.g. "http://localhost:11434/v1".
func NewOpenAIClient(baseURL, apiKey, model string, opts ...ClientOption) *OpenAIClient {
	o := buildOptions(baseURL, opts)
	return &OpenAIClient{
		baseURL:    strings.TrimRight(o.endpoint, "/"),
		apiKey:     apiKey,
		model:      model,
		minChars:   o.minChars,
		maxChars:   o.maxChars,
		httpClient: &http.Client{Timeout: o.timeout},
		stats:      o.stats,
		backoff:    o.backoff,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) Name() string  { return "openai" }
func (c *OpenAIClient) Model() string { return c.model }

// Stats returns the latency tracker.
func (c *OpenAIClient) Stats() *LLMStats { return c.stats }

// ProposeChunks asks the model for chunk proposals, retrying transient failures.
func (c *OpenAIClient) ProposeChunks(ctx context.Context, req ProposalRequest) ([]Proposal, error) {
	prompt := BuildChunkingPrompt(req, c.minChars, c.maxChars)
	return withRetry(ctx, c.backoff, func() ([]Proposal, error) {
		start := time.Now()
		props, err := c.propose(ctx, prompt)
		c.stats.Record(time.Since(start).Milliseconds(), err)
		return props, err
	})
}

func (c *OpenAIClient) propose(ctx context.Context, prompt string) ([]Proposal, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrProviderUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: request failed: %w", ErrProviderUnavailable, err)
		}
		return nil, &RetryableError{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrProviderUnavailable, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: llm returned status %d: %s", ErrProviderUnavailable, resp.StatusCode, truncate(string(respBody), 200))
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrInvalidResponse, err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrInvalidResponse)
	}
	return ParseProposals(out.Choices[0].Message.Content)
}

// Close releases resources.
func (c *OpenAIClient) Close() {
	c.httpClient.CloseIdleConnections()
}
