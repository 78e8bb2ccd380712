package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const anthropicURL = "https://api.anthropic.com/v1/messages"

// ClaudeClient proposes chunks through the Anthropic Messages API.
type ClaudeClient struct {
	apiKey     string
	model      string
	endpoint   string
	minChars   int
	maxChars   int
	httpClient *http.Client
	stats      *LLMStats
	backoff    func(int) time.Duration
}

// ClientOption configures an LLM client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	endpoint string
	minChars int
	maxChars int
	stats    *LLMStats
	backoff  func(int) time.Duration
	timeout  time.Duration
}

// WithEndpoint overrides the API URL.
func WithEndpoint(url string) ClientOption {
	return func(o *clientOptions) { o.endpoint = url }
}

// WithChunkSizes sets the chunk size range requested in the prompt.
func WithChunkSizes(minChars, maxChars int) ClientOption {
	return func(o *clientOptions) { o.minChars, o.maxChars = minChars, maxChars }
}

// WithStats records call latencies into s.
func WithStats(s *LLMStats) ClientOption {
	return func(o *clientOptions) { o.stats = s }
}

// WithBackoff replaces the retry backoff schedule.
func WithBackoff(f func(int) time.Duration) ClientOption {
	return func(o *clientOptions) { o.backoff = f }
}

// WithHTTPTimeout sets the per-request HTTP timeout.
func WithHTTPTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) { o.timeout = d }
}

func buildOptions(endpoint string, opts []ClientOption) clientOptions {
	o := clientOptions{
		endpoint: endpoint,
		minChars: 1000,
		maxChars: 1500,
		backoff:  Backoff,
		timeout:  120 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.stats == nil {
		o.stats = NewLLMStats(time.Hour)
	}
	return o
}

func NewClaudeClient(apiKey, model string, opts ...ClientOption) *ClaudeClient {
	o := buildOptions(anthropicURL, opts)
	return &ClaudeClient{
		apiKey:     apiKey,
		model:      model,
		endpoint:   o.endpoint,
		minChars:   o.minChars,
		maxChars:   o.maxChars,
		httpClient: &http.Client{Timeout: o.timeout},
		stats:      o.stats,
		backoff:    o.backoff,
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *ClaudeClient) Name() string  { return "claude" }
func (c *ClaudeClient) Model() string { return c.model }

// Stats returns the latency tracker.
func (c *ClaudeClient) Stats() *LLMStats { return c.stats }

// ProposeChunks asks Claude for chunk proposals, retrying transient failures.
func (c *ClaudeClient) ProposeChunks(ctx context.Context, req ProposalRequest) ([]Proposal, error) {
	prompt := BuildChunkingPrompt(req, c.minChars, c.maxChars)
	return withRetry(ctx, c.backoff, func() ([]Proposal, error) {
		start := time.Now()
		props, err := c.propose(ctx, prompt)
		c.stats.Record(time.Since(start).Milliseconds(), err)
		return props, err
	})
}

func (c *ClaudeClient) propose(ctx context.Context, prompt string) ([]Proposal, error) {
	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: 16384,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrProviderUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: claude api: %w", ErrProviderUnavailable, err)
		}
		return nil, &RetryableError{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrProviderUnavailable, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: claude api status %d: %s", ErrProviderUnavailable, resp.StatusCode, truncate(string(respBody), 200))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrInvalidResponse, err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("%w: claude error: %s: %s", ErrProviderUnavailable, apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Content) == 0 {
		return nil, fmt.Errorf("%w: empty response from claude", ErrInvalidResponse)
	}

	return ParseProposals(apiResp.Content[0].Text)
}

// Close releases resources.
func (c *ClaudeClient) Close() {
	c.httpClient.CloseIdleConnections()
}
