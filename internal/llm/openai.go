package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// ErrExhausted is returned when every retry attempt against the LLM
// transport has failed. Callers propagate it up as a run-ending failure
// per spec.md §7's "LLM transport exhaustion" category.
var ErrExhausted = errors.New("llm transport exhausted its retry budget")

// OpenAIConfig configures an OpenAIClient.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration

	// MaxRetries bounds the retry-with-backoff loop for transient errors
	// (429, 502, 503, 504, and connection-level failures).
	MaxRetries int

	// RequestsPerSecond paces outbound calls so a single run doesn't
	// hammer the provider harder than the account's rate limit allows.
	RequestsPerSecond float64
}

// DefaultOpenAIConfig fills in the values spec.md §6's Configuration
// section leaves as defaults.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:             "gpt-4o-mini",
		Timeout:           60 * time.Second,
		MaxRetries:        3,
		RequestsPerSecond: 2,
	}
}

// OpenAIClient implements Client against an OpenAI-compatible chat
// completions endpoint (OpenAI itself, or any local server exposing the
// same wire format).
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	retries int
	limiter *rate.Limiter
}

// NewOpenAIClient builds an OpenAIClient. When cfg.BaseURL is set, it
// points the underlying SDK at that URL instead of the public OpenAI API,
// which is how a local/self-hosted backend is wired per spec.md's
// llm.baseUrl configuration key.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		retries: cfg.MaxRetries,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Generate implements Client.
func (c *OpenAIClient) Generate(ctx context.Context, role Role, prompt string, temperature float64) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: float32(temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPreamble(role)},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return "", err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.client.CreateChatCompletion(callCtx, req)
		cancel()

		if err == nil {
			if len(resp.Choices) == 0 {
				return "", nil
			}
			return resp.Choices[0].Message.Content, nil
		}

		lastErr = err
		if !isRetryable(err) {
			return "", fmt.Errorf("llm request failed: %w", err)
		}
	}

	return "", fmt.Errorf("%w: %v", ErrExhausted, lastErr)
}

// isRetryable reports whether an error from the OpenAI SDK is worth
// retrying: rate limiting, server-side unavailability, or a bare
// connection failure. Anything else (bad request, auth failure) is
// permanent and should fail the run immediately.
func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}
	// Anything that isn't a structured API error (timeouts, connection
	// resets) is treated as transient.
	return true
}

// sleepBackoff waits an exponentially increasing, jittered delay before
// the next retry attempt.
func sleepBackoff(ctx context.Context, attempt int) error {
	base := time.Duration(1<<uint(attempt-1)) * 200 * time.Millisecond
	jitter := time.Duration(rand.Int63n(int64(base) + 1))
	delay := base + jitter

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
