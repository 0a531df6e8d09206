package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/idem-lexis/lexis-api/internal/logging"
	"github.com/idem-lexis/lexis-api/internal/metrics"
)

const repairSystemPrompt = "You repair malformed JSON. Reply with the corrected JSON document only, " +
	"without markdown fences or commentary. Keep every field and value the original intended."

// RetryConfig holds retry configuration for provider calls.
type RetryConfig struct {
	MaxAttempts int
	BackoffBase time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryConfig returns the retry policy used in production.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BackoffBase: time.Second,
		MaxBackoff:  10 * time.Second,
	}
}

// Client wraps a Provider with rate limiting, retries, metrics and JSON recovery.
type Client struct {
	provider Provider
	limiter  *rate.Limiter
	retry    RetryConfig
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimit caps provider calls to rps with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// WithRetry overrides the retry policy.
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

func NewClient(p Provider, opts ...Option) *Client {
	c := &Client{
		provider: p,
		limiter:  rate.NewLimiter(rate.Inf, 1),
		retry:    DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.MaxAttempts < 1 {
		c.retry.MaxAttempts = 1
	}
	return c
}

// ProviderName returns the name of the wrapped provider.
func (c *Client) ProviderName() string {
	return c.provider.Name()
}

// Generate returns the raw text reply, retrying transient provider errors.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	logger := logging.New(ctx)
	backoff := c.retry.BackoffBase

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}

		start := time.Now()
		text, err := c.provider.Generate(ctx, req)
		metrics.ObserveLLMCall(c.provider.Name(), time.Since(start), err)

		if err == nil {
			if strings.TrimSpace(text) == "" {
				return "", ErrEmptyResponse
			}
			logger.Debug("llm_generate", "completion received",
				zap.String("provider", c.provider.Name()),
				zap.Int("attempt", attempt),
				zap.Int("response_len", len(text)),
				zap.Duration("latency", time.Since(start)))
			return text, nil
		}

		lastErr = err
		if !IsTransient(err) || attempt == c.retry.MaxAttempts {
			break
		}
		logger.Warn("llm_generate", "transient provider error, retrying",
			zap.String("provider", c.provider.Name()),
			zap.Int("attempt", attempt),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, c.retry.MaxBackoff)
	}

	logger.Error("llm_generate", lastErr, zap.String("provider", c.provider.Name()))
	return "", fmt.Errorf("%s generate: %w", c.provider.Name(), lastErr)
}

// GenerateJSON asks for a JSON reply and decodes it into out (a pointer).
//
// Recovery runs in order: parse the reply as is, parse the JSON extracted
// from it, then re-prompt once with the broken output and the parse error.
func (c *Client) GenerateJSON(ctx context.Context, req Request, out any) error {
	req.JSON = true
	text, err := c.Generate(ctx, req)
	if err != nil {
		return err
	}

	stage, parseErr := decodeJSON(text, out)
	if parseErr == nil {
		metrics.ObserveJSONParse(stage)
		return nil
	}

	logging.New(ctx).Warn("llm_generate_json", "reply is not valid JSON, asking the model to repair it",
		zap.String("provider", c.provider.Name()),
		zap.Error(parseErr))

	fix := Request{
		System:    repairSystemPrompt,
		Prompt:    fmt.Sprintf("The JSON below failed to parse with error: %v\n\n%s", parseErr, text),
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		JSON:      true,
	}
	repaired, err := c.Generate(ctx, fix)
	if err != nil {
		return fmt.Errorf("repair prompt: %w", err)
	}

	if _, parseErr = decodeJSON(repaired, out); parseErr != nil {
		metrics.ObserveJSONParse("failed")
		return fmt.Errorf("%w: %v", ErrInvalidJSON, parseErr)
	}
	metrics.ObserveJSONParse("reprompt")
	return nil
}

// decodeJSON tries the direct and the extracted parse. It reports which
// stage succeeded, or the error of the last stage attempted.
func decodeJSON(text string, out any) (string, error) {
	resetValue(out)
	err := json.Unmarshal([]byte(strings.TrimSpace(text)), out)
	if err == nil {
		return "direct", nil
	}

	extracted := ExtractJSON(text)
	if extracted == "" {
		return "", err
	}
	resetValue(out)
	if err := json.Unmarshal([]byte(extracted), out); err != nil {
		return "", err
	}
	return "extracted", nil
}

// resetValue zeroes *out so a failed partial decode does not leak into the next attempt.
func resetValue(out any) {
	v := reflect.ValueOf(out)
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		v.Elem().SetZero()
	}
}
