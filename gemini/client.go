// Package gemini implements the LLM client collaborator using Google
// Gemini. It owns rate limiting, bounded retries with a fixed cooldown,
// and image encoding; callers see either a text reply or the failure
// left after retry exhaustion.
package gemini

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mwielgus/pagekb"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

// Config controls call pacing and retry behavior.
type Config struct {
	Model string

	// Minimum delay between consecutive API calls.
	APIDelay time.Duration

	// Total attempts per call before failing outward.
	MaxRetries int

	// Fixed cooldown between attempts after a retryable failure.
	RetryDelay time.Duration
}

// DefaultConfig returns the pacing used for knowledge-base generation
// runs.
func DefaultConfig() Config {
	return Config{
		Model:      defaultModel,
		APIDelay:   2 * time.Second,
		MaxRetries: 5,
		RetryDelay: 60 * time.Second,
	}
}

// Ensure Client implements pagekb.LLMClient at compile time.
var _ pagekb.LLMClient = (*Client)(nil)

// Client implements pagekb.LLMClient using Google Gemini.
type Client struct {
	client  *genai.Client
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a new Client. The limiter has burst 1, so every
// call waits out the configured delay since the previous one.
func NewClient(client *genai.Client, cfg Config, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.APIDelay), 1),
		logger:  logger,
	}
}

// Model returns the model identifier recorded in output metadata.
func (c *Client) Model() string {
	return c.cfg.Model
}

// CallTextOnly sends a text-only prompt and returns the raw reply.
func (c *Client) CallTextOnly(ctx context.Context, systemPrompt, userPrompt string, maxOutputTokens int) (string, error) {
	return c.generate(ctx, systemPrompt, []*genai.Part{{Text: userPrompt}}, maxOutputTokens)
}

// CallWithImages attaches the images at the given local paths ahead of
// the user prompt.
func (c *Client) CallWithImages(ctx context.Context, systemPrompt, userPrompt string, imagePaths []string, maxOutputTokens int) (string, error) {
	parts := c.ImageParts(imagePaths)
	parts = append(parts, &genai.Part{Text: userPrompt})
	return c.generate(ctx, systemPrompt, parts, maxOutputTokens)
}

func (c *Client) generate(ctx context.Context, systemPrompt string, parts []*genai.Part, maxOutputTokens int) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
		MaxOutputTokens: int32(maxOutputTokens),
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		result, err := c.client.Models.GenerateContent(ctx, c.cfg.Model,
			[]*genai.Content{{Parts: parts}},
			config,
		)
		if err == nil {
			if result == nil {
				return "", pagekb.Errorf(pagekb.EINTERNAL, "gemini returned nil result")
			}
			return result.Text(), nil
		}
		lastErr = err

		if !isRetryable(err) {
			return "", err
		}
		if attempt == c.cfg.MaxRetries {
			break
		}

		c.logger.Warn("gemini call failed, cooling down",
			"attempt", attempt,
			"max_retries", c.cfg.MaxRetries,
			"cooldown", c.cfg.RetryDelay,
			"error", err)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.cfg.RetryDelay):
		}
	}

	return "", pagekb.Errorf(pagekb.EUNAVAILABLE, "gemini call failed after %d attempts: %v", c.cfg.MaxRetries, lastErr)
}

// isRetryable reports whether an error is a rate limit or transient
// server failure worth another attempt.
func isRetryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return false
}
