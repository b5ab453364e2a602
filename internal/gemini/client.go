// Package gemini wraps the Gemini API behind the small generate port the
// reasoning strategies consume.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/lokeshpanthangi/Prompt-pipeing/internal/config"
)

// Params are the generation parameters for a single call.
type Params struct {
	Temperature    float64
	TopP           float64
	TopK           int
	MaxTokens      int
	CandidateCount int
}

// ParamsFromConfig builds default generation parameters from configuration.
func ParamsFromConfig(cfg config.GeminiConfig) Params {
	return Params{
		Temperature:    cfg.Temperature,
		TopP:           cfg.TopP,
		TopK:           cfg.TopK,
		MaxTokens:      cfg.MaxTokens,
		CandidateCount: cfg.CandidateCount,
	}
}

// Generator is the outbound language-model port. Implementations must be
// safe for concurrent use; every failure is a *TransportError.
type Generator interface {
	Generate(ctx context.Context, prompt string, p Params) (string, error)
}

// Client calls the Gemini API with rate limiting and usage accounting.
type Client struct {
	api     *genai.Client
	model   string
	limiter *limiter
	usage   *Usage
}

// NewClient constructs a Gemini client. The API key comes from the
// GEMINI_API_KEY environment variable when cfg carries none.
func NewClient(ctx context.Context, apiKey string, cfg config.GeminiConfig) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is required (set GEMINI_API_KEY)")
	}
	api, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{
		api:     api,
		model:   cfg.Model,
		limiter: newLimiter(cfg.RequestsPerMinute),
		usage:   newUsage(cfg.MaxDailyRequests),
	}, nil
}

// Generate issues one generation request and returns the response text.
func (c *Client) Generate(ctx context.Context, prompt string, p Params) (string, error) {
	if err := c.usage.reserve(); err != nil {
		return "", &TransportError{Kind: FailureRateLimited, Err: err}
	}
	if err := c.limiter.wait(ctx); err != nil {
		return "", classify(err)
	}

	resp, err := c.api.Models.GenerateContent(ctx, c.model, genai.Text(prompt), generateConfig(p))
	if err != nil {
		te := classify(err)
		log.Debug().Str("kind", string(te.Kind)).Err(err).Msg("gemini: generate failed")
		return "", te
	}

	text := strings.TrimSpace(resp.Text())
	c.usage.record(resp, len(text))
	return text, nil
}

// Usage returns a snapshot of the client's usage counters.
func (c *Client) UsageSnapshot() UsageSnapshot {
	return c.usage.snapshot()
}

func generateConfig(p Params) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(p.Temperature)),
		TopP:            genai.Ptr(float32(p.TopP)),
		MaxOutputTokens: int32(p.MaxTokens),
	}
	if p.TopK > 0 {
		cfg.TopK = genai.Ptr(float32(p.TopK))
	}
	if p.CandidateCount > 0 {
		cfg.CandidateCount = int32(p.CandidateCount)
	}
	return cfg
}
