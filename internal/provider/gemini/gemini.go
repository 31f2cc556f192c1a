// Package gemini implements provider.Generator against the Google
// generative language REST API (models/{model}:generateContent).
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ronitrai27/looma-agent/internal/provider"
)

// Client calls the Gemini generateContent endpoint.
type Client struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// Compile-time interface check.
var _ provider.Generator = (*Client)(nil)

// NewClient creates a Client. The config is defaulted and validated; only
// structurally broken configs (no model, no base URL) are rejected here —
// a missing API key surfaces per-call instead.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config: cfg,
		// Response-header timeout instead of a global client timeout:
		// per-request context handles cancellation.
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: cfg.Timeout,
			},
		},
		logger: logger,
	}, nil
}

// ModelName implements provider.Generator.
func (c *Client) ModelName() string { return c.config.Model }

// Request/response shapes for generateContent. Only the fields this
// client reads are declared.
type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate implements provider.Generator. Every failure mode maps to a
// provider sentinel so the responder can log and abort uniformly.
func (c *Client) Generate(ctx context.Context, req provider.GenerationRequest) (provider.GenerationResult, error) {
	if c.config.APIKey == "" {
		return provider.GenerationResult{}, provider.ErrNoCredentials
	}

	prompt := buildPrompt(req.Turns)

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxOutputTokens,
		},
	})
	if err != nil {
		return provider.GenerationResult{}, fmt.Errorf("gemini: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(c.config.BaseURL, "/"), c.config.Model, c.config.APIKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return provider.GenerationResult{}, fmt.Errorf("gemini: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return provider.GenerationResult{}, fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.Error("gemini: generation request failed",
			"status", resp.StatusCode,
			"body", string(detail),
		)
		return provider.GenerationResult{}, fmt.Errorf("%w: HTTP %d", provider.ErrProviderDown, resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return provider.GenerationResult{}, fmt.Errorf("%w: decode response: %w", provider.ErrEmptyCompletion, err)
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return provider.GenerationResult{}, provider.ErrEmptyCompletion
	}

	text := out.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return provider.GenerationResult{}, provider.ErrEmptyCompletion
	}

	// The API does not report exact counts for this call shape; estimate
	// by character length. The heuristic is part of the contract — do not
	// swap in a real tokenizer.
	return provider.GenerationResult{
		Content: text,
		Usage: provider.Usage{
			PromptTokens:     estimateTokens(len(prompt)),
			CompletionTokens: estimateTokens(len(text)),
		},
	}, nil
}

// estimateTokens is ceil(chars / 4).
func estimateTokens(chars int) int {
	return (chars + 3) / 4
}
