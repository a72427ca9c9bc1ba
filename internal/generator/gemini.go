package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/draftforge/draftforge/internal/telemetry"
)

const (
	defaultModel   = "gemini-2.0-flash"
	defaultBaseURL = "https://generativelanguage.googleapis.com"

	// The tools produce short-form output; 400 tokens is the product
	// ceiling, not a model limit.
	maxOutputTokens = 400
	temperature     = 0.6
)

// GeminiConfig configures the Gemini-backed generator.
type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries uint
}

// Validate checks the configuration.
func (c *GeminiConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("gemini API key is required")
	}
	return nil
}

// ApplyDefaults fills in zero-valued fields.
func (c *GeminiConfig) ApplyDefaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// GeminiGenerator calls the Gemini generateContent REST API. Transient
// upstream failures (HTTP 5xx, 429) are retried with exponential backoff;
// client errors and empty completions are not.
type GeminiGenerator struct {
	cfg    GeminiConfig
	client *http.Client
}

var _ Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a generator backed by the Gemini API.
func NewGeminiGenerator(cfg GeminiConfig) (*GeminiGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	return &GeminiGenerator{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

type generateContentRequest struct {
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
	CandidateCount  int     `json:"candidateCount"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate builds the tool prompt and calls the model. The returned text
// is trimmed; an empty completion is an error so a charge is never taken
// for output the caller cannot use.
func (g *GeminiGenerator) Generate(ctx context.Context, toolKey, input string) (string, error) {
	prompt := buildPrompt(toolKey, input)

	started := time.Now()
	telemetry.GetMetrics().GenerationsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("tool_key", toolKey)))

	operation := func() (string, error) {
		return g.generateOnce(ctx, prompt)
	}

	text, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(g.cfg.MaxRetries),
	)

	telemetry.GetMetrics().GenerationDuration.Record(ctx,
		float64(time.Since(started).Milliseconds()),
		metric.WithAttributes(attribute.String("tool_key", toolKey)))

	if err != nil {
		telemetry.GetMetrics().GenerationErrorsTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("tool_key", toolKey)))
		return "", err
	}

	log.Debug().
		Str("tool_key", toolKey).
		Str("model", g.cfg.Model).
		Int("output_chars", len(text)).
		Dur("duration", time.Since(started)).
		Msg("Generation complete")

	return text, nil
}

// generateOnce performs a single generateContent call.
func (g *GeminiGenerator) generateOnce(ctx context.Context, prompt string) (string, error) {
	reqBody := generateContentRequest{
		Contents: []content{
			{Parts: []part{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxOutputTokens,
			CandidateCount:  1,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.cfg.BaseURL, g.cfg.Model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, truncateBody(body))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", err
		}
		return "", backoff.Permanent(err)
	}

	var result generateContentResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
	}

	text := extractText(&result)
	if text == "" {
		return "", backoff.Permanent(ErrEmptyResponse)
	}

	return text, nil
}

// extractText concatenates the text parts of the first candidate.
func extractText(resp *generateContentResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String())
}

func truncateBody(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}
