package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draftforge/draftforge/internal/catalog"
)

func TestGeminiGenerator_Generate(t *testing.T) {
	t.Run("returns trimmed text on success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
			require.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

			var req generateContentRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.Contents, 1)
			require.Contains(t, req.Contents[0].Parts[0].Text, "quarterly report")
			require.InDelta(t, 0.6, req.GenerationConfig.Temperature, 0.001)
			require.Equal(t, 400, req.GenerationConfig.MaxOutputTokens)

			writeCandidate(t, w, "  - Point one\n  ")
		}))
		defer srv.Close()

		gen := newTestGenerator(t, srv.URL)

		text, err := gen.Generate(context.Background(), catalog.ToolSummarizer, "quarterly report")
		require.NoError(t, err)
		require.Equal(t, "- Point one", text)
	})

	t.Run("empty completion is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeCandidate(t, w, "   ")
		}))
		defer srv.Close()

		gen := newTestGenerator(t, srv.URL)

		_, err := gen.Generate(context.Background(), catalog.ToolSummarizer, "anything")
		require.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.Error(w, `{"error":{"code":400,"message":"bad request"}}`, http.StatusBadRequest)
		}))
		defer srv.Close()

		gen := newTestGenerator(t, srv.URL)

		_, err := gen.Generate(context.Background(), catalog.ToolEmailWriter, "anything")
		require.Error(t, err)
		require.Equal(t, int64(1), calls.Load())
	})

	t.Run("server errors are retried", func(t *testing.T) {
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
				return
			}
			writeCandidate(t, w, "the email body")
		}))
		defer srv.Close()

		gen := newTestGenerator(t, srv.URL)

		text, err := gen.Generate(context.Background(), catalog.ToolEmailWriter, "anything")
		require.NoError(t, err)
		require.Equal(t, "the email body", text)
		require.Equal(t, int64(2), calls.Load())
	})
}

func TestNewGeminiGenerator(t *testing.T) {
	t.Run("requires an API key", func(t *testing.T) {
		_, err := NewGeminiGenerator(GeminiConfig{})
		require.Error(t, err)
	})

	t.Run("applies defaults", func(t *testing.T) {
		gen, err := NewGeminiGenerator(GeminiConfig{APIKey: "test-key"})
		require.NoError(t, err)
		require.Equal(t, defaultModel, gen.cfg.Model)
		require.Equal(t, defaultBaseURL, gen.cfg.BaseURL)
	})
}

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		toolKey string
		want    string
	}{
		{catalog.ToolSummarizer, "Summarize the text below"},
		{catalog.ToolEmailWriter, "Write a professional email"},
		{catalog.ToolMarketingCopy, "Write marketing copy"},
		{catalog.ToolActionPlan, "clean action plan"},
	}

	for _, tt := range tests {
		t.Run(tt.toolKey, func(t *testing.T) {
			prompt := buildPrompt(tt.toolKey, "  some input  ")
			require.Contains(t, prompt, tt.want)
			require.Contains(t, prompt, `"""some input"""`)
		})
	}

	t.Run("unknown tool passes input through", func(t *testing.T) {
		require.Equal(t, "raw text", buildPrompt("unknown", " raw text "))
	})
}

func newTestGenerator(t *testing.T, baseURL string) *GeminiGenerator {
	t.Helper()

	gen, err := NewGeminiGenerator(GeminiConfig{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		MaxRetries: 2,
	})
	require.NoError(t, err)
	return gen
}

func writeCandidate(t *testing.T, w http.ResponseWriter, text string) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	resp := generateContentResponse{}
	resp.Candidates = []struct {
		Content content `json:"content"`
	}{
		{Content: content{Parts: []part{{Text: text}}}},
	}
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}
