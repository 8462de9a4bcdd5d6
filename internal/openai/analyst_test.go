package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplain(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  - SPY led.\n"}}]}`))
	}))
	defer srv.Close()

	a := NewAnalyst("test-key", "gpt-4o-mini", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	out, err := a.Explain(context.Background(), "Walk-forward SPY/TLT\nPortfolio: +12.00%\nsee https://example.com/x")
	require.NoError(t, err)
	assert.Equal(t, "- SPY led.", out)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 600, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Contains(t, got.Messages[1].Content, "Portfolio: +12.00%")
	assert.NotContains(t, got.Messages[1].Content, "https://")
}

func TestExplainErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	a := NewAnalyst("bad", "", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	assert.Equal(t, defaultModel, a.model)

	_, err := a.Explain(context.Background(), "report")
	assert.ErrorContains(t, err, "OpenAI API error")

	_, err = a.Explain(context.Background(), "  https://only.a/link ")
	assert.ErrorContains(t, err, "empty report")
}

func TestSanitizeReport(t *testing.T) {
	assert.Equal(t, "a  b", sanitizeReport(" a http://x.y/z b "))
	assert.Len(t, sanitizeReport(strings.Repeat("x", 5000)), 4000)
}
