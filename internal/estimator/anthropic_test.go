package estimator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apurv101/openbet/internal/domain"
)

func TestAnthropicAnalyze(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-test", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Contains(t, req.Messages[0].Content, "EVT-A")

		resp := anthropicResponse{Model: req.Model}
		resp.Content = append(resp.Content, struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{Type: "text", Text: "```json\n" + sampleResponse + "\n```"})
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e, err := NewAnthropic(Config{
		Provider:          "anthropic",
		Name:              "claude",
		Model:             "claude-test",
		APIKey:            "test-key",
		BaseURL:           server.URL,
		Timeout:           5 * time.Second,
		RequestsPerMinute: 6000,
	})
	require.NoError(t, err)

	j, err := e.Analyze(context.Background(), "Analyze EVT-A and EVT-B")
	require.NoError(t, err)
	assert.Equal(t, "claude", j.Provider)
	assert.Equal(t, 0.85, j.DependencyScore)
	assert.True(t, j.Dependent)
}

func TestAnthropicAnalyzeAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"type": "rate_limit_error", "message": "slow down"}}`))
	}))
	defer server.Close()

	e, err := NewAnthropic(Config{
		Provider:          "anthropic",
		APIKey:            "test-key",
		BaseURL:           server.URL,
		RequestsPerMinute: 6000,
	})
	require.NoError(t, err)

	_, err = e.Analyze(context.Background(), "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
	assert.Contains(t, err.Error(), "rate_limit_error")
}

func TestOpenAIAnalyzeViaCompatibleEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": ` + mustQuote(sampleResponse) + `}}]
		}`))
	}))
	defer server.Close()

	e, err := NewOpenAI(Config{
		Provider:          "grok",
		Name:              "grok",
		Model:             "grok-test",
		APIKey:            "test-key",
		BaseURL:           server.URL,
		Timeout:           5 * time.Second,
		RequestsPerMinute: 6000,
	})
	require.NoError(t, err)

	j, err := e.Analyze(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "grok", j.Provider)
	assert.Equal(t, 0.85, j.DependencyScore)
}

func mustQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
