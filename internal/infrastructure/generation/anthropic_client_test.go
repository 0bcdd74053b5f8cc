package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/shieldgate/internal/config"
	"github.com/turtacn/shieldgate/internal/domain/service"
	"github.com/turtacn/shieldgate/pkg/logger"
)

func newTestClient(url string, retries int) *AnthropicClient {
	cfg := config.GenerationConfig{
		BaseURL:   url,
		APIKey:    "test-key",
		Model:     "claude-test",
		MaxTokens: 1024,
		Timeout:   2 * time.Second,
		RetryMax:  retries,
	}
	return NewAnthropicClient(cfg, logger.NewNoopLogger(), WithRetryWait(time.Millisecond, 2*time.Millisecond))
}

func TestGenerate_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-test", req.Model)
		assert.Equal(t, 512, req.MaxTokens)
		assert.Equal(t, "be brief", req.System)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "hola", req.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Hola, "},{"type":"text","text":"¿en qué te ayudo?"}],"stop_reason":"end_turn"}`))
	}))
	defer ts.Close()

	out, err := newTestClient(ts.URL, 0).Generate(context.Background(), service.GenerationRequest{
		SystemPrompt: "be brief",
		UserText:     "hola",
		MaxTokens:    512,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hola, ¿en qué te ayudo?", out)
}

func TestGenerate_RetriesServerErrors(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer ts.Close()

	out, err := newTestClient(ts.URL, 2).Generate(context.Background(), service.GenerationRequest{UserText: "hola"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"client error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadRequest) }},
		{"empty content", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"content":[]}`)) }},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{`)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()
			_, err := newTestClient(ts.URL, 0).Generate(context.Background(), service.GenerationRequest{UserText: "hola"})
			assert.Error(t, err)
		})
	}
}

func TestGenerate_HonorsDeadline(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newTestClient(ts.URL, 3).Generate(ctx, service.GenerationRequest{UserText: "hola"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}
