// Package generation adapts the external text-generation service to service.Generator.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/turtacn/shieldgate/internal/config"
	"github.com/turtacn/shieldgate/internal/domain/service"
	"github.com/turtacn/shieldgate/pkg/logger"
)

const (
	defaultBaseURL    = "https://api.anthropic.com"
	defaultAPIVersion = "2023-06-01"
	maxResponseBytes  = 1 << 20
)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

// AnthropicClient calls the Messages API with bounded retries.
type AnthropicClient struct {
	http       *retryablehttp.Client
	baseURL    string
	apiKey     string
	apiVersion string
	model      string
	maxTokens  int
	logger     logger.Logger
}

var _ service.Generator = (*AnthropicClient)(nil)

// Option configures an AnthropicClient.
type Option func(*AnthropicClient)

// WithRetryWait overrides the backoff bounds between attempts.
func WithRetryWait(min, max time.Duration) Option {
	return func(c *AnthropicClient) {
		c.http.RetryWaitMin = min
		c.http.RetryWaitMax = max
	}
}

// NewAnthropicClient creates a generator from configuration. The per-call deadline comes
// from the caller's context; cfg.Timeout bounds a single HTTP attempt.
func NewAnthropicClient(cfg config.GenerationConfig, log logger.Logger, opts ...Option) *AnthropicClient {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Logger = leveledLogger{log: log}

	c := &AnthropicClient{
		http:       rc,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		apiVersion: cfg.APIVersion,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		logger:     log.WithComponent("generation"),
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.apiVersion == "" {
		c.apiVersion = defaultAPIVersion
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate sends one user turn with the given system prompt and returns the text blocks of
// the reply concatenated.
func (c *AnthropicClient) Generate(ctx context.Context, req service.GenerationRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    req.SystemPrompt,
		Messages:  []message{{Role: "user", Content: req.UserText}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", c.apiVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d)", resp.StatusCode)
	}

	var out messagesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	var b strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("empty completion (stop_reason=%s)", out.StopReason)
	}

	c.logger.Debug(ctx, "generation completed",
		logger.Duration("latency", time.Since(start)),
		logger.Int("output_length", b.Len()),
		logger.String("stop_reason", out.StopReason),
	)
	return b.String(), nil
}

// leveledLogger routes retryablehttp diagnostics to the service logger at debug level.
type leveledLogger struct {
	log logger.Logger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) {
	l.log.Warn(context.Background(), msg, logger.Any("details", kv))
}

func (l leveledLogger) Info(msg string, kv ...interface{}) {
	l.log.Debug(context.Background(), msg, logger.Any("details", kv))
}

func (l leveledLogger) Debug(msg string, kv ...interface{}) {
	l.log.Debug(context.Background(), msg, logger.Any("details", kv))
}

func (l leveledLogger) Warn(msg string, kv ...interface{}) {
	l.log.Warn(context.Background(), msg, logger.Any("details", kv))
}
