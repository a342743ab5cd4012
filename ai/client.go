package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"novel-forge/backend/pkg/logger"

	openai "github.com/sashabaranov/go-openai"
)

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 64 << 10

// Config holds the upstream provider settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	// Timeout bounds buffered calls and the wait for streaming response headers.
	Timeout time.Duration
}

// Client issues chat-completion calls in buffered or streaming mode.
type Client struct {
	buffered   *http.Client
	streamHTTP *http.Client
	endpoint   string
	apiKey     string
	model      string
	log        *logger.Logger
}

// completionRequest is the provider request body. Stream is always sent,
// including false for buffered calls.
type completionRequest struct {
	Model    string                         `json:"model"`
	Stream   bool                           `json:"stream"`
	Messages []openai.ChatCompletionMessage `json:"messages"`
}

// NewClient creates a client for the configured provider.
func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ai: base URL is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ai: model is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	// Streams can outlive any fixed deadline, so only the connection setup
	// and the response headers are bounded.
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Client{
		buffered:   &http.Client{Transport: transport, Timeout: cfg.Timeout},
		streamHTTP: &http.Client{Transport: transport},
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + completionsPath,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		log:        log,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Complete performs a buffered call and returns the first choice's content.
// A non-success status yields an *UpstreamError and an empty choice list
// yields ErrNoResponse.
func (c *Client) Complete(ctx context.Context, msgs []ChatMessage) (string, error) {
	resp, err := c.post(ctx, c.buffered, false, msgs)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out openai.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(out.Choices) == 0 {
		c.log.Warn("Buffered chat completion returned no choices", "model", c.model, "id", out.ID)
		return "", ErrNoResponse
	}
	return out.Choices[0].Message.Content, nil
}

// Stream opens a streaming call. The returned stream must be closed by the
// caller. A non-success status yields an *UpstreamError.
func (c *Client) Stream(ctx context.Context, msgs []ChatMessage) (FragmentStream, error) {
	resp, err := c.post(ctx, c.streamHTTP, true, msgs)
	if err != nil {
		return nil, err
	}
	return newStream(resp.Body, c.log), nil
}

func (c *Client) post(ctx context.Context, hc *http.Client, streaming bool, msgs []ChatMessage) (*http.Response, error) {
	body, err := json.Marshal(completionRequest{
		Model:    c.model,
		Stream:   streaming,
		Messages: toOpenAIMessages(msgs),
	})
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if streaming {
		req.Header.Set("Accept", "text/event-stream")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send chat request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Warn("Upstream rejected chat call",
			"status", resp.StatusCode,
			"stream", streaming,
			"body", string(errBody),
		)
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(errBody)}
	}
	return resp, nil
}
