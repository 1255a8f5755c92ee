package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Client talks to a llama.cpp llama-server instance over HTTP.
// The server exposes GET /health (503 while the model is loading) and
// POST /completion for non-streamed generation.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger

	healthTimeout time.Duration
	loadRetries   int
	retryDelay    time.Duration

	// loaded is set by a successful Load and read on every request.
	loaded atomic.Bool
}

// ClientOptions configure a Client. Zero values get defaults in NewClient.
type ClientOptions struct {
	// URL is the server base, e.g. http://127.0.0.1:8080.
	URL string

	// RequestTimeout bounds one completion call end to end; HealthTimeout
	// bounds a single readiness probe.
	RequestTimeout time.Duration
	HealthTimeout  time.Duration

	// LoadRetries and LoadRetryDelay shape the Load probe loop.
	LoadRetries    int
	LoadRetryDelay time.Duration

	Logger *zap.Logger
}

// NewClient builds a Client for the given server. It performs no I/O;
// call Load before serving requests.
func NewClient(opts ClientOptions) *Client {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	rt := opts.RequestTimeout
	if rt <= 0 {
		rt = 120 * time.Second
	}
	ht := opts.HealthTimeout
	if ht <= 0 {
		ht = 2 * time.Second
	}
	retries := opts.LoadRetries
	if retries <= 0 {
		retries = 1
	}
	delay := opts.LoadRetryDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &Client{
		baseURL:       strings.TrimRight(opts.URL, "/"),
		http:          &http.Client{Timeout: rt},
		log:           log,
		healthTimeout: ht,
		loadRetries:   retries,
		retryDelay:    delay,
	}
}

// completionRequest is the llama-server /completion payload.
type completionRequest struct {
	Prompt        string   `json:"prompt"`
	NPredict      int      `json:"n_predict"`
	Temperature   float64  `json:"temperature"`
	TopK          int      `json:"top_k"`
	TopP          float64  `json:"top_p"`
	RepeatPenalty float64  `json:"repeat_penalty"`
	Stop          []string `json:"stop,omitempty"`
	Stream        bool     `json:"stream"`
}

// completionResponse is the subset of the /completion reply we consume.
type completionResponse struct {
	Content         string `json:"content"`
	TokensPredicted int    `json:"tokens_predicted"`
	TokensEvaluated int    `json:"tokens_evaluated"`
}

// Load probes the health endpoint until the server reports ready, sleeping
// LoadRetryDelay between attempts. On success the client is marked loaded;
// Loaded never probes again. llama-server answers 503 while the model is
// still being mapped into memory, so a cold start needs a few attempts.
func (c *Client) Load(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= c.loadRetries; attempt++ {
		err := c.checkHealth(ctx)
		if err == nil {
			c.loaded.Store(true)
			c.log.Info("model server ready",
				zap.String("url", c.baseURL),
				zap.Int("attempt", attempt))
			return nil
		}
		lastErr = err
		c.log.Debug("model server not ready",
			zap.String("url", c.baseURL),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < c.loadRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}
	return fmt.Errorf("model server at %s not ready after %d attempts: %w",
		c.baseURL, c.loadRetries, lastErr)
}

// Loaded reports the last Load outcome. It never performs network I/O.
func (c *Client) Loaded() bool { return c.loaded.Load() }

// checkHealth performs one GET /health probe.
func (c *Client) checkHealth(ctx context.Context) error {
	hctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(hctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health: status %d", resp.StatusCode)
	}
	return nil
}

// Generate implements Provider by posting a non-streamed completion.
func (c *Client) Generate(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(completionRequest{
		Prompt:        req.Prompt,
		NPredict:      req.MaxTokens,
		Temperature:   req.Temperature,
		TopK:          req.TopK,
		TopP:          req.TopP,
		RepeatPenalty: req.RepeatPenalty,
		Stop:          req.Stop,
		Stream:        false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/completion", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("completion: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode completion response: %w", err)
	}

	c.log.Debug("completion done",
		zap.String("request_id", req.ID),
		zap.Int("prompt_chars", len(req.Prompt)),
		zap.Int("tokens_predicted", out.TokensPredicted),
		zap.Int("tokens_evaluated", out.TokensEvaluated),
		zap.Duration("took", time.Since(start)))

	return &Response{
		Text:            out.Content,
		TokensPredicted: out.TokensPredicted,
		TokensEvaluated: out.TokensEvaluated,
	}, nil
}

// Compile-time check: Client satisfies Provider.
var _ Provider = (*Client)(nil)
