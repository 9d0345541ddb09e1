package deepsight

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/purrlab/go-whisker/internal/httpc"
)

// Config holds client configuration.
type Config struct {
	// BaseURL is the deep-analysis service endpoint.
	BaseURL string

	// APIKey authenticates requests (optional for local deployments).
	APIKey string

	// Timeout bounds a single request. The channel itself defines no
	// timeout beyond rate limiting, so the client enforces one.
	Timeout time.Duration

	// Retry configuration for 429/5xx responses.
	MaxRetries int
	RetryDelay time.Duration

	// Logger for request diagnostics.
	Logger *slog.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithBaseURL sets the service endpoint.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithRetry configures retry behavior.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns sensible client defaults.
func DefaultConfig() *Config {
	return &Config{
		Timeout:    30 * time.Second,
		MaxRetries: 2,
		RetryDelay: 200 * time.Millisecond,
		Logger:     slog.Default(),
	}
}

// Request is one deep-analysis request: a JPEG frame plus a text prompt.
type Request struct {
	// Image is the JPEG frame to analyze.
	Image []byte

	// Prompt steers the analysis.
	Prompt string
}

// Analysis is the structured service verdict.
type Analysis struct {
	// Text is the natural-language description of the frame.
	Text string `json:"text"`

	// TargetPresent reports whether the service saw the cat.
	TargetPresent bool `json:"target_present"`

	// Confidence is the service's confidence in TargetPresent.
	Confidence float64 `json:"confidence"`

	// Timestamp is when the service produced the verdict.
	Timestamp time.Time `json:"timestamp"`
}

// Client talks to the deep-analysis service over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	config  *Config
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a deep-analysis client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.BaseURL == "" {
		return nil, ErrNoEndpoint
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		config:  cfg,
		http:    httpc.NewClient(cfg.Timeout),
		logger:  cfg.Logger.With("component", "deepsight.client"),
	}, nil
}

// wire types
type analyzeRequest struct {
	ImagePayload string `json:"image_payload"` // base64 JPEG
	TextPrompt   string `json:"text_prompt"`
}

type analyzeResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	Data    struct {
		TargetPresent bool    `json:"target_present"`
		Confidence    float64 `json:"confidence"`
		Timestamp     int64   `json:"timestamp"` // Unix milliseconds
	} `json:"data"`
}

// Analyze submits one frame for deep analysis. A single request/response
// exchange; no streaming. Network and service failures come back as errors
// for the call site to degrade on, never to propagate into the tick loop.
func (c *Client) Analyze(ctx context.Context, req *Request) (*Analysis, error) {
	if req == nil || len(req.Image) == 0 {
		return nil, ErrNoImage
	}

	start := time.Now()

	payload := analyzeRequest{
		ImagePayload: base64.StdEncoding.EncodeToString(req.Image),
		TextPrompt:   req.Prompt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("deepsight: marshal request: %w", err)
	}

	resp, err := c.doWithRetry(ctx, c.baseURL+"/v1/analyze", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("deepsight: decode response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("%w: %s", ErrServiceFailure, result.Text)
	}

	c.logger.Debug("analysis complete",
		"target_present", result.Data.TargetPresent,
		"confidence", result.Data.Confidence,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return &Analysis{
		Text:          result.Text,
		TargetPresent: result.Data.TargetPresent,
		Confidence:    result.Data.Confidence,
		Timestamp:     time.UnixMilli(result.Data.Timestamp),
	}, nil
}

// doWithRetry posts the body, retrying 429 and 5xx responses.
func (c *Client) doWithRetry(ctx context.Context, url string, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("deepsight: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("deepsight: request: %w", err)
			c.logger.Warn("request failed, retrying", "attempt", attempt+1, "error", err)
			continue
		}

		if resp.StatusCode == 429 || resp.StatusCode >= 500 {
			lastErr = c.parseError(resp)
			resp.Body.Close()
			c.logger.Warn("retrying request", "attempt", attempt+1, "status", resp.StatusCode)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// parseError reads and parses an error response body.
func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error string `json:"error"`
	}
	message := string(body)
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		message = errResp.Error
	}

	return &APIError{StatusCode: resp.StatusCode, Message: message}
}
