// Package interpreter provides implementations of ports.Interpreter.
package interpreter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/hexcast/internal/logging"
	"github.com/aretw0/hexcast/pkg/ports"
)

// DefaultTimeout bounds a single interpretation request.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps the body read from the remote interpreter.
const maxResponseBytes = 1 << 20

// ErrEmptyInterpretation is returned when the remote answers without text.
var ErrEmptyInterpretation = errors.New("interpreter returned an empty interpretation")

// Client calls a remote interpretation endpoint over HTTP.
//
// The request body is the JSON form of ports.InterpretationRequest; the
// response must be {"interpretation": "..."}.
type Client struct {
	url    string
	http   *http.Client
	header http.Header
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client. The client is copied,
// so later options never modify the caller's value.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c == nil {
			return
		}
		copied := *c
		cl.http = &copied
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) {
		if d > 0 {
			copied := *cl.http
			copied.Timeout = d
			cl.http = &copied
		}
	}
}

// WithHeader adds a header to every request (e.g. an API key).
func WithHeader(key, value string) ClientOption {
	return func(cl *Client) {
		cl.header.Set(key, value)
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// NewClient creates a client for the endpoint at url.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url:    url,
		http:   &http.Client{Timeout: DefaultTimeout},
		header: make(http.Header),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ ports.Interpreter = (*Client)(nil)

type interpretResponse struct {
	Interpretation string `json:"interpretation"`
	Error          string `json:"error,omitempty"`
}

// Interpret posts the request and returns the interpretation text.
func (c *Client) Interpret(ctx context.Context, req ports.InterpretationRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal interpretation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build interpretation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range c.header {
		httpReq.Header[k] = v
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("interpretation request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read interpretation response: %w", err)
	}
	c.logger.Debug("Interpretation response",
		"status", resp.StatusCode,
		"hexagram", req.Hexagram,
		"duration", time.Since(start),
	)

	var out interpretResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && out.Error != "" {
			msg = out.Error
		}
		return "", fmt.Errorf("interpreter responded %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode interpretation response: %w", decodeErr)
	}
	if strings.TrimSpace(out.Interpretation) == "" {
		return "", ErrEmptyInterpretation
	}
	return out.Interpretation, nil
}
