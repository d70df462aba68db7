// Package client is the Go client for the hearth REST API.
//
// A Client acts for one family at a time. The family name is sent as the
// X-Family-Name header on every request; a 400 response means the server
// rejected it and callers should treat the session as logged out.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/hearth/internal/logging"
)

const (
	// DefaultBaseURL is the API root used when neither an option nor
	// HEARTH_API_URL is set.
	DefaultBaseURL = "http://localhost:8000/api"

	// EnvAPIURL overrides the API root.
	EnvAPIURL = "HEARTH_API_URL"

	// HeaderFamilyName carries the acting family.
	HeaderFamilyName = "X-Family-Name"

	userAgentProduct    = "hearth-go"
	userAgentVersion    = "1.0"
	defaultHTTPTimeout  = 15 * time.Second
	maxResponseBodySize = 4 << 20

	defaultRate  = rate.Limit(10)
	defaultBurst = 5
)

// Client talks to a hearthd server.
type Client struct {
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	logger    *logging.Logger

	mu     sync.RWMutex
	family string
}

// Option mutates the client during construction.
type Option func(*Client)

// New builds a client for baseURL. An empty baseURL falls back to
// HEARTH_API_URL, then DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   baseURL,
		http:      &http.Client{Timeout: defaultHTTPTimeout},
		limiter:   rate.NewLimiter(defaultRate, defaultBurst),
		userAgent: buildDefaultUserAgent(),
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if c.logger == nil {
		c.logger = logging.Nop()
	}
	c.baseURL = sanitizeBaseURL(c.baseURL)
	return c
}

// BaseURLFromEnv returns HEARTH_API_URL or DefaultBaseURL.
func BaseURLFromEnv() string {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		return v
	}
	return DefaultBaseURL
}

// WithHTTPClient installs a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithFamily sets the family the client acts for.
func WithFamily(name string) Option {
	return func(c *Client) { c.family = strings.TrimSpace(name) }
}

// WithRateLimit paces outgoing requests. A limit <= 0 disables pacing.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		if limit <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithUserAgent sets a custom User-Agent string.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger logs requests at debug level and full bodies at trace level.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// BaseURL returns the sanitized API root.
func (c *Client) BaseURL() string { return c.baseURL }

// Family returns the family the client acts for.
func (c *Client) Family() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.family
}

// SetFamily switches the acting family. An empty name clears it.
func (c *Client) SetFamily(name string) {
	c.mu.Lock()
	c.family = strings.TrimSpace(name)
	c.mu.Unlock()
}

func sanitizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = BaseURLFromEnv()
	}
	return strings.TrimRight(baseURL, "/")
}

// do sends one request and decodes a JSON response into out (when non-nil).
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, payload, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var (
		body io.Reader
		sent []byte
	)
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("hearth: encode request: %w", err)
		}
		body = bytes.NewReader(data)
		sent = data
	}

	target := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		target = c.baseURL + endpoint
	}
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("hearth: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if family := c.Family(); family != "" {
		req.Header.Set(HeaderFamilyName, family)
	}
	if ua := strings.TrimSpace(c.userAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("hearth: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("hearth: read response: %w", err)
	}

	c.logger.Debug(ctx, "api request",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	c.logger.Trace(ctx, "api exchange",
		zap.String("method", method),
		zap.String("url", target),
		zap.ByteString("request", sent),
		zap.ByteString("response", raw),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return buildAPIError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("hearth: decode %s response: %w", endpoint, err)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func buildDefaultUserAgent() string {
	return fmt.Sprintf("%s/%s (Go%s; %s/%s)",
		userAgentProduct, userAgentVersion,
		strings.TrimPrefix(runtime.Version(), "go"), runtime.GOOS, runtime.GOARCH)
}
