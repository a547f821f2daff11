// Package hawkular is a client for the Hawkular Alerts REST API.
package hawkular

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/mr-karan/hawkalert/internal/metrics"
)

const (
	alertsPath   = "/hawkular/alerts"
	tenantHeader = "Hawkular-Tenant"
	userAgent    = "hawkalert/1.0"
)

// ClientOptions configures the Hawkular Alerts client.
type ClientOptions struct {
	BaseURL       string
	Tenant        string
	Username      string
	Password      string
	Token         string
	Timeout       time.Duration
	SkipTLSVerify bool
	Logger        *slog.Logger
	MaxRetries    int           // Maximum number of retry attempts (default: 2)
	RetryDelay    time.Duration // Initial retry delay (default: 500ms)
	RateLimit     float64       // Requests per second, 0 means unlimited
	RateBurst     int           // Burst size for RateLimit (default: 1)
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("hawkular %s %s returned status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("hawkular %s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Client talks to a Hawkular Alerts instance.
type Client struct {
	baseURL    string
	tenant     string
	username   string
	password   string
	client     *http.Client
	log        *slog.Logger
	maxRetries int
	retryDelay time.Duration
	limiter    *rate.Limiter
}

// NewClient constructs a Hawkular Alerts client with sane defaults.
func NewClient(opts ClientOptions) (*Client, error) {
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("hawkular base URL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, alertsPath)
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid hawkular base URL: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.SkipTLSVerify {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 - intentionally configurable
		} else {
			transport.TLSClientConfig.InsecureSkipVerify = true // #nosec G402
		}
	}

	var rt http.RoundTripper = transport
	if opts.Token != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token, TokenType: "Bearer"}),
			Base:   transport,
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 500 * time.Millisecond
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Client{
		baseURL:    baseURL + alertsPath,
		tenant:     opts.Tenant,
		username:   opts.Username,
		password:   opts.Password,
		client:     &http.Client{Timeout: timeout, Transport: rt},
		log:        logger.With("component", "hawkular_client"),
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		limiter:    limiter,
	}, nil
}

// requestOptions describes a single API call.
type requestOptions struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
}

// do performs the request with retries on network errors and 5xx responses and
// decodes a JSON response into result when it is non-nil. POST requests are sent once.
func (c *Client) do(ctx context.Context, opts requestOptions, result any) error {
	var payload []byte
	if opts.body != nil {
		var err error
		payload, err = json.Marshal(opts.body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", opts.op, err)
		}
	}

	reqURL := c.baseURL + opts.path
	if len(opts.query) > 0 {
		reqURL += "?" + opts.query.Encode()
	}

	start := time.Now()
	err := c.doWithRetry(ctx, opts, reqURL, payload, result)
	metrics.ObserveRequest(opts.op, start, err != nil)
	return err
}

func (c *Client) doWithRetry(ctx context.Context, opts requestOptions, reqURL string, payload []byte, result any) error {
	// A POST that failed after reaching Hawkular may have been stored; repeating it answers "exists".
	retryable := opts.method != http.MethodPost
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: delay * 2^(attempt-1)
			delay := c.retryDelay * time.Duration(1<<uint(attempt-1))
			c.log.Warn("retrying hawkular request", "op", opts.op, "attempt", attempt, "delay", delay, "error", lastErr)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("%s request throttled: %w", opts.op, err)
			}
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, opts.method, reqURL, body)
		if err != nil {
			return fmt.Errorf("failed to create %s request: %w", opts.op, err)
		}
		c.setHeaders(req, payload != nil)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%s request failed: %w", opts.op, err)
			}
			lastErr = fmt.Errorf("%s request failed: %w", opts.op, err)
			if !retryable {
				return lastErr
			}
			continue
		}

		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if readErr != nil {
				return fmt.Errorf("failed to read %s response: %w", opts.op, readErr)
			}
			if result == nil || len(bytes.TrimSpace(respBody)) == 0 {
				return nil
			}
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("failed to decode %s response: %w", opts.op, err)
			}
			return nil
		}

		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Method:     opts.method,
			Path:       opts.path,
			Message:    errorMessage(respBody),
		}
		if resp.StatusCode >= 500 && retryable {
			lastErr = apiErr
			continue
		}
		return apiErr
	}

	return fmt.Errorf("hawkular %s failed after %d retries: %w", opts.op, c.maxRetries, lastErr)
}

func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.tenant != "" {
		req.Header.Set(tenantHeader, c.tenant)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
}

// errorMessage extracts Hawkular's {"errorMsg": "..."} payload, falling back to the raw body.
func errorMessage(body []byte) string {
	var payload struct {
		ErrorMsg string `json:"errorMsg"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.ErrorMsg != "" {
		return payload.ErrorMsg
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return msg
}

// HealthCheck verifies connectivity to the Hawkular Alerts instance.
func (c *Client) HealthCheck(ctx context.Context) error {
	var status map[string]any
	if err := c.do(ctx, requestOptions{
		op:     "status",
		method: http.MethodGet,
		path:   "/status",
	}, &status); err != nil {
		return err
	}
	if state, ok := status["status"].(string); ok && state != "" && state != "STARTED" {
		return fmt.Errorf("hawkular alerts status is %s", state)
	}
	return nil
}
