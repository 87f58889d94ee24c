package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/fabricops/fabricctl/pkg/static"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Decides whether a mutating call may be sent
type Authorizer interface {
	Authorize(ctx context.Context, call Call) error
}

// A mutating request as seen by the Authorizer
type Call struct {
	Method string `json:"method"`
	// Path relative to the base URL, e.g. /workspaces/{id}
	Path string `json:"path"`
	Body any    `json:"body,omitempty"`
}

// Fabric REST API client
type Client struct {
	HTTPClient
	// API root including the version, e.g. https://api.fabric.microsoft.com/v1
	BaseURL string
	Tokens  oauth2.TokenSource
	Limiter *rate.Limiter
	// Optional guard for non-GET requests
	Authorizer Authorizer
	// Retries of throttled (429) and unavailable (503) responses
	MaxRetries int
	// First retry delay when no Retry-After is sent, doubled per attempt
	RetryBackoff time.Duration
	// Delay between polls when no Retry-After is sent
	PollInterval time.Duration
	// Upper bound for a single wait on an operation, job or publish
	PollTimeout time.Duration
	UserAgent   string
}

func NewClient(client HTTPClient, baseURL string, tokens oauth2.TokenSource) *Client {
	return &Client{
		HTTPClient:   client,
		BaseURL:      strings.TrimSuffix(baseURL, "/"),
		Tokens:       tokens,
		Limiter:      rate.NewLimiter(rate.Limit(10), 5),
		MaxRetries:   3,
		RetryBackoff: time.Second,
		PollInterval: 5 * time.Second,
		PollTimeout:  30 * time.Minute,
		UserAgent:    static.UserAgent(),
	}
}

// Client configured from a fabricctl configuration
func NewClientFromConfig(cfg *models.Configuration, tokens oauth2.TokenSource) *Client {
	c := NewClient(&http.Client{Timeout: cfg.Timeout}, cfg.BaseURL, tokens)
	c.Limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	c.MaxRetries = cfg.MaxRetries
	c.PollInterval = cfg.PollInterval
	c.PollTimeout = cfg.PollTimeout
	return c
}

// Send a request, retrying throttled responses. Any non-2xx status is
// returned as *APIError and the response body is consumed.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	if c.Authorizer != nil && method != http.MethodGet {
		err := c.Authorizer.Authorize(ctx, Call{Method: method, Path: c.relative(path), Body: body})
		if err != nil {
			return nil, err
		}
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
	}

	target, err := c.url(path, query)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter: %w", err)
			}
		}

		resp, err := c.send(ctx, method, target, payload)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		apiErr := readError(method, target, resp)
		if !retryable(resp.StatusCode) || attempt >= c.MaxRetries {
			return nil, apiErr
		}

		delay := retryAfter(resp.Header, c.RetryBackoff<<attempt)
		log.Debug().
			Str("method", method).
			Str("url", target).
			Int("status", resp.StatusCode).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("retrying request")
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (c *Client) send(ctx context.Context, method, target string, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}

	token, err := c.Tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("acquire token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.Do(req)
	elapsed := time.Since(start)
	requestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(method, "error").Inc()
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	requestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	log.Debug().
		Str("method", method).
		Str("url", target).
		Int("status", resp.StatusCode).
		Str("request_id", resp.Header.Get("RequestId")).
		Dur("response_time", elapsed).
		Msg("fabric request")
	return resp, nil
}

// Absolute URLs (Location headers, continuation URIs) are used as is
func (c *Client) url(path string, query url.Values) (string, error) {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.BaseURL + path
	}
	if len(query) == 0 {
		return target, nil
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range query {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) relative(path string) string {
	if rel, ok := strings.CutPrefix(path, c.BaseURL); ok {
		return rel
	}
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return u.Path
	}
	return path
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func (c *Client) exec(ctx context.Context, method, path string, body any) error {
	resp, err := c.do(ctx, method, path, nil, body)
	if err != nil {
		return err
	}
	return decode(resp, nil)
}

func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readError(method, target string, resp *http.Response) *APIError {
	defer resp.Body.Close()
	apiErr := &APIError{StatusCode: resp.StatusCode, Method: method, URL: target}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(body, &apiErr.ErrorResponse); err != nil || apiErr.ErrorCode == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.RequestID == "" {
		apiErr.RequestID = resp.Header.Get("RequestId")
	}
	return apiErr
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// Retry-After in seconds, fallback when absent or not positive
func retryAfter(h http.Header, fallback time.Duration) time.Duration {
	if s, err := strconv.Atoi(h.Get("Retry-After")); err == nil && s > 0 {
		return time.Duration(s) * time.Second
	}
	return fallback
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func pathf(format string, ids ...string) string {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = url.PathEscape(id)
	}
	return fmt.Sprintf(format, args...)
}
