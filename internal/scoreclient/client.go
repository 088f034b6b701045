// Package scoreclient is a fasthttp client for the scorepad HTTP API.
package scoreclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/scorepad/internal/arbiter"
	"github.com/park285/scorepad/internal/document"
	"github.com/park285/scorepad/pkg/scoredto"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	adminHeader   string
	sessionHeader string

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

// WithRetry sets the attempt budget for idempotent reads.
func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithCredentialHeaders overrides the header names credentials travel in.
func WithCredentialHeaders(admin, session string) Option {
	return func(c *Client) {
		if strings.TrimSpace(admin) != "" {
			c.adminHeader = admin
		}
		if strings.TrimSpace(session) != "" {
			c.sessionHeader = session
		}
	}
}

// WithDial replaces the transport dialer.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		adminHeader:    scoredto.HeaderAdminToken,
		sessionHeader:  scoredto.HeaderSessionID,
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, fasthttp.MethodGet, "/health", nil, arbiter.Credentials{}, nil)
}

func (c *Client) GetGame(ctx context.Context, gameID string, cred arbiter.Credentials) (document.Document, error) {
	var out document.Document
	if err := c.do(ctx, fasthttp.MethodGet, gamePath(gameID), nil, cred, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateGame(ctx context.Context, doc document.Document) (document.Document, error) {
	var out document.Document
	if err := c.do(ctx, fasthttp.MethodPost, "/games", doc, arbiter.Credentials{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ReplaceGame(ctx context.Context, gameID string, doc document.Document, cred arbiter.Credentials) (document.Document, error) {
	var out document.Document
	if err := c.do(ctx, fasthttp.MethodPut, gamePath(gameID), doc, cred, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PatchGame(ctx context.Context, gameID string, update document.Document, cred arbiter.Credentials) (document.Document, error) {
	var out document.Document
	if err := c.do(ctx, fasthttp.MethodPatch, gamePath(gameID), update, cred, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func gamePath(gameID string) string {
	return "/games/" + url.PathEscape(strings.TrimSpace(gameID))
}

// do sends one request. Only GET is retried, and only on transport errors
// or a retryable status.
func (c *Client) do(ctx context.Context, method, path string, in document.Document, cred arbiter.Credentials, out *document.Document) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if cred.AdminToken != "" {
		req.Header.Set(c.adminHeader, cred.AdminToken)
	}
	if cred.SessionID != "" {
		req.Header.Set(c.sessionHeader, cred.SessionID)
	}

	if in != nil {
		payload, err := in.Encode()
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	retry := method == fasthttp.MethodGet
	attempts := 1
	if retry {
		attempts = max(c.retryMax, 1)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			if attempt == attempts || !retry {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			apiErr := decodeAPIError(status, resp.Body())
			if attempt == attempts || !retry || !shouldRetryStatus(status) {
				return apiErr
			}
			lastErr = apiErr
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			doc, err := document.Decode(resp.Body())
			if err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			*out = doc
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func decodeAPIError(status int, body []byte) *scoredto.APIError {
	var eb scoredto.ErrorBody
	if err := json.Unmarshal(body, &eb); err != nil || (eb.Error == "" && eb.Code == "") {
		return &scoredto.APIError{Status: status, Message: truncate(string(body), 512)}
	}
	return &scoredto.APIError{Status: status, Code: eb.Code, Message: eb.Error}
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	attempt = min(max(attempt, 1), 6)
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
