// Package gateway is the single path for outbound calls to the products API.
//
// It attaches the JSON content type and bearer token, normalizes every
// non-2xx response into an *HTTPError with a display message, and runs the
// caller's OnUnauthorized hook on 401 before returning. There is no retry:
// every failure is terminal for the user action that caused it.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/me/shopadmin/internal/logging"
)

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 64 << 10

// Config holds gateway settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client sends requests to the products API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	loading    *Loading
}

// Option configures optional Client dependencies.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLoading makes the client count in-flight requests on l.
func WithLoading(l *Loading) Option {
	return func(c *Client) {
		c.loading = l
	}
}

// New creates a gateway Client.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logging.OrDiscard(logger).With("component", "gateway"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request describes one API call.
type Request struct {
	Method string
	Path   string     // relative to the base URL, may carry its own query
	Query  url.Values // appended to Path
	Body   any        // []byte, json.RawMessage and io.Reader are sent as-is; anything else is JSON-encoded
	Header http.Header
	Quiet  bool // do not count toward the loading indicator
}

// Options carries per-call authentication.
type Options struct {
	Token          string // sent as a bearer token when non-empty
	// OnUnauthorized is called once on a 401, on the request goroutine,
	// before the error is returned. It must not block.
	OnUnauthorized func()
}

func (r Request) target(base string) string {
	u := base + r.Path
	if len(r.Query) == 0 {
		return u
	}
	sep := "?"
	if strings.Contains(r.Path, "?") {
		sep = "&"
	}
	return u + sep + r.Query.Encode()
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case json.RawMessage:
		return bytes.NewReader(b), nil
	case io.Reader:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		return bytes.NewReader(data), nil
	}
}

// Do performs req and decodes a successful JSON response into out (which may
// be nil). An empty success body leaves out untouched.
func (c *Client) Do(ctx context.Context, req Request, opts Options, out any) error {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := req.target(c.baseURL)

	bodyReader, err := encodeBody(req.Body)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if opts.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	if c.loading != nil && !req.Quiet {
		c.loading.Start()
		defer c.loading.Stop()
	}

	start := time.Now()
	c.logger.Debug("HTTP request", "method", method, "url", target)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransportError{Method: method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("HTTP response", "method", method, "url", target,
		"status", resp.StatusCode, "duration", time.Since(start).String())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		herr := &HTTPError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       req.Path,
			Message:    errorMessage(resp.StatusCode, raw),
		}
		if resp.StatusCode == http.StatusUnauthorized && opts.OnUnauthorized != nil {
			opts.OnUnauthorized()
		}
		return herr
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransportError{Method: method, Path: req.Path, Err: fmt.Errorf("read response: %w", err)}
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, req.Path, err)
	}
	return nil
}

// Call performs req and decodes the response as T.
func Call[T any](ctx context.Context, c *Client, req Request, opts Options) (T, error) {
	var result T
	err := c.Do(ctx, req, opts, &result)
	return result, err
}

// errorMessage picks the display message for an error response: a JSON
// body's message, then error; raw text when the body is not JSON; and
// "HTTP <status>" when nothing usable is left.
func errorMessage(status int, body []byte) string {
	fallback := fmt.Sprintf("HTTP %d", status)

	var parsed any
	if err := json.Unmarshal(body, &parsed); err == nil {
		obj, ok := parsed.(map[string]any)
		if !ok {
			return fallback
		}
		for _, key := range []string{"message", "error"} {
			if msg := stringField(obj[key]); msg != "" {
				return msg
			}
		}
		return fallback
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return fallback
}

func stringField(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		return fmt.Sprint(t)
	}
}
