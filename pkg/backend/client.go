package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxErrorBody = 512

// Client talks to a completion server over HTTP.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	logger   *zap.Logger
	recorder Recorder
	timeout  time.Duration
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}
	if u.Path == "" {
		u.Path = "/"
	}

	c := &Client{
		baseURL: u,
		http:    http.DefaultClient,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL returns the request URL for p.
func (c *Client) URL(p Params) string {
	u := *c.baseURL
	u.RawQuery = p.Values().Encode()
	return u.String()
}

// Query runs one request and returns the normalized response.
func (c *Client) Query(ctx context.Context, p Params) (_ *Response, err error) {
	start := time.Now()
	defer func() {
		if c.recorder != nil {
			c.recorder.ObserveRequest(p.Target, start, err)
		}
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(p), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query %q: %w: %w", p.Query, ErrTimeout, err)
		}
		return nil, fmt.Errorf("query %q: %w", p.Query, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response for %q: %w", p.Query, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: msg}
	}

	out, err := DecodeResponse(body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("completion server response",
		zap.String("target", p.Target),
		zap.String("query", p.Query),
		zap.Int("hits_total", out.Hits.Total),
		zap.Int("completions_total", out.Completions.Total),
		zap.Duration("server_time", out.Time),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}
