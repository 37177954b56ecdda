package backend

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Recorder receives one observation per backend request.
type Recorder interface {
	ObserveRequest(target string, start time.Time, err error)
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records request counts and latencies on r.
func WithMetrics(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithTimeout bounds every request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}
