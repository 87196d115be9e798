package conduit

import (
	"net/http"
	"time"

	"github.com/PentesterFlow/phabconduit/internal/logger"
	"github.com/PentesterFlow/phabconduit/internal/metrics"
)

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithTransport replaces the HTTP transport, e.g. with a recording fake.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithHTTPClient sends requests through an existing *http.Client. The
// client's own timeout applies; rate limit and User-Agent settings still do.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default transport.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.config.Timeout = timeout
	}
}

// WithRateLimit paces requests of the default transport. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.config.RequestsPerSecond = rps
		c.config.Burst = burst
	}
}

// WithUserAgent sets the User-Agent header of the default transport.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.config.UserAgent = ua
	}
}

// WithLogger sets the logger used for call events.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l == nil {
			l = logger.NewNop()
		}
		c.logger = l.WithComponent("conduit")
	}
}

// WithMetrics records every call on the collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) {
		c.metrics = m
	}
}
