package conduit

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PentesterFlow/phabconduit/internal/ratelimit"
)

// TransportConfig holds configuration for the HTTP transport.
type TransportConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	UserAgent           string
	SkipTLSVerify       bool
	RequestsPerSecond   float64 // 0 means unlimited
	Burst               int
	MinInterval         time.Duration
	MaxResponseBytes    int64
}

// DefaultTransportConfig returns defaults suited to a single Conduit server.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		Timeout:             30 * time.Second,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		UserAgent:           "phabconduit/1.0",
		MaxResponseBytes:    32 * 1024 * 1024,
	}
}

// HTTPTransport posts form bodies over net/http.
type HTTPTransport struct {
	client    *http.Client
	limiter   *ratelimit.Limiter
	userAgent string
	maxBytes  int64
}

// NewHTTPTransport creates a transport with a tuned connection pool.
func NewHTTPTransport(config TransportConfig) *HTTPTransport {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.SkipTLSVerify,
		},
	}

	return newHTTPTransportWithClient(&http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}, config)
}

func newHTTPTransportWithClient(hc *http.Client, config TransportConfig) *HTTPTransport {
	if hc == nil {
		hc = http.DefaultClient
	}
	t := &HTTPTransport{
		client:    hc,
		userAgent: config.UserAgent,
		maxBytes:  config.MaxResponseBytes,
	}
	if config.RequestsPerSecond > 0 || config.MinInterval > 0 {
		t.limiter = ratelimit.NewLimiter(config.RequestsPerSecond, config.Burst)
		t.limiter.SetMinInterval(config.MinInterval)
	}
	return t
}

// Post sends body to endpoint as application/x-www-form-urlencoded and
// returns the status code and the full response body.
func (t *HTTPTransport) Post(ctx context.Context, endpoint, body string) (*Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return nil, NewConfigurationError("", fmt.Sprintf("invalid endpoint %q: %v", endpoint, err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if t.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, t.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if t.maxBytes > 0 && int64(len(data)) > t.maxBytes {
		return nil, NewDecodeError("", fmt.Sprintf("response exceeds %d bytes", t.maxBytes), nil)
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// Close closes idle connections.
func (t *HTTPTransport) Close() {
	t.client.CloseIdleConnections()
}
