// Package notify listens to the Aphlict notification feed of a Phabricator
// server and turns feed messages into report triggers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/PentesterFlow/phabconduit/internal/logger"
)

// Notification is one feed message of type "notification".
type Notification struct {
	Type        string   `json:"type"`
	Key         string   `json:"key"`
	Subscribers []string `json:"subscribers,omitempty"`
}

type subscribeCommand struct {
	Command string   `json:"command"`
	Data    []string `json:"data"`
}

// Client subscribes to feed updates for a set of PHIDs.
type Client struct {
	url     string
	phids   []string
	dialer  *websocket.Dialer
	headers http.Header
	logger  *logger.Logger

	mu  sync.Mutex
	err error
}

// NewClient creates a feed client. http(s) URLs are dialed as ws(s).
func NewClient(feedURL string, phids []string, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		url:   feedURL,
		phids: append([]string(nil), phids...),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		headers: make(http.Header),
		logger:  log.WithComponent("notify"),
	}
}

// SetHeader sets a header sent with the websocket handshake.
func (c *Client) SetHeader(key, value string) {
	c.headers.Set(key, value)
}

// Listen dials the feed, subscribes and delivers notifications until ctx
// ends or the connection drops. The channel is closed when listening stops;
// Err then reports why.
func (c *Client) Listen(ctx context.Context) (<-chan Notification, error) {
	wsURL, err := normalizeURL(c.url)
	if err != nil {
		return nil, err
	}

	conn, _, err := c.dialer.DialContext(ctx, wsURL, c.headers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", wsURL, err)
	}

	sub, _ := json.Marshal(subscribeCommand{Command: "subscribe", Data: c.phids})
	if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	c.logger.WithField("phids", len(c.phids)).Debug("subscribed to feed")

	out := make(chan Notification, 16)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()

	go func() {
		defer close(out)
		defer close(done)

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					c.setErr(err)
					c.logger.WithError(err).Warn("feed connection closed")
				}
				return
			}

			var n Notification
			if err := json.Unmarshal(data, &n); err != nil {
				c.logger.WithError(err).Debug("ignoring malformed feed message")
				continue
			}
			if n.Type != "notification" {
				continue
			}

			select {
			case out <- n:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Err returns the error that ended the last Listen, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) setErr(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

func normalizeURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid feed URL %q: %w", raw, err)
	}

	switch parsed.Scheme {
	case "ws", "wss":
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid feed URL %q: unsupported scheme", raw)
	}
	return parsed.String(), nil
}
