// Package conduit is a client for the Phabricator Conduit API.
//
// A Client holds one Credential and dispatches calls to
// {host}/api/{namespace}.{operation}. Parameters are Param trees encoded in
// one of two modes: ManualEncoding writes PHP bracket-indexed pairs without
// escaping, StandardEncoding form-urlencodes a flat map. The JSON envelope
// returned by the server is unwrapped into a Result or an *Error.
package conduit

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/PentesterFlow/phabconduit/internal/logger"
	"github.com/PentesterFlow/phabconduit/internal/metrics"
)

// Credential is the API token and server base URL shared by every call.
type Credential struct {
	Token string
	Host  string
}

// Encoding selects how parameters are written into the request body.
type Encoding int

const (
	// ManualEncoding writes "api.token=<token>" followed by the bracket-encoded
	// pairs, joined with "&". Values are not escaped.
	ManualEncoding Encoding = iota
	// StandardEncoding form-urlencodes a flat map with api.token added.
	StandardEncoding
)

// String returns the encoding name.
func (e Encoding) String() string {
	if e == StandardEncoding {
		return "standard"
	}
	return "manual"
}

// Response is the raw answer of a transport round trip.
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport posts a request body to an endpoint URL.
type Transport interface {
	Post(ctx context.Context, endpoint, body string) (*Response, error)
}

// Client dispatches Conduit calls. It is safe for concurrent use.
type Client struct {
	cred       Credential
	transport  Transport
	httpClient *http.Client
	config     TransportConfig
	logger     *logger.Logger
	metrics    *metrics.Collector
}

// New creates a client for the given credential.
func New(cred Credential, opts ...Option) *Client {
	c := &Client{
		cred:   cred,
		config: DefaultTransportConfig(),
		logger: logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		if c.httpClient != nil {
			c.transport = newHTTPTransportWithClient(c.httpClient, c.config)
		} else {
			c.transport = NewHTTPTransport(c.config)
		}
	}
	return c
}

// Credential returns the credential the client was built with.
func (c *Client) Credential() Credential {
	return c.cred
}

// Close releases idle connections held by the default transport.
func (c *Client) Close() {
	if closer, ok := c.transport.(interface{ Close() }); ok {
		closer.Close()
	}
}

// Endpoint returns host + "/api/" + method, e.g. https://host/api/user.whoami.
// The host is used as given.
func (c *Client) Endpoint(method string) string {
	return c.cred.Host + "/api/" + method
}

// CallMethod calls a fully qualified method such as "calendar.event.search".
// The namespace is everything before the last dot.
func (c *Client) CallMethod(ctx context.Context, method string, params Param, enc Encoding) (Result, error) {
	idx := strings.LastIndex(method, ".")
	if idx < 0 {
		return c.Call(ctx, "", method, params, enc)
	}
	return c.Call(ctx, method[:idx], method[idx+1:], params, enc)
}

// Call performs one Conduit call and returns the envelope's result.
func (c *Client) Call(ctx context.Context, namespace, operation string, params Param, enc Encoding) (Result, error) {
	method := namespace + "." + operation
	if namespace == "" {
		method = operation
	}

	start := time.Now()
	result, err := c.call(ctx, method, namespace, params, enc)
	duration := time.Since(start)

	c.logger.CallEvent(method, enc.String(), duration, err)
	c.metrics.ObserveCall(method, outcome(err), duration)
	return result, err
}

func (c *Client) call(ctx context.Context, method, namespace string, params Param, enc Encoding) (Result, error) {
	if namespace == "" {
		return Result{}, NewConfigurationError(method, "no prefix configured")
	}
	if c.cred.Token == "" {
		return Result{}, NewConfigurationError(method, "no token given")
	}
	if c.cred.Host == "" {
		return Result{}, NewConfigurationError(method, "no host given")
	}

	var body string
	switch enc {
	case StandardEncoding:
		var err error
		body, err = StandardBody(c.cred.Token, params)
		if err != nil {
			return Result{}, Categorize(err, method)
		}
	default:
		body = ManualBody(c.cred.Token, params)
	}

	resp, err := c.transport.Post(ctx, c.Endpoint(method), body)
	if err != nil {
		return Result{}, Categorize(err, method)
	}
	result, err := decodeEnvelope(method, resp.Body)
	if resp.StatusCode >= 400 && IsDecodeError(err) {
		return Result{}, NewHTTPStatusError(method, resp.StatusCode, snippet(resp.Body))
	}
	return result, err
}

// decodeEnvelope reads the body as ISO-8859-1 and unwraps
// {"result", "error_code", "error_info"}.
func decodeEnvelope(method string, body []byte) (Result, error) {
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(body)
	if err != nil {
		return Result{}, NewDecodeError(method, "body is not ISO-8859-1", err)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(text, &envelope); err != nil {
		return Result{}, NewDecodeError(method, "response is not a JSON object", err)
	}

	code, ok := envelope["error_code"]
	if !ok {
		return Result{}, NewDecodeError(method, "response has no error_code", nil)
	}
	if isNull(code) {
		raw, ok := envelope["result"]
		if !ok {
			return Result{}, NewDecodeError(method, "response has no result", nil)
		}
		return Result{raw: raw}, nil
	}

	return Result{}, NewAPIError(method, rawString(code), rawString(envelope["error_info"]))
}

// rawString returns a JSON string's value, or the literal text for any other
// JSON value. null and missing values are empty.
func rawString(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func isNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}

func outcome(err error) string {
	if err == nil {
		return metrics.OutcomeOK
	}
	switch t := GetErrorType(err); {
	case t == API:
		return metrics.OutcomeAPIError
	case t == Decode:
		return metrics.OutcomeDecode
	case t == Configuration, t == InvalidParams:
		return metrics.OutcomeConfig
	default:
		return metrics.OutcomeTransport
	}
}
