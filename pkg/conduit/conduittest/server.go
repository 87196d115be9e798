// Package conduittest provides an in-process fake Conduit server for tests.
package conduittest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/PentesterFlow/phabconduit/pkg/conduit"
)

// Request is one recorded call.
type Request struct {
	Method string // e.g. "user.whoami"
	Path   string
	Body   string
}

// Pairs splits the raw body on "&" and the first "=" without unescaping.
func (r Request) Pairs() []conduit.Pair {
	return SplitBody(r.Body)
}

// Value returns the first raw value recorded under name.
func (r Request) Value(name string) (string, bool) {
	for _, p := range r.Pairs() {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Reply is what the server sends back for a call.
type Reply struct {
	Status int
	Body   []byte
}

// Responder builds a reply for a recorded request.
type Responder func(req Request) Reply

// Server is a fake Conduit server. Unregistered methods answer with an
// ERR-CONDUIT-CALL envelope.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	requests      []Request
	responders    map[string]Responder
	conns         []*websocket.Conn
	subscriptions [][]string
	upgrader      websocket.Upgrader
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	s := &Server{
		responders: make(map[string]Responder),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Post("/api/{method}", s.handleCall)
	r.Get("/ws", s.handleWebSocket)
	s.Server = httptest.NewServer(r)

	t.Cleanup(s.Close)
	return s
}

// Credential returns a credential pointing at the server.
func (s *Server) Credential(token string) conduit.Credential {
	return conduit.Credential{Token: token, Host: s.URL}
}

// NotifyURL returns the websocket URL of the notification feed.
func (s *Server) NotifyURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
}

// Handle registers a responder for a method.
func (s *Server) Handle(method string, fn Responder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responders[method] = fn
}

// Result answers method with a success envelope carrying result.
func (s *Server) Result(method string, result any) {
	body := Envelope(result, nil, nil)
	s.Handle(method, func(Request) Reply {
		return Reply{Status: http.StatusOK, Body: body}
	})
}

// ResultJSON answers method with a success envelope carrying raw JSON.
func (s *Server) ResultJSON(method, resultJSON string) {
	body := []byte(`{"result":` + resultJSON + `,"error_code":null,"error_info":null}`)
	s.Raw(method, http.StatusOK, body)
}

// Error answers method with an error envelope.
func (s *Server) Error(method, code, info string) {
	body := Envelope(nil, &code, &info)
	s.Handle(method, func(Request) Reply {
		return Reply{Status: http.StatusOK, Body: body}
	})
}

// Raw answers method with a fixed status and body.
func (s *Server) Raw(method string, status int, body []byte) {
	s.Handle(method, func(Request) Reply {
		return Reply{Status: status, Body: body}
	})
}

// Requests returns every recorded call in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsFor returns the recorded calls of one method.
func (s *Server) RequestsFor(method string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

// Envelope encodes a response envelope.
func Envelope(result any, code, info *string) []byte {
	data, _ := json.Marshal(struct {
		Result    any     `json:"result"`
		ErrorCode *string `json:"error_code"`
		ErrorInfo *string `json:"error_info"`
	}{result, code, info})
	return data
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	req := Request{
		Method: chi.URLParam(r, "method"),
		Path:   r.URL.Path,
		Body:   string(body),
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	fn, ok := s.responders[req.Method]
	s.mu.Unlock()

	reply := Reply{
		Status: http.StatusOK,
		Body:   Envelope(nil, strPtr("ERR-CONDUIT-CALL"), strPtr("Conduit method '"+req.Method+"' does not exist.")),
	}
	if ok {
		reply = fn(req)
	}
	if reply.Status == 0 {
		reply.Status = http.StatusOK
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.Status)
	_, _ = w.Write(reply.Body)
}

func strPtr(s string) *string { return &s }

// SplitBody splits a request body into raw pairs.
func SplitBody(body string) []conduit.Pair {
	if body == "" {
		return nil
	}
	parts := strings.Split(body, "&")
	pairs := make([]conduit.Pair, 0, len(parts))
	for _, part := range parts {
		name, value, _ := strings.Cut(part, "=")
		pairs = append(pairs, conduit.Pair{Name: name, Value: value})
	}
	return pairs
}
