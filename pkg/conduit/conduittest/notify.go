package conduittest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type subscribeMessage struct {
	Command string   `json:"command"`
	Data    []string `json:"data"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg subscribeMessage
		if json.Unmarshal(data, &msg) == nil && msg.Command == "subscribe" {
			s.mu.Lock()
			s.subscriptions = append(s.subscriptions, msg.Data)
			s.mu.Unlock()
		}
	}
}

// Subscriptions returns the PHID lists of every subscribe command received.
func (s *Server) Subscriptions() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.subscriptions...)
}

// WaitForSubscription blocks until a subscribe command arrives or the
// timeout passes.
func (s *Server) WaitForSubscription(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(s.Subscriptions()) > 0 {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

// Notify sends a feed message to every connected client.
func (s *Server) Notify(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return err
		}
	}
	return nil
}

// NotifyStory sends a story notification as the Aphlict server does.
func (s *Server) NotifyStory(key string) error {
	return s.Notify(map[string]any{
		"type":        "notification",
		"key":         key,
		"subscribers": []string{},
	})
}
