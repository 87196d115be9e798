package notify

import (
	"context"
	"testing"
	"time"

	"github.com/PentesterFlow/phabconduit/pkg/conduit/conduittest"
)

// =============================================================================
// URL Tests
// =============================================================================

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"ws://phab:22280/", "ws://phab:22280/", false},
		{"wss://phab/ws", "wss://phab/ws", false},
		{"http://phab:22280", "ws://phab:22280", false},
		{"https://phab", "wss://phab", false},
		{"ftp://phab", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := normalizeURL(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("normalizeURL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("normalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// =============================================================================
// Client Tests
// =============================================================================

func TestClient_Listen(t *testing.T) {
	srv := conduittest.NewServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewClient(srv.NotifyURL(), []string{"PHID-USER-1", "PHID-PROJ-1"}, nil)
	ch, err := c.Listen(ctx)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	if !srv.WaitForSubscription(2 * time.Second) {
		t.Fatal("server never saw a subscribe command")
	}
	subs := srv.Subscriptions()
	if len(subs[0]) != 2 || subs[0][0] != "PHID-USER-1" {
		t.Errorf("subscription = %v, want [PHID-USER-1 PHID-PROJ-1]", subs[0])
	}

	if err := srv.Notify(map[string]string{"type": "message", "data": "ignored"}); err != nil {
		t.Fatal(err)
	}
	if err := srv.NotifyStory("1234"); err != nil {
		t.Fatal(err)
	}

	select {
	case n := <-ch:
		if n.Type != "notification" || n.Key != "1234" {
			t.Errorf("notification = %+v, want type notification key 1234", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no notification delivered")
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to close after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
	if c.Err() != nil {
		t.Errorf("Err() = %v, want nil after cancel", c.Err())
	}
}

func TestClient_ListenDialError(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/", nil, nil)

	if _, err := c.Listen(context.Background()); err == nil {
		t.Error("Listen() to a closed port should fail")
	}
}
