package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/ronitrai27/looma-agent/internal/agent"
)

func TestHubPublishWithoutSubscribers(t *testing.T) {
	h := NewHub(slog.New(slog.DiscardHandler))

	// Must not block or panic with nobody listening.
	h.Publish(agent.Event{ProjectID: "proj_1", Stage: agent.StageDone})

	if got := h.Subscribers(); got != 0 {
		t.Errorf("subscribers = %d, want 0", got)
	}
}

func TestHubStreamsEvents(t *testing.T) {
	h := NewHub(slog.New(slog.DiscardHandler))
	server := httptest.NewServer(h)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	// Wait for the subscription to register before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for h.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	want := agent.Event{
		ProjectID:   "proj_1",
		MessageID:   "msg_1",
		Responded:   true,
		Stage:       agent.StageDone,
		Score:       0.8,
		Reason:      "question",
		TimestampMs: 1234,
	}
	h.Publish(want)

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got agent.Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if got != want {
		t.Errorf("event = %+v, want %+v", got, want)
	}
}

func TestHubUnsubscribesOnDisconnect(t *testing.T) {
	h := NewHub(slog.New(slog.DiscardHandler))
	server := httptest.NewServer(h)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	_ = conn.Close(websocket.StatusNormalClosure, "done")

	deadline = time.Now().Add(2 * time.Second)
	for h.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never removed after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
