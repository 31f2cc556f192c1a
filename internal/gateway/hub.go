package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/ronitrai27/looma-agent/internal/agent"
)

// writeTimeout bounds each event write to a subscriber.
const writeTimeout = 5 * time.Second

// subscriberBuffer is the per-subscriber event queue. A subscriber that
// falls this far behind is dropped rather than slowing the pipeline.
const subscriberBuffer = 16

// Hub fans pipeline events out to WebSocket subscribers watching the
// agent's activity. It implements agent.EventSink.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan agent.Event]struct{}
	logger *slog.Logger
}

// Compile-time interface check.
var _ agent.EventSink = (*Hub)(nil)

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[chan agent.Event]struct{}),
		logger: logger,
	}
}

// Publish implements agent.EventSink. It never blocks: subscribers with a
// full queue are skipped.
func (h *Hub) Publish(e agent.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) subscribe() chan agent.Event {
	ch := make(chan agent.Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan agent.Event) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

// ServeHTTP upgrades the connection and streams events until the client
// disconnects. Incoming frames are discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusInternalError, "unexpected close")
	}()

	// CloseRead surfaces client disconnects through ctx while dropping
	// any frames the client sends.
	ctx := conn.CloseRead(r.Context())

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	h.logger.Debug("activity subscriber connected", "remote", r.RemoteAddr)

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case event := <-ch:
			if err := h.write(ctx, conn, event); err != nil {
				h.logger.Debug("activity subscriber dropped", "error", err)
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, e agent.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
