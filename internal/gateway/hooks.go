package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// hookTimeout bounds one pipeline run triggered by a hook. Generation plus
// two store round-trips fits comfortably inside it.
const hookTimeout = 2 * time.Minute

// messageHook is the POST /hooks/message payload sent by the chat backend
// whenever a human posts a message.
type messageHook struct {
	MessageID string `json:"message_id"`
	ProjectID string `json:"project_id"`
}

// handleMessageHook accepts a new-message notification and kicks off the
// response pipeline in the background. The hook returns 202 immediately:
// the chat backend must never wait on (or fail because of) the agent.
func (g *Gateway) handleMessageHook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil {
			g.rejectHook(w, "failed to read body", http.StatusBadRequest)
			return
		}

		if g.config.WebhookSecret != "" {
			sig := r.Header.Get("X-Signature-256")
			if !validateHMAC(body, sig, g.config.WebhookSecret) {
				g.rejectHook(w, "invalid signature", http.StatusUnauthorized)
				return
			}
		}

		var hook messageHook
		if err := json.Unmarshal(body, &hook); err != nil {
			g.rejectHook(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if hook.MessageID == "" || hook.ProjectID == "" {
			g.rejectHook(w, "message_id and project_id are required", http.StatusBadRequest)
			return
		}

		if g.metrics != nil {
			g.metrics.hooksAccepted.Inc()
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
			defer cancel()
			g.responder.HandleNewMessage(ctx, hook.MessageID, hook.ProjectID)
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"accepted":true}`))
	}
}

func (g *Gateway) rejectHook(w http.ResponseWriter, msg string, code int) {
	if g.metrics != nil {
		g.metrics.hooksRejected.Inc()
	}
	http.Error(w, msg, code)
}

// validateHMAC checks an HMAC-SHA256 signature in constant time.
func validateHMAC(body []byte, signature, secret string) bool {
	expected := SignHook(body, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// SignHook computes the X-Signature-256 header value for a hook body.
// Exported for the chat backend's client and for tests.
func SignHook(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
