package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ronitrai27/looma-agent/internal/engage"
	"github.com/ronitrai27/looma-agent/internal/store"
)

// handleGetAgentConfig returns the project's agent config, falling back to
// the defaults for projects that never touched the agent.
func (g *Gateway) handleGetAgentConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")

		cfg, err := g.configs.Get(r.Context(), projectID)
		if err != nil {
			g.logger.Error("config fetch failed", "project_id", projectID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

// toggleRequest is the PUT .../agent/enabled payload.
type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

func (g *Gateway) handleToggleAgent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")

		var req toggleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}

		cfg, err := g.configs.Toggle(r.Context(), projectID, req.Enabled)
		if err != nil {
			g.logger.Error("toggle failed", "project_id", projectID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		g.logger.Info("agent toggled", "project_id", projectID, "enabled", req.Enabled)
		writeJSON(w, http.StatusOK, cfg)
	}
}

func (g *Gateway) handleUpdateSettings() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")

		var patch store.SettingsPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if patch.Frequency != nil && !store.ValidFrequency(*patch.Frequency) {
			http.Error(w, "unknown response_frequency", http.StatusBadRequest)
			return
		}

		cfg, err := g.configs.UpdateSettings(r.Context(), projectID, patch)
		switch {
		case errors.Is(err, store.ErrThresholdRange):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case errors.Is(err, store.ErrNoConfig):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case err != nil:
			g.logger.Error("settings update failed", "project_id", projectID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

// previewRequest is the POST .../agent/preview payload.
type previewRequest struct {
	MessageID string `json:"message_id"`
}

// previewResponse reports how the scorer would treat a message, without
// generating or persisting anything.
type previewResponse struct {
	Score     float64 `json:"score"`
	Reason    string  `json:"reason"`
	Threshold float64 `json:"threshold"`
	WouldSend bool    `json:"would_send"`
}

// handlePreview scores a message against the project's current threshold.
// Useful for tuning thresholds from the project settings UI.
func (g *Gateway) handlePreview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")

		var req previewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if req.MessageID == "" {
			http.Error(w, "message_id is required", http.StatusBadRequest)
			return
		}

		conv, err := g.builder.Build(r.Context(), projectID, req.MessageID)
		if errors.Is(err, engage.ErrMessageNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			g.logger.Error("preview context build failed", "project_id", projectID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		cfg, err := g.configs.Get(r.Context(), projectID)
		if err != nil {
			g.logger.Error("preview config fetch failed", "project_id", projectID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		analysis := engage.Score(conv)
		writeJSON(w, http.StatusOK, previewResponse{
			Score:     analysis.Score,
			Reason:    analysis.Reason,
			Threshold: cfg.EngagementThreshold,
			WouldSend: cfg.Enabled && analysis.Score >= cfg.EngagementThreshold,
		})
	}
}

// healthResponse is the GET /healthz payload.
type healthResponse struct {
	Status      string `json:"status"`
	Subscribers int    `json:"activity_subscribers"`
}

func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := healthResponse{Status: "ok"}
		if g.hub != nil {
			resp.Subscribers = g.hub.Subscribers()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
