// Package agent implements the response pipeline: for each new chat
// message it loads the project's agent config, builds conversation
// context, scores engagement, and — when the score clears the project's
// threshold — generates and persists exactly one reply.
package agent

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ronitrai27/looma-agent/internal/engage"
	"github.com/ronitrai27/looma-agent/internal/provider"
	"github.com/ronitrai27/looma-agent/internal/store"
	"github.com/ronitrai27/looma-agent/pkg/message"
)

// Pipeline stages, used for logs, metrics, and activity events.
const (
	StageConfig    = "config"
	StageDisabled  = "disabled"
	StageRateLimit = "rate_limit"
	StageContext   = "context"
	StageThreshold = "threshold"
	StageGenerate  = "generate"
	StageIdentity  = "identity"
	StagePersist   = "persist"
	StageDone      = "done"
)

// metadataWindow bounds both the conversation turns sent to the generator
// and the context message IDs a reply's metadata keeps.
const metadataWindow = 10

// Event describes the outcome of one pipeline run.
type Event struct {
	ProjectID   string  `json:"project_id"`
	MessageID   string  `json:"message_id"`
	Responded   bool    `json:"responded"`
	Stage       string  `json:"stage"`
	Score       float64 `json:"score"`
	Reason      string  `json:"reason,omitempty"`
	TimestampMs int64   `json:"timestamp_ms"`
}

// EventSink receives pipeline outcome events. Publish must not block.
type EventSink interface {
	Publish(Event)
}

// Recorder receives pipeline metrics.
type Recorder interface {
	// RecordRun counts a finished run by its terminal stage.
	RecordRun(stage string, responded bool)

	// RecordGeneration observes one successful generation.
	RecordGeneration(elapsed time.Duration, usage provider.Usage)
}

// Options wires a Responder. Messages, Configs, Identities, and Generator
// are required; everything else has a working default.
type Options struct {
	Messages   store.MessageStore
	Configs    store.ConfigStore
	Identities store.IdentityStore
	Generator  provider.Generator

	Logger    *slog.Logger
	RateLimit RateLimitPolicy // nil → AllowAlways
	Events    EventSink       // optional
	Metrics   Recorder        // optional
	Now       func() time.Time
}

// Responder runs the response pipeline. Runs for the same project are not
// serialized: two near-simultaneous triggers can both clear the threshold
// and both reply. That race is inherited from the original design and is
// deliberately not locked away.
type Responder struct {
	messages   store.MessageStore
	configs    store.ConfigStore
	identities store.IdentityStore
	builder    *engage.Builder
	generator  provider.Generator
	rateLimit  RateLimitPolicy
	events     EventSink
	metrics    Recorder
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewResponder creates a Responder from opts.
func NewResponder(opts Options) *Responder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rl := opts.RateLimit
	if rl == nil {
		rl = AllowAlways
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Responder{
		messages:   opts.Messages,
		configs:    opts.Configs,
		identities: opts.Identities,
		builder:    engage.NewBuilder(opts.Messages, logger),
		generator:  opts.Generator,
		rateLimit:  rl,
		events:     opts.Events,
		metrics:    opts.Metrics,
		logger:     logger.With("component", "responder"),
		tracer:     otel.Tracer("looma-agent/agent"),
		now:        now,
	}
}

// HandleNewMessage runs the pipeline for one trigger message. It never
// returns an error: every stage failure is logged and ends the run, so a
// broken agent can never break the message-send path that invoked it.
func (r *Responder) HandleNewMessage(ctx context.Context, messageID, projectID string) {
	ctx, span := r.tracer.Start(ctx, "agent.handle_message",
		trace.WithAttributes(
			attribute.String("project_id", projectID),
			attribute.String("message_id", messageID),
		))
	defer span.End()

	log := r.logger.With("project_id", projectID, "message_id", messageID)

	// 1. Config. Fetch failures degrade to the disabled default.
	cfg, err := r.configs.Get(ctx, projectID)
	if err != nil {
		log.Error("config fetch failed, treating agent as disabled", "error", err)
		r.finish(span, projectID, messageID, StageConfig, engage.Analysis{})
		return
	}
	if !cfg.Enabled {
		log.Debug("agent disabled for project")
		r.finish(span, projectID, messageID, StageDisabled, engage.Analysis{})
		return
	}

	// 2. Rate limit. Currently a pass-through; the seam stays.
	if !r.rateLimit(cfg) {
		log.Info("rate limit exceeded")
		r.finish(span, projectID, messageID, StageRateLimit, engage.Analysis{})
		return
	}

	// 3. Context.
	conv, err := r.builder.Build(ctx, projectID, messageID)
	if err != nil {
		log.Warn("context build failed", "error", err)
		r.finish(span, projectID, messageID, StageContext, engage.Analysis{})
		return
	}

	// 4. Score.
	analysis := engage.Score(conv)
	span.SetAttributes(
		attribute.Float64("engagement.score", analysis.Score),
		attribute.String("engagement.reason", analysis.Reason),
	)
	log.Info("engagement analyzed",
		"score", analysis.Score,
		"reason", analysis.Reason,
		"threshold", cfg.EngagementThreshold,
	)

	// 5. Threshold gate. The project's configured threshold is
	// authoritative; analysis.ShouldRespond is not consulted.
	if analysis.Score < cfg.EngagementThreshold {
		r.finish(span, projectID, messageID, StageThreshold, analysis)
		return
	}

	// 6. Generate.
	started := r.now()
	result, err := r.generator.Generate(ctx, generationRequest(conv))
	if err != nil {
		log.Warn("generation failed", "error", err)
		r.finish(span, projectID, messageID, StageGenerate, analysis)
		return
	}
	if r.metrics != nil {
		r.metrics.RecordGeneration(r.now().Sub(started), result.Usage)
	}

	// 7. Persist under the agent identity.
	user, err := r.ensureAgentUser(ctx)
	if err != nil {
		log.Error("agent identity unavailable", "error", err)
		r.finish(span, projectID, messageID, StageIdentity, analysis)
		return
	}

	reply := message.Message{
		ProjectID:   projectID,
		AuthorID:    user.ID,
		AuthorName:  user.Name,
		Text:        result.Content,
		TimestampMs: r.now().UnixMilli(),
		IsFromAgent: true,
		AgentMeta: &message.AgentMetadata{
			ConfidenceScore:   analysis.Score,
			EngagementReason:  analysis.Reason,
			ContextMessageIDs: lastN(conv.MessageIDs, metadataWindow),
			PromptTokens:      result.Usage.PromptTokens,
			CompletionTokens:  result.Usage.CompletionTokens,
		},
	}
	if _, err := r.messages.Insert(ctx, reply); err != nil {
		log.Error("reply insert failed", "error", err)
		r.finish(span, projectID, messageID, StagePersist, analysis)
		return
	}

	// 8. Bookkeeping. The reply is already sent; a failed bump is logged
	// and accepted (no compensating delete).
	if err := r.configs.BumpAfterResponse(ctx, projectID); err != nil {
		log.Error("response counter bump failed", "error", err)
	}

	log.Info("response sent", "tokens", result.Usage.PromptTokens+result.Usage.CompletionTokens)
	r.finish(span, projectID, messageID, StageDone, analysis)
}

// ensureAgentUser is the idempotent get-or-create of the system identity.
func (r *Responder) ensureAgentUser(ctx context.Context) (store.AgentUser, error) {
	if user, err := r.identities.FindAgentUser(ctx); err == nil {
		return *user, nil
	}
	return r.identities.CreateAgentUser(ctx)
}

// finish records the run's terminal stage everywhere it is observed.
func (r *Responder) finish(span trace.Span, projectID, messageID, stage string, analysis engage.Analysis) {
	responded := stage == StageDone
	span.SetAttributes(attribute.String("pipeline.stage", stage))

	if r.metrics != nil {
		r.metrics.RecordRun(stage, responded)
	}
	if r.events != nil {
		r.events.Publish(Event{
			ProjectID:   projectID,
			MessageID:   messageID,
			Responded:   responded,
			Stage:       stage,
			Score:       analysis.Score,
			Reason:      analysis.Reason,
			TimestampMs: r.now().UnixMilli(),
		})
	}
}

// generationRequest maps the tail of the context window to generator turns.
func generationRequest(conv engage.Context) provider.GenerationRequest {
	entries := conv.Entries
	if len(entries) > metadataWindow {
		entries = entries[len(entries)-metadataWindow:]
	}
	turns := make([]provider.Turn, 0, len(entries))
	for _, e := range entries {
		turns = append(turns, provider.Turn{Author: e.Author, Text: e.Text})
	}
	return provider.GenerationRequest{Turns: turns}
}

func lastN(ids []string, n int) []string {
	if len(ids) <= n {
		out := make([]string, len(ids))
		copy(out, ids)
		return out
	}
	out := make([]string, n)
	copy(out, ids[len(ids)-n:])
	return out
}
