package agent

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ronitrai27/looma-agent/internal/provider"
	"github.com/ronitrai27/looma-agent/internal/provider/providertest"
	"github.com/ronitrai27/looma-agent/internal/store"
	"github.com/ronitrai27/looma-agent/pkg/message"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *captureSink) Publish(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *captureSink) last(t *testing.T) Event {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		t.Fatal("no events published")
	}
	return s.events[len(s.events)-1]
}

type captureRecorder struct {
	mu          sync.Mutex
	runs        []string
	generations int
}

func (r *captureRecorder) RecordRun(stage string, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, stage)
}

func (r *captureRecorder) RecordGeneration(time.Duration, provider.Usage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generations++
}

type fixture struct {
	responder  *Responder
	messages   *store.MemMessageStore
	configs    *store.MemConfigStore
	identities *store.MemIdentityStore
	generator  *providertest.MockGenerator
	sink       *captureSink
	recorder   *captureRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		messages:   store.NewMemMessageStore(),
		configs:    store.NewMemConfigStore(),
		identities: store.NewMemIdentityStore(),
		generator: &providertest.MockGenerator{
			Result: provider.GenerationResult{
				Content: "happy to help with that",
				Usage:   provider.Usage{PromptTokens: 42, CompletionTokens: 7},
			},
		},
		sink:     &captureSink{},
		recorder: &captureRecorder{},
	}
	f.responder = NewResponder(Options{
		Messages:   f.messages,
		Configs:    f.configs,
		Identities: f.identities,
		Generator:  f.generator,
		Logger:     slog.New(slog.DiscardHandler),
		Events:     f.sink,
		Metrics:    f.recorder,
	})
	return f
}

func (f *fixture) seed(t *testing.T, projectID string, texts ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(texts))
	for i, text := range texts {
		id, err := f.messages.Insert(context.Background(), message.Message{
			ProjectID:   projectID,
			AuthorID:    "user_1",
			AuthorName:  "Ana",
			Text:        text,
			TimestampMs: int64(1000 + i),
		})
		if err != nil {
			t.Fatalf("seed insert: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

func (f *fixture) enable(t *testing.T, projectID string, threshold float64) {
	t.Helper()
	if _, err := f.configs.Toggle(context.Background(), projectID, true); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if _, err := f.configs.UpdateSettings(context.Background(), projectID, store.SettingsPatch{
		EngagementThreshold: &threshold,
	}); err != nil {
		t.Fatalf("update settings: %v", err)
	}
}

func (f *fixture) agentMessages(t *testing.T, projectID string) []message.Message {
	t.Helper()
	msgs, err := f.messages.ListRecent(context.Background(), projectID, 0)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	var out []message.Message
	for _, m := range msgs {
		if m.IsFromAgent {
			out = append(out, m)
		}
	}
	return out
}

func TestHandleNewMessageDisabledByDefault(t *testing.T) {
	f := newFixture(t)
	ids := f.seed(t, "proj_1", "hey there, can someone help?")

	f.responder.HandleNewMessage(context.Background(), ids[0], "proj_1")

	if got := f.generator.Calls(); got != 0 {
		t.Fatalf("generator called %d times for disabled agent", got)
	}
	if got := f.agentMessages(t, "proj_1"); len(got) != 0 {
		t.Fatalf("got %d agent messages, want 0", len(got))
	}
	if e := f.sink.last(t); e.Stage != StageDisabled || e.Responded {
		t.Fatalf("event = %+v, want stage %q", e, StageDisabled)
	}
}

func TestHandleNewMessageBelowThreshold(t *testing.T) {
	f := newFixture(t)
	ids := f.seed(t, "proj_1", "does this endpoint need pagination?")
	f.enable(t, "proj_1", 0.9)

	f.responder.HandleNewMessage(context.Background(), ids[0], "proj_1")

	if got := f.generator.Calls(); got != 0 {
		t.Fatalf("generator called %d times below threshold", got)
	}
	if got := f.agentMessages(t, "proj_1"); len(got) != 0 {
		t.Fatalf("got %d agent messages, want 0", len(got))
	}
	e := f.sink.last(t)
	if e.Stage != StageThreshold {
		t.Fatalf("event stage = %q, want %q", e.Stage, StageThreshold)
	}
	if e.Score != 0.4 {
		t.Fatalf("event score = %v, want 0.4", e.Score)
	}
}

func TestHandleNewMessageRespondsExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ids := f.seed(t, "proj_1",
		"we merged the auth branch",
		"hey there, how do we configure the webhook?",
	)
	f.enable(t, "proj_1", 0.5)

	f.responder.HandleNewMessage(context.Background(), ids[1], "proj_1")

	if got := f.generator.Calls(); got != 1 {
		t.Fatalf("generator called %d times, want 1", got)
	}
	agentMsgs := f.agentMessages(t, "proj_1")
	if len(agentMsgs) != 1 {
		t.Fatalf("got %d agent messages, want 1", len(agentMsgs))
	}

	reply := agentMsgs[0]
	if reply.Text != "happy to help with that" {
		t.Errorf("reply text = %q", reply.Text)
	}
	if reply.AuthorName != store.AgentName {
		t.Errorf("reply author = %q, want %q", reply.AuthorName, store.AgentName)
	}
	if reply.AgentMeta == nil {
		t.Fatal("reply has no agent metadata")
	}
	if reply.AgentMeta.EngagementReason == "" {
		t.Error("metadata missing engagement reason")
	}
	if reply.AgentMeta.ConfidenceScore < 0.5 {
		t.Errorf("confidence = %v, want >= threshold", reply.AgentMeta.ConfidenceScore)
	}
	if got := len(reply.AgentMeta.ContextMessageIDs); got != 2 {
		t.Errorf("context ids = %d, want 2", got)
	}
	if reply.AgentMeta.PromptTokens != 42 || reply.AgentMeta.CompletionTokens != 7 {
		t.Errorf("token usage = %d/%d, want 42/7",
			reply.AgentMeta.PromptTokens, reply.AgentMeta.CompletionTokens)
	}

	cfg, err := f.configs.Get(context.Background(), "proj_1")
	if err != nil {
		t.Fatalf("config get: %v", err)
	}
	if cfg.ResponsesToday != 1 {
		t.Errorf("responses today = %d, want 1", cfg.ResponsesToday)
	}
	if cfg.LastResponseAtMs == 0 {
		t.Error("last response timestamp not set")
	}

	e := f.sink.last(t)
	if e.Stage != StageDone || !e.Responded {
		t.Errorf("event = %+v, want responded at %q", e, StageDone)
	}
	if f.recorder.generations != 1 {
		t.Errorf("recorded %d generations, want 1", f.recorder.generations)
	}
}

func TestHandleNewMessageGenerationFailureContained(t *testing.T) {
	f := newFixture(t)
	f.generator.Err = provider.ErrProviderDown
	ids := f.seed(t, "proj_1", "hey there everyone")
	f.enable(t, "proj_1", 0.5)

	f.responder.HandleNewMessage(context.Background(), ids[0], "proj_1")

	if got := f.agentMessages(t, "proj_1"); len(got) != 0 {
		t.Fatalf("got %d agent messages after generation failure, want 0", len(got))
	}
	cfg, _ := f.configs.Get(context.Background(), "proj_1")
	if cfg.ResponsesToday != 0 {
		t.Errorf("responses today = %d, want 0", cfg.ResponsesToday)
	}
	if e := f.sink.last(t); e.Stage != StageGenerate {
		t.Errorf("event stage = %q, want %q", e.Stage, StageGenerate)
	}
}

func TestHandleNewMessageUnknownTrigger(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "proj_1", "hello team")
	f.enable(t, "proj_1", 0.5)

	f.responder.HandleNewMessage(context.Background(), "msg_missing", "proj_1")

	if got := f.generator.Calls(); got != 0 {
		t.Fatalf("generator called %d times for unknown trigger", got)
	}
	if e := f.sink.last(t); e.Stage != StageContext {
		t.Errorf("event stage = %q, want %q", e.Stage, StageContext)
	}
}

func TestHandleNewMessageIdentityStable(t *testing.T) {
	f := newFixture(t)
	f.enable(t, "proj_1", 0.5)

	ids := f.seed(t, "proj_1", "hey there, first ping")
	f.responder.HandleNewMessage(context.Background(), ids[0], "proj_1")

	ids = f.seed(t, "proj_1", "hey there, did the second ping land?")
	f.responder.HandleNewMessage(context.Background(), ids[0], "proj_1")

	agentMsgs := f.agentMessages(t, "proj_1")
	if len(agentMsgs) != 2 {
		t.Fatalf("got %d agent messages, want 2", len(agentMsgs))
	}
	if agentMsgs[0].AuthorID != agentMsgs[1].AuthorID {
		t.Errorf("agent identity changed between runs: %q vs %q",
			agentMsgs[0].AuthorID, agentMsgs[1].AuthorID)
	}

	user, err := f.identities.FindAgentUser(context.Background())
	if err != nil {
		t.Fatalf("find agent user: %v", err)
	}
	if user.Email != store.AgentEmail {
		t.Errorf("agent email = %q, want %q", user.Email, store.AgentEmail)
	}
}

func TestHandleNewMessageMetadataWindowTrimmed(t *testing.T) {
	f := newFixture(t)
	texts := make([]string, 14)
	for i := range texts {
		texts[i] = "update on the rollout"
	}
	texts = append(texts, "hey there, what did I miss?")
	ids := f.seed(t, "proj_1", texts...)
	f.enable(t, "proj_1", 0.5)

	f.responder.HandleNewMessage(context.Background(), ids[len(ids)-1], "proj_1")

	agentMsgs := f.agentMessages(t, "proj_1")
	if len(agentMsgs) != 1 {
		t.Fatalf("got %d agent messages, want 1", len(agentMsgs))
	}
	meta := agentMsgs[0].AgentMeta
	if got := len(meta.ContextMessageIDs); got != metadataWindow {
		t.Fatalf("metadata keeps %d context ids, want %d", got, metadataWindow)
	}
	if got, want := meta.ContextMessageIDs[metadataWindow-1], ids[len(ids)-1]; got != want {
		t.Errorf("newest context id = %q, want %q", got, want)
	}

	// The prompt is bounded the same way the metadata is.
	turns := f.generator.Requests[0].Turns
	if got := len(turns); got != metadataWindow {
		t.Fatalf("generator saw %d turns, want %d", got, metadataWindow)
	}
	if got, want := turns[len(turns)-1].Text, "hey there, what did I miss?"; got != want {
		t.Errorf("newest turn text = %q, want %q", got, want)
	}
}

func TestHandleNewMessageRateLimitBlocks(t *testing.T) {
	f := newFixture(t)
	blocked := func(store.AgentConfig) bool { return false }
	f.responder = NewResponder(Options{
		Messages:   f.messages,
		Configs:    f.configs,
		Identities: f.identities,
		Generator:  f.generator,
		Logger:     slog.New(slog.DiscardHandler),
		Events:     f.sink,
		RateLimit:  blocked,
	})
	ids := f.seed(t, "proj_1", "hey there")
	f.enable(t, "proj_1", 0.5)

	f.responder.HandleNewMessage(context.Background(), ids[0], "proj_1")

	if got := f.generator.Calls(); got != 0 {
		t.Fatalf("generator called %d times while rate limited", got)
	}
	if e := f.sink.last(t); e.Stage != StageRateLimit {
		t.Errorf("event stage = %q, want %q", e.Stage, StageRateLimit)
	}
}

func TestAllowAlways(t *testing.T) {
	cfg := store.AgentConfig{ResponsesToday: 10_000, LastResponseAtMs: time.Now().UnixMilli()}
	if !AllowAlways(cfg) {
		t.Fatal("AllowAlways returned false")
	}
}
