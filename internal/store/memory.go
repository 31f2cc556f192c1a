package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ronitrai27/looma-agent/pkg/message"
)

// MemMessageStore is a thread-safe, in-memory MessageStore. It backs tests
// and the "memory" store driver for single-process deployments.
type MemMessageStore struct {
	mu       sync.RWMutex
	messages map[string][]message.Message // projectID → messages, oldest first
	byID     map[string]message.Message
	seq      int

	// now is swappable for tests.
	now func() time.Time
}

// Compile-time interface check.
var _ MessageStore = (*MemMessageStore)(nil)

// NewMemMessageStore creates an empty in-memory message store.
func NewMemMessageStore() *MemMessageStore {
	return &MemMessageStore{
		messages: make(map[string][]message.Message),
		byID:     make(map[string]message.Message),
		now:      time.Now,
	}
}

// ListRecent implements MessageStore.
func (s *MemMessageStore) ListRecent(_ context.Context, projectID string, limit int) ([]message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[projectID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]message.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Insert implements MessageStore.
func (s *MemMessageStore) Insert(_ context.Context, msg message.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		s.seq++
		msg.ID = fmt.Sprintf("msg_%06d", s.seq)
	}
	if msg.TimestampMs == 0 {
		msg.TimestampMs = s.now().UnixMilli()
	}
	s.messages[msg.ProjectID] = append(s.messages[msg.ProjectID], msg)
	s.byID[msg.ID] = msg
	return msg.ID, nil
}

// Get implements MessageStore.
func (s *MemMessageStore) Get(_ context.Context, id string) (*message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := msg
	return &cp, nil
}

// MemConfigStore is a thread-safe, in-memory ConfigStore.
type MemConfigStore struct {
	mu      sync.RWMutex
	configs map[string]AgentConfig
	now     func() time.Time
}

// Compile-time interface check.
var _ ConfigStore = (*MemConfigStore)(nil)

// NewMemConfigStore creates an empty in-memory config store.
func NewMemConfigStore() *MemConfigStore {
	return &MemConfigStore{
		configs: make(map[string]AgentConfig),
		now:     time.Now,
	}
}

// SetClock replaces the store's clock. Only for testing.
func (s *MemConfigStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Get implements ConfigStore: returns the stored config or the default.
func (s *MemConfigStore) Get(_ context.Context, projectID string) (AgentConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if cfg, ok := s.configs[projectID]; ok {
		return cfg, nil
	}
	return DefaultConfig(projectID), nil
}

// Toggle implements ConfigStore.
func (s *MemConfigStore) Toggle(_ context.Context, projectID string, enabled bool) (AgentConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nowMs := s.now().UnixMilli()
	cfg, ok := s.configs[projectID]
	if !ok {
		cfg = DefaultConfig(projectID)
		cfg.CreatedAtMs = nowMs
	}
	cfg.Enabled = enabled
	cfg.UpdatedAtMs = nowMs
	s.configs[projectID] = cfg
	return cfg, nil
}

// UpdateSettings implements ConfigStore.
func (s *MemConfigStore) UpdateSettings(_ context.Context, projectID string, patch SettingsPatch) (AgentConfig, error) {
	if patch.EngagementThreshold != nil &&
		(*patch.EngagementThreshold < 0 || *patch.EngagementThreshold > 1) {
		return AgentConfig{}, ErrThresholdRange
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[projectID]
	if !ok {
		return AgentConfig{}, ErrNoConfig
	}
	if patch.Frequency != nil {
		cfg.Frequency = *patch.Frequency
	}
	if patch.EngagementThreshold != nil {
		cfg.EngagementThreshold = *patch.EngagementThreshold
	}
	cfg.UpdatedAtMs = s.now().UnixMilli()
	s.configs[projectID] = cfg
	return cfg, nil
}

// BumpAfterResponse implements ConfigStore.
func (s *MemConfigStore) BumpAfterResponse(_ context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[projectID]
	if !ok {
		return nil
	}
	nowMs := s.now().UnixMilli()
	cfg.LastResponseAtMs = nowMs
	cfg.ResponsesToday++
	cfg.UpdatedAtMs = nowMs
	s.configs[projectID] = cfg
	return nil
}

// ResetDailyCounters implements ConfigStore.
func (s *MemConfigStore) ResetDailyCounters(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nowMs := s.now().UnixMilli()
	n := 0
	for id, cfg := range s.configs {
		cfg.ResponsesToday = 0
		cfg.UpdatedAtMs = nowMs
		s.configs[id] = cfg
		n++
	}
	return n, nil
}

// MemIdentityStore is a thread-safe, in-memory IdentityStore.
type MemIdentityStore struct {
	mu    sync.Mutex
	agent *AgentUser
	now   func() time.Time
}

// Compile-time interface check.
var _ IdentityStore = (*MemIdentityStore)(nil)

// NewMemIdentityStore creates an empty in-memory identity store.
func NewMemIdentityStore() *MemIdentityStore {
	return &MemIdentityStore{now: time.Now}
}

// FindAgentUser implements IdentityStore.
func (s *MemIdentityStore) FindAgentUser(_ context.Context) (*AgentUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.agent == nil {
		return nil, ErrNotFound
	}
	cp := *s.agent
	return &cp, nil
}

// CreateAgentUser implements IdentityStore.
func (s *MemIdentityStore) CreateAgentUser(_ context.Context) (AgentUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.agent != nil {
		return *s.agent, nil
	}
	user := AgentUser{
		ID:          "user_agent",
		Email:       AgentEmail,
		Name:        AgentName,
		AvatarURL:   AgentAvatarURL,
		CreatedAtMs: s.now().UnixMilli(),
	}
	s.agent = &user
	return user, nil
}
