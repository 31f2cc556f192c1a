// Package message defines the chat message types shared between the
// stores, the engagement pipeline, and the gateway.
package message

// Message is a single chat message in a project conversation.
// Once persisted a message is immutable; edits and deletions are handled
// by the host messaging feature, never by the agent pipeline.
type Message struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"project_id"`
	AuthorID    string         `json:"author_id"`
	AuthorName  string         `json:"author_name"`
	Text        string         `json:"text"`
	TimestampMs int64          `json:"timestamp_ms"`
	IsFromAgent bool           `json:"is_from_agent"`
	AgentMeta   *AgentMetadata `json:"agent_meta,omitempty"`
}

// AgentMetadata records how an agent-authored message came to be.
// It is only set on messages with IsFromAgent true.
type AgentMetadata struct {
	ConfidenceScore   float64  `json:"confidence_score"`
	EngagementReason  string   `json:"engagement_reason"`
	ContextMessageIDs []string `json:"context_message_ids"`
	PromptTokens      int      `json:"prompt_tokens"`
	CompletionTokens  int      `json:"completion_tokens"`
}
