// Package engage builds conversation context and decides whether the
// agent should respond to a message. The scorer is a pure function; the
// builder is the only part that touches a store.
package engage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ronitrai27/looma-agent/internal/store"
)

// ErrMessageNotFound indicates the trigger message was not in the fetched
// window, usually because newer messages evicted it.
var ErrMessageNotFound = errors.New("engage: trigger message not found in context window")

// defaultWindowSize is how many recent messages a context covers.
const defaultWindowSize = 30

// Entry is one normalized message inside a Context. Normalization to this
// shape is the contract the scorer depends on.
type Entry struct {
	Author      string
	Text        string
	TimestampMs int64
	IsFromAgent bool
}

// Trigger is the message that started the pipeline run.
type Trigger struct {
	Author string
	Text   string
}

// Context is the conversation window handed to the scorer and the
// generator. Built fresh per pipeline run, never persisted.
type Context struct {
	// TriggerMessageID identifies the trigger inside the window.
	TriggerMessageID string

	// MessageIDs are the window's message IDs, oldest first, parallel
	// to Entries.
	MessageIDs []string

	// Entries are the window's messages, oldest first, trigger included.
	Entries []Entry

	// Trigger is the message being evaluated.
	Trigger Trigger
}

// Builder assembles a Context from the most recent project messages.
type Builder struct {
	messages store.MessageStore
	window   int
	logger   *slog.Logger
}

// NewBuilder creates a Builder reading from the given message store.
func NewBuilder(messages store.MessageStore, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		messages: messages,
		window:   defaultWindowSize,
		logger:   logger,
	}
}

// Build fetches the last 30 messages for the project and normalizes them
// into a Context. Returns ErrMessageNotFound if triggerMessageID is not in
// the window. Read-only: Build has no side effects.
func (b *Builder) Build(ctx context.Context, projectID, triggerMessageID string) (Context, error) {
	msgs, err := b.messages.ListRecent(ctx, projectID, b.window)
	if err != nil {
		return Context{}, fmt.Errorf("engage: list recent messages: %w", err)
	}

	out := Context{
		TriggerMessageID: triggerMessageID,
		MessageIDs:       make([]string, 0, len(msgs)),
		Entries:          make([]Entry, 0, len(msgs)),
	}

	found := false
	for _, m := range msgs {
		out.MessageIDs = append(out.MessageIDs, m.ID)
		out.Entries = append(out.Entries, Entry{
			Author:      m.AuthorName,
			Text:        m.Text,
			TimestampMs: m.TimestampMs,
			IsFromAgent: m.IsFromAgent,
		})
		if m.ID == triggerMessageID {
			found = true
			out.Trigger = Trigger{Author: m.AuthorName, Text: m.Text}
		}
	}

	if !found {
		return Context{}, fmt.Errorf("%w: %s", ErrMessageNotFound, triggerMessageID)
	}
	return out, nil
}
