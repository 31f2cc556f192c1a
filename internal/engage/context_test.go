package engage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ronitrai27/looma-agent/internal/store"
	"github.com/ronitrai27/looma-agent/pkg/message"
)

func seedMessages(t *testing.T, ms *store.MemMessageStore, projectID string, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id, err := ms.Insert(context.Background(), message.Message{
			ProjectID:   projectID,
			AuthorID:    "u1",
			AuthorName:  "sam",
			Text:        fmt.Sprintf("message %d", i),
			TimestampMs: int64(1000 + i),
		})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestBuilderNormalizesWindow(t *testing.T) {
	ms := store.NewMemMessageStore()
	ids := seedMessages(t, ms, "p1", 3)

	b := NewBuilder(ms, nil)
	c, err := b.Build(context.Background(), "p1", ids[2])
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(c.Entries) != 3 {
		t.Fatalf("len(Entries) = %d, want 3", len(c.Entries))
	}
	if c.Entries[0].Text != "message 0" || c.Entries[2].Text != "message 2" {
		t.Errorf("entries not oldest-first: %+v", c.Entries)
	}
	if c.Trigger.Text != "message 2" || c.Trigger.Author != "sam" {
		t.Errorf("Trigger = %+v, want message 2 by sam", c.Trigger)
	}
	if c.TriggerMessageID != ids[2] {
		t.Errorf("TriggerMessageID = %q, want %q", c.TriggerMessageID, ids[2])
	}
	if len(c.MessageIDs) != 3 || c.MessageIDs[2] != ids[2] {
		t.Errorf("MessageIDs = %v, want parallel to entries", c.MessageIDs)
	}
}

func TestBuilderWindowBound(t *testing.T) {
	ms := store.NewMemMessageStore()
	ids := seedMessages(t, ms, "p1", 40)

	b := NewBuilder(ms, nil)
	c, err := b.Build(context.Background(), "p1", ids[39])
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(c.Entries) != 30 {
		t.Errorf("len(Entries) = %d, want 30", len(c.Entries))
	}
	if c.Entries[0].Text != "message 10" {
		t.Errorf("oldest entry = %q, want %q", c.Entries[0].Text, "message 10")
	}
}

func TestBuilderTriggerEvicted(t *testing.T) {
	ms := store.NewMemMessageStore()
	ids := seedMessages(t, ms, "p1", 40)

	b := NewBuilder(ms, nil)
	// ids[0] fell out of the 30-message window.
	_, err := b.Build(context.Background(), "p1", ids[0])
	if !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("err = %v, want ErrMessageNotFound", err)
	}
}

func TestBuilderUnknownTrigger(t *testing.T) {
	ms := store.NewMemMessageStore()
	seedMessages(t, ms, "p1", 3)

	b := NewBuilder(ms, nil)
	_, err := b.Build(context.Background(), "p1", "msg_nope")
	if !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("err = %v, want ErrMessageNotFound", err)
	}
}
