package processor

import (
	"context"
	"strings"

	"github.com/edgard/socialbot/internal/bot/actions"
	"github.com/edgard/socialbot/internal/llm"
	"github.com/edgard/socialbot/internal/memory"
)

// snapshotCache keeps each user's memory for the length of one drain cycle.
type snapshotCache struct {
	mem   Memory
	users map[string]memory.Snapshot
}

func newSnapshotCache(mem Memory) *snapshotCache {
	return &snapshotCache{mem: mem, users: make(map[string]memory.Snapshot)}
}

func (c *snapshotCache) get(ctx context.Context, userID string) memory.Snapshot {
	if s, ok := c.users[userID]; ok {
		return s
	}
	s := c.mem.GetAll(ctx, userID)
	c.users[userID] = s
	return s
}

func (c *snapshotCache) invalidate(userID string) {
	delete(c.users, userID)
}

// buildContext orders the completion as persona, remembered facts, history, then the new text.
func buildContext(systemPrompt string, snap memory.Snapshot, text string) []llm.Message {
	msgs := make([]llm.Message, 0, len(snap.Conversations)+3)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})

	var facts []string
	for _, r := range snap.LongTerm {
		if r.Type == actions.RecordTypeFact && r.Content != "" {
			facts = append(facts, "- "+r.Content)
		}
	}
	if len(facts) > 0 {
		msgs = append(msgs, llm.Message{
			Role:    llm.RoleSystem,
			Content: "Things this user asked you to remember:\n" + strings.Join(facts, "\n"),
		})
	}

	for _, t := range snap.Conversations {
		role := llm.RoleUser
		if t.Role == memory.RoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Content})
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: text})
}
