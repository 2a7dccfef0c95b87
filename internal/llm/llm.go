// Package llm defines the generation contract shared by the processor,
// the actions and the language-model backends.
package llm

import (
	"context"
	"strings"
)

// Role of a message in a completion request.
type Role string

// Completion roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of an ordered completion context.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Completer generates a reply for an ordered list of messages.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, messages []Message) (string, error)

// Complete implements Completer.
func (f CompleterFunc) Complete(ctx context.Context, messages []Message) (string, error) {
	return f(ctx, messages)
}

// Transcript renders messages as "role: content" lines, mostly for logs and tests.
func Transcript(messages []Message) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}
