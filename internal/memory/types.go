// Package memory stores per-user conversation turns and long-term records
// in a TTL-scoped key-value backend.
package memory

import (
	"context"
	"time"
)

// Role is the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Record types, used as key prefixes.
const (
	KindConversation = "conversation"
	KindLongTerm     = "longterm"
)

// Turn is one entry of a user's conversation history.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// LongTermRecord is a durable fact or event about a user.
type LongTermRecord struct {
	Type      string    `json:"type"`
	Action    string    `json:"action,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is everything the store holds for a user.
type Snapshot struct {
	Conversations []Turn           `json:"conversations"`
	LongTerm      []LongTermRecord `json:"long_term"`
}

// Backend is the key-value storage the Store is built on.
// Get reports found=false for absent or expired keys.
type Backend interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Put(ctx context.Context, key, value string, ttl time.Duration) error
}

// Key builds the backend key for a record kind and user.
func Key(kind, userID string) string {
	return kind + ":" + userID
}
