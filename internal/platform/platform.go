// Package platform defines the outbound contract of a social network client
// and the registry the processor resolves clients from.
package platform

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/edgard/socialbot/internal/message"
)

// ErrNoClient is returned when no client is registered for a platform.
var ErrNoClient = errors.New("no client registered for platform")

// Ack confirms a published reply.
type Ack struct {
	Platform message.Platform `json:"platform"`
	ID       string           `json:"id"`
}

// Client normalizes inbound payloads and publishes replies for one platform.
type Client interface {
	Platform() message.Platform
	// Transform returns the normalized form of msg, filling fields such as
	// ReplyTo and the author from the raw platform payload.
	Transform(ctx context.Context, msg *message.Message) (*message.Message, error)
	// Publish posts text as a reply to parentID. An empty parentID posts at top level.
	Publish(ctx context.Context, text, parentID string, embeds []string) (Ack, error)
	// MaxLength is the longest text, in runes, the platform accepts.
	MaxLength() int
}

// Registry maps platforms to their clients.
type Registry struct {
	mu      sync.RWMutex
	clients map[message.Platform]Client
}

// NewRegistry returns a registry holding the given clients.
func NewRegistry(clients ...Client) *Registry {
	r := &Registry{clients: make(map[message.Platform]Client)}
	for _, c := range clients {
		r.Register(c)
	}
	return r
}

// Register adds or replaces the client for c.Platform().
func (r *Registry) Register(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.Platform()] = c
}

// Get returns the client for p.
func (r *Registry) Get(p message.Platform) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[p]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoClient, p)
	}
	return c, nil
}

// Platforms lists the registered platforms in sorted order.
func (r *Registry) Platforms() []message.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]message.Platform, 0, len(r.clients))
	for p := range r.clients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Truncate shortens text to at most limit runes. It cuts after the last
// sentence terminator that fits, falling back to the last word boundary and
// then to a hard cut.
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}

	cut := runes[:limit]
	for i := len(cut) - 1; i > 0; i-- {
		if !isTerminator(cut[i]) {
			continue
		}
		// The terminator must end a sentence, not sit inside a token like "3.14".
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		return strings.TrimSpace(string(cut[:i+1]))
	}

	for i := len(cut) - 1; i > 0; i-- {
		if unicode.IsSpace(cut[i]) {
			return strings.TrimSpace(string(cut[:i]))
		}
	}
	return string(cut)
}

func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}
