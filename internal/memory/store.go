package memory

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Config holds record lifetimes.
type Config struct {
	ConversationTTL  time.Duration
	LongTermTTL      time.Duration
	OperationTimeout time.Duration
}

// DefaultConfig returns 24h conversations and 30 day long-term records.
func DefaultConfig() Config {
	return Config{
		ConversationTTL:  24 * time.Hour,
		LongTermTTL:      30 * 24 * time.Hour,
		OperationTimeout: 5 * time.Second,
	}
}

// Store reads and appends per-user records. It never returns errors: an
// unavailable or failing backend degrades to empty reads and no-op writes.
//
// Appends are read-modify-write of the whole list and are not atomic;
// concurrent appends for the same user are last-writer-wins.
type Store struct {
	backend   Backend
	available bool
	cfg       Config
	log       *slog.Logger
	now       func() time.Time
}

// NewStore pings the backend once and remembers whether it is available.
func NewStore(ctx context.Context, backend Backend, cfg Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.ConversationTTL <= 0 {
		cfg.ConversationTTL = def.ConversationTTL
	}
	if cfg.LongTermTTL <= 0 {
		cfg.LongTermTTL = def.LongTermTTL
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = def.OperationTimeout
	}

	s := &Store{
		backend: backend,
		cfg:     cfg,
		log:     logger.With("component", "memory_store"),
		now:     time.Now,
	}

	if backend == nil {
		s.log.WarnContext(ctx, "No memory backend configured, memory disabled")
		return s
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.OperationTimeout)
	defer cancel()
	if err := backend.Ping(pingCtx); err != nil {
		s.log.ErrorContext(ctx, "Memory backend unavailable, memory disabled", "error", err)
		return s
	}

	s.available = true
	s.log.InfoContext(ctx, "Memory store initialized",
		"conversation_ttl", cfg.ConversationTTL, "long_term_ttl", cfg.LongTermTTL)
	return s
}

// Available reports the result of the construction-time ping.
func (s *Store) Available() bool { return s.available }

// StoreConversation appends turn to the user's conversation and refreshes its TTL.
func (s *Store) StoreConversation(ctx context.Context, userID string, turn Turn) {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = s.now().UTC()
	}
	appendRecord(ctx, s, Key(KindConversation, userID), s.cfg.ConversationTTL, turn)
}

// StoreLongTerm appends record to the user's long-term memory and refreshes its TTL.
func (s *Store) StoreLongTerm(ctx context.Context, userID string, record LongTermRecord) {
	if record.Timestamp.IsZero() {
		record.Timestamp = s.now().UTC()
	}
	appendRecord(ctx, s, Key(KindLongTerm, userID), s.cfg.LongTermTTL, record)
}

// GetConversations returns the user's turns, oldest first.
func (s *Store) GetConversations(ctx context.Context, userID string) []Turn {
	return readList[Turn](ctx, s, Key(KindConversation, userID))
}

// GetLongTerm returns the user's long-term records, oldest first.
func (s *Store) GetLongTerm(ctx context.Context, userID string) []LongTermRecord {
	return readList[LongTermRecord](ctx, s, Key(KindLongTerm, userID))
}

// GetAll returns both record kinds for the user.
func (s *Store) GetAll(ctx context.Context, userID string) Snapshot {
	return Snapshot{
		Conversations: s.GetConversations(ctx, userID),
		LongTerm:      s.GetLongTerm(ctx, userID),
	}
}

func readList[T any](ctx context.Context, s *Store, key string) []T {
	items := []T{}
	if !s.available {
		return items
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	raw, found, err := s.backend.Get(opCtx, key)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to read memory", "key", key, "error", err)
		return items
	}
	if !found || raw == "" {
		return items
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.log.ErrorContext(ctx, "Failed to decode memory", "key", key, "error", err)
		return []T{}
	}
	return items
}

func appendRecord[T any](ctx context.Context, s *Store, key string, ttl time.Duration, item T) {
	if !s.available {
		return
	}

	items := readList[T](ctx, s, key)
	items = append(items, item)

	data, err := json.Marshal(items)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to encode memory", "key", key, "error", err)
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()
	if err := s.backend.Put(opCtx, key, string(data), ttl); err != nil {
		s.log.ErrorContext(ctx, "Failed to write memory", "key", key, "error", err)
		return
	}
	s.log.DebugContext(ctx, "Memory appended", "key", key, "count", len(items))
}
