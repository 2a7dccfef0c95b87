package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/socialbot/internal/logger"
)

func setupRedisStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	backend := NewRedisBackend(RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { _ = backend.Close() })

	store := NewStore(context.Background(), backend, DefaultConfig(), logger.Discard())
	require.True(t, store.Available())
	return mr, store
}

func TestStore_ConversationRoundTrip(t *testing.T) {
	t.Parallel()

	_, store := setupRedisStore(t)
	ctx := context.Background()

	first := Turn{Role: RoleUser, Content: "hello"}
	second := Turn{Role: RoleAssistant, Content: "hi there"}
	store.StoreConversation(ctx, "u1", first)
	store.StoreConversation(ctx, "u1", second)

	turns := store.GetConversations(ctx, "u1")
	require.Len(t, turns, 2)
	assert.Equal(t, "hello", turns[0].Content)
	assert.Equal(t, second.Role, turns[1].Role)
	assert.Equal(t, second.Content, turns[1].Content)
	assert.False(t, turns[1].Timestamp.IsZero())

	assert.Empty(t, store.GetConversations(ctx, "someone-else"))
}

func TestStore_ConversationExpires(t *testing.T) {
	t.Parallel()

	mr, store := setupRedisStore(t)
	ctx := context.Background()

	store.StoreConversation(ctx, "u1", Turn{Role: RoleUser, Content: "hello"})
	assert.Equal(t, 24*time.Hour, mr.TTL(Key(KindConversation, "u1")))

	mr.FastForward(23 * time.Hour)
	require.Len(t, store.GetConversations(ctx, "u1"), 1)

	mr.FastForward(time.Hour + time.Second)
	assert.Empty(t, store.GetConversations(ctx, "u1"))
}

func TestStore_AppendRefreshesTTL(t *testing.T) {
	t.Parallel()

	mr, store := setupRedisStore(t)
	ctx := context.Background()

	store.StoreConversation(ctx, "u1", Turn{Role: RoleUser, Content: "one"})
	mr.FastForward(20 * time.Hour)
	store.StoreConversation(ctx, "u1", Turn{Role: RoleUser, Content: "two"})
	mr.FastForward(20 * time.Hour)

	turns := store.GetConversations(ctx, "u1")
	require.Len(t, turns, 2)
	assert.Equal(t, "two", turns[1].Content)
}

func TestStore_LongTermTTL(t *testing.T) {
	t.Parallel()

	mr, store := setupRedisStore(t)
	ctx := context.Background()

	store.StoreLongTerm(ctx, "u1", LongTermRecord{Type: "action", Action: "remember", Content: "likes tea"})
	assert.Equal(t, 30*24*time.Hour, mr.TTL(Key(KindLongTerm, "u1")))

	all := store.GetAll(ctx, "u1")
	assert.Empty(t, all.Conversations)
	require.Len(t, all.LongTerm, 1)
	assert.Equal(t, "likes tea", all.LongTerm[0].Content)

	mr.FastForward(30*24*time.Hour + time.Second)
	assert.Empty(t, store.GetLongTerm(ctx, "u1"))
}

func TestStore_UnavailableBackendDegrades(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	backend := NewRedisBackend(RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { _ = backend.Close() })
	mr.Close()

	store := NewStore(context.Background(), backend, Config{OperationTimeout: 200 * time.Millisecond}, logger.Discard())
	assert.False(t, store.Available())

	ctx := context.Background()
	store.StoreConversation(ctx, "u1", Turn{Role: RoleUser, Content: "hello"})
	assert.Empty(t, store.GetConversations(ctx, "u1"))
	assert.Empty(t, store.GetAll(ctx, "u1").LongTerm)
}

func TestStore_BackendErrorsAreSwallowed(t *testing.T) {
	t.Parallel()

	mr, store := setupRedisStore(t)
	ctx := context.Background()

	store.StoreConversation(ctx, "u1", Turn{Role: RoleUser, Content: "hello"})
	mr.SetError("ERR simulated failure")

	assert.NotPanics(t, func() {
		store.StoreConversation(ctx, "u1", Turn{Role: RoleUser, Content: "lost"})
	})
	assert.Empty(t, store.GetConversations(ctx, "u1"))

	mr.SetError("")
	turns := store.GetConversations(ctx, "u1")
	require.Len(t, turns, 1)
	assert.Equal(t, "hello", turns[0].Content)
}

func TestStore_CorruptValueReadsEmpty(t *testing.T) {
	t.Parallel()

	mr, store := setupRedisStore(t)
	require.NoError(t, mr.Set(Key(KindConversation, "u1"), "{not json"))

	assert.Empty(t, store.GetConversations(context.Background(), "u1"))
}

func TestStore_NilBackend(t *testing.T) {
	t.Parallel()

	store := NewStore(context.Background(), nil, DefaultConfig(), logger.Discard())
	assert.False(t, store.Available())
	store.StoreLongTerm(context.Background(), "u1", LongTermRecord{Type: "action"})
	assert.Empty(t, store.GetLongTerm(context.Background(), "u1"))
}

// gatedBackend holds every Get until `readers` callers are waiting, forcing
// concurrent appenders to observe the same snapshot.
type gatedBackend struct {
	mu      sync.Mutex
	data    map[string]string
	readers int
	arrived int
	release chan struct{}
}

func newGatedBackend(readers int) *gatedBackend {
	return &gatedBackend{data: map[string]string{}, readers: readers, release: make(chan struct{})}
}

func (g *gatedBackend) Ping(context.Context) error { return nil }

func (g *gatedBackend) Get(ctx context.Context, key string) (string, bool, error) {
	g.mu.Lock()
	val, ok := g.data[key]
	g.arrived++
	if g.arrived == g.readers {
		close(g.release)
	}
	g.mu.Unlock()

	select {
	case <-g.release:
	case <-ctx.Done():
		return "", false, errors.New("gate timeout")
	}
	return val, ok, nil
}

func (g *gatedBackend) Put(_ context.Context, key, value string, _ time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.data[key] = value
	return nil
}

func TestStore_ConcurrentAppendsLoseUpdates(t *testing.T) {
	t.Parallel()

	backend := newGatedBackend(2)
	store := NewStore(context.Background(), backend, DefaultConfig(), logger.Discard())
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, content := range []string{"a", "b"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.StoreConversation(ctx, "u1", Turn{Role: RoleUser, Content: content})
		}()
	}
	wg.Wait()

	// Both writers read the empty list, so the slower write overwrites the faster one.
	turns := store.GetConversations(ctx, "u1")
	require.Len(t, turns, 1)
	assert.Contains(t, []string{"a", "b"}, turns[0].Content)
}
