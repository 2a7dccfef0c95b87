package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	t.Parallel()

	c := New(time.Minute)
	base := time.Date(2025, 3, 1, 10, 15, 5, 0, time.UTC)

	tests := []struct {
		name  string
		other func() string
		same  bool
	}{
		{"same minute same text", func() string { return c.Key("farcaster", "1", "hello", base.Add(30*time.Second)) }, true},
		{"next minute", func() string { return c.Key("farcaster", "1", "hello", base.Add(time.Minute)) }, false},
		{"different text", func() string { return c.Key("farcaster", "1", "hello!", base) }, false},
		{"different author", func() string { return c.Key("farcaster", "2", "hello", base) }, false},
		{"different platform", func() string { return c.Key("telegram", "1", "hello", base) }, false},
		{"other timezone same instant", func() string {
			return c.Key("farcaster", "1", "hello", base.In(time.FixedZone("X", 3*3600)))
		}, true},
	}

	ref := c.Key("farcaster", "1", "hello", base)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.same {
				assert.Equal(t, ref, tt.other())
			} else {
				assert.NotEqual(t, ref, tt.other())
			}
		})
	}
}

func TestGetSet(t *testing.T) {
	t.Parallel()

	c := New(time.Minute)
	now := time.Now()
	key := c.Key("telegram", "42", "hi", now)

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Set(key, now, Entry{Text: "hello there", ShouldSendMessage: true})
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "hello there", got.Text)
	assert.True(t, got.ShouldSendMessage)
	assert.Equal(t, 1, c.Len())
}

func TestSweep(t *testing.T) {
	t.Parallel()

	c := New(time.Minute)
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		at := start.Add(time.Duration(i) * time.Minute)
		c.Set(c.Key("farcaster", "1", "m", at), at, Entry{Text: "r"})
	}
	require.Equal(t, 5, c.Len())

	removed := c.Sweep(start.Add(3 * time.Minute))
	assert.Equal(t, 3, removed)
	assert.Equal(t, 2, c.Len())
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := New(time.Minute)
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := c.Key("farcaster", "1", "same", now)
			c.Set(key, now, Entry{Text: "r"})
			_, _ = c.Get(key)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, c.Len())
}
