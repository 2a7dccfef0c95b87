// Package cache holds generated responses for a short time so that repeated
// deliveries of the same message are answered without another generation.
package cache

import (
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Entry is a previously computed reply.
type Entry struct {
	Text              string `json:"text"`
	ShouldSendMessage bool   `json:"shouldSendMessage"`
}

// Cache is a process-local response cache keyed by author and time bucket.
type Cache struct {
	bucket time.Duration

	mu      sync.Mutex
	entries map[string]stored
}

type stored struct {
	entry  Entry
	bucket time.Time
}

// New returns a cache whose keys fall into buckets of the given width.
func New(bucket time.Duration) *Cache {
	if bucket <= 0 {
		bucket = time.Minute
	}
	return &Cache{
		bucket:  bucket,
		entries: make(map[string]stored),
	}
}

// Key derives the cache key for a message from its platform, author, text
// and receive time. Two deliveries collide only when all four agree, with
// the time compared at bucket granularity.
func (c *Cache) Key(platform, authorID, text string, at time.Time) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))

	var b strings.Builder
	b.WriteString(platform)
	b.WriteByte(':')
	b.WriteString(authorID)
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(c.bucketOf(at).Unix(), 10))
	b.WriteByte(':')
	b.WriteString(strconv.FormatUint(h.Sum64(), 16))
	return b.String()
}

func (c *Cache) bucketOf(t time.Time) time.Time {
	return t.UTC().Truncate(c.bucket)
}

// Get returns the entry for key, if any.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.entries[key]
	return s.entry, ok
}

// Set stores entry under key. at is the time the key was derived from.
func (c *Cache) Set(key string, at time.Time, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = stored{entry: entry, bucket: c.bucketOf(at)}
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep removes entries whose bucket started before cutoff and returns the
// number removed.
func (c *Cache) Sweep(cutoff time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, s := range c.entries {
		if s.bucket.Before(cutoff) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}
