package platform

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/edgard/socialbot/internal/message"
)

type stubClient struct{ p message.Platform }

func (s stubClient) Platform() message.Platform { return s.p }
func (s stubClient) Transform(_ context.Context, m *message.Message) (*message.Message, error) {
	return m, nil
}
func (s stubClient) Publish(context.Context, string, string, []string) (Ack, error) {
	return Ack{Platform: s.p}, nil
}
func (s stubClient) MaxLength() int { return 10 }

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry(stubClient{message.PlatformTelegram}, stubClient{message.PlatformFarcaster})

	c, err := r.Get(message.PlatformFarcaster)
	require.NoError(t, err)
	assert.Equal(t, message.PlatformFarcaster, c.Platform())

	_, err = r.Get(message.PlatformTwitter)
	assert.True(t, errors.Is(err, ErrNoClient))

	assert.Equal(t, []message.Platform{message.PlatformFarcaster, message.PlatformTelegram}, r.Platforms())
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{"fits", "short.", 10, "short."},
		{"sentence boundary", "One two. Three four five.", 15, "One two."},
		{"question mark", "Really? Yes indeed it is", 12, "Really?"},
		{"ignores decimal point", "Pi is 3.14159 roughly", 12, "Pi is"},
		{"word boundary", "alpha beta gamma delta", 13, "alpha beta"},
		{"hard cut", "abcdefghijklmnop", 5, "abcde"},
		{"multibyte", "héllo wörld. ñandú", 14, "héllo wörld."},
		{"no limit", "anything", 0, "anything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Truncate(tt.text, tt.limit))
		})
	}
}

func TestTruncateNeverExceedsLimit(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		limit := rapid.IntRange(1, 400).Draw(t, "limit")

		got := Truncate(text, limit)
		if n := utf8.RuneCountInString(got); n > limit {
			t.Fatalf("Truncate returned %d runes, limit %d", n, limit)
		}
	})
}
