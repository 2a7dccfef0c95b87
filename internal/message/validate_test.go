package message

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func validMessage(text string) *Message {
	return &Message{
		Platform: PlatformFarcaster,
		Text:     text,
		Author:   Author{ID: "1", Username: "a"},
	}
}

func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		msg   *Message
		field string
	}{
		{name: "nil message", msg: nil, field: "message"},
		{name: "missing platform", msg: &Message{Text: "hi", Author: Author{Username: "a"}}, field: "Message.Platform"},
		{name: "missing text", msg: &Message{Platform: PlatformTelegram, Author: Author{Username: "a"}}, field: "Message.Text"},
		{name: "missing username", msg: &Message{Platform: PlatformTelegram, Text: "hi"}, field: "Message.Author.Username"},
		{name: "only denylisted text", msg: validMessage("<<>>  \x00"), field: "Message.Text"},
		{name: "only whitespace", msg: validMessage(" \t\n "), field: "Message.Text"},
		{name: "invalid utf8", msg: validMessage("ab\xffcd"), field: "Message.Text"},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := v.Validate(tt.msg)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestValidate_Sanitizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "trims", input: "  hello  ", expected: "hello"},
		{name: "strips angle brackets", input: "<b>hi</b>", expected: "bhi/b"},
		{name: "strips control characters", input: "a\x07b\rc", expected: "abc"},
		{name: "keeps newlines and tabs", input: "line1\n\tline2", expected: "line1\n\tline2"},
		{name: "keeps unicode", input: "olá 👋", expected: "olá 👋"},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg := validMessage(tt.input)
			require.NoError(t, v.Validate(msg))
			assert.Equal(t, tt.expected, msg.Text)
		})
	}
}

func TestValidate_Truncates(t *testing.T) {
	t.Parallel()

	msg := validMessage(strings.Repeat("é", MaxTextLength+500))
	require.NoError(t, NewValidator().Validate(msg))
	assert.Equal(t, MaxTextLength, utf8.RuneCountInString(msg.Text))
}

func TestValidate_ValidMessagesNeverFail(t *testing.T) {
	v := NewValidator()

	rapid.Check(t, func(t *rapid.T) {
		platform := rapid.SampledFrom([]Platform{PlatformTelegram, PlatformFarcaster, PlatformTwitter}).Draw(t, "platform")
		prefix := rapid.String().Draw(t, "prefix")
		core := rapid.StringMatching(`[a-zA-Z0-9]{1,10}`).Draw(t, "core")
		suffix := rapid.StringN(0, 3000, -1).Draw(t, "suffix")
		username := rapid.StringMatching(`[a-z]{1,15}`).Draw(t, "username")

		text := core + suffix
		if utf8.ValidString(prefix) {
			text = prefix + text
		}
		if !utf8.ValidString(text) {
			text = core
		}

		msg := &Message{Platform: platform, Text: text, Author: Author{ID: "7", Username: username}}
		if err := v.Validate(msg); err != nil {
			t.Fatalf("valid message rejected: %v", err)
		}
		if n := utf8.RuneCountInString(msg.Text); n > MaxTextLength {
			t.Fatalf("text has %d runes, want <= %d", n, MaxTextLength)
		}
	})
}

func TestValidate_InvalidMessagesAlwaysFail(t *testing.T) {
	v := NewValidator()

	rapid.Check(t, func(t *rapid.T) {
		msg := validMessage(rapid.StringMatching(`[a-z]{1,20}`).Draw(t, "text"))
		switch rapid.IntRange(0, 2).Draw(t, "missing") {
		case 0:
			msg.Platform = ""
		case 1:
			msg.Text = ""
		case 2:
			msg.Author.Username = ""
		}
		if err := v.Validate(msg); !IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestAuthorID_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected AuthorID
		wantErr  bool
	}{
		{input: `{"id":1,"username":"a"}`, expected: "1"},
		{input: `{"id":"42","username":"a"}`, expected: "42"},
		{input: `{"id":null,"username":"a"}`, expected: ""},
		{input: `{"id":12345678901234,"username":"a"}`, expected: "12345678901234"},
		{input: `{"id":{},"username":"a"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			var a Author
			err := json.Unmarshal([]byte(tt.input), &a)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, a.ID)
		})
	}
}

func TestMessage_UserID(t *testing.T) {
	t.Parallel()

	withID := Message{Platform: PlatformFarcaster, Author: Author{ID: "1", Username: "alice"}}
	assert.Equal(t, "farcaster:1", withID.UserID())

	alice := Message{Platform: PlatformFarcaster, Author: Author{Username: "alice"}}
	bob := Message{Platform: PlatformFarcaster, Author: Author{Username: "bob"}}
	assert.Equal(t, "farcaster:@alice", alice.UserID())
	assert.NotEqual(t, alice.UserID(), bob.UserID())

	numeric := Message{Platform: PlatformFarcaster, Author: Author{Username: "1"}}
	assert.NotEqual(t, withID.UserID(), numeric.UserID())
}
