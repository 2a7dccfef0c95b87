// Package message defines the normalized inbound message and its validation.
package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Platform identifies the social network a message came from.
type Platform string

const (
	PlatformTelegram  Platform = "telegram"
	PlatformFarcaster Platform = "farcaster"
	PlatformTwitter   Platform = "twitter"
)

// MaxTextLength is the maximum number of runes kept in Message.Text.
const MaxTextLength = 2000

// AuthorID accepts both JSON numbers and strings.
type AuthorID string

// UnmarshalJSON implements json.Unmarshaler.
func (a *AuthorID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AuthorID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("author id must be a string or number: %w", err)
	}
	*a = AuthorID(n.String())
	return nil
}

// Author is the sender of a message.
type Author struct {
	ID       AuthorID `json:"id"`
	Username string   `json:"username" validate:"required"`
}

// Message is the internal, platform-neutral shape of an inbound message.
type Message struct {
	Platform Platform        `json:"platform" validate:"required"`
	Text     string          `json:"text"     validate:"required"`
	Author   Author          `json:"author"`
	ReplyTo  string          `json:"reply_to,omitempty"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// NewAuthorID formats a numeric platform id.
func NewAuthorID(id int64) AuthorID {
	return AuthorID(strconv.FormatInt(id, 10))
}

// Key returns the platform id, or "@username" when the platform sent no id.
// The prefix keeps usernames from colliding with numeric ids.
func (a Author) Key() string {
	if a.ID != "" {
		return string(a.ID)
	}
	return "@" + a.Username
}

// UserID identifies the author across platforms. It is the memory store key suffix.
func (m *Message) UserID() string {
	return string(m.Platform) + ":" + m.Author.Key()
}
