// Package farcaster implements the Farcaster platform client against the Neynar API.
package farcaster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/edgard/socialbot/internal/config"
	"github.com/edgard/socialbot/internal/message"
	"github.com/edgard/socialbot/internal/platform"
	"github.com/edgard/socialbot/internal/retry"
)

const maxErrorBody = 512

// Client publishes casts through Neynar. It satisfies platform.Client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	signerUUID string
	maxLength  int
	log        *slog.Logger
}

var _ platform.Client = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Neynar-backed client.
func NewClient(cfg config.FarcasterConfig, logger *slog.Logger, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("farcaster API key cannot be empty")
	}
	if cfg.SignerUUID == "" {
		return nil, fmt.Errorf("farcaster signer UUID cannot be empty")
	}

	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		signerUUID: cfg.SignerUUID,
		maxLength:  cfg.MaxLength,
		log:        logger.With("component", "farcaster_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Platform implements platform.Client.
func (c *Client) Platform() message.Platform { return message.PlatformFarcaster }

// MaxLength implements platform.Client.
func (c *Client) MaxLength() int { return c.maxLength }

// Transform reads the cast hash and author from a raw Neynar webhook event.
// The raw payload may be the whole event or only its data object. Messages
// without a raw payload pass through unchanged.
func (c *Client) Transform(ctx context.Context, msg *message.Message) (*message.Message, error) {
	out := *msg
	if len(msg.Raw) == 0 {
		return &out, nil
	}
	if !gjson.ValidBytes(msg.Raw) {
		return nil, fmt.Errorf("farcaster payload is not valid JSON")
	}

	cast := gjson.ParseBytes(msg.Raw)
	if data := cast.Get("data"); data.IsObject() {
		cast = data
	}

	hash := cast.Get("hash").String()
	if hash == "" {
		return nil, fmt.Errorf("farcaster payload has no cast hash")
	}
	out.ReplyTo = hash

	if fid := cast.Get("author.fid"); fid.Exists() {
		out.Author.ID = message.AuthorID(fid.String())
	}
	if username := cast.Get("author.username").String(); username != "" {
		out.Author.Username = username
	}

	c.log.DebugContext(ctx, "Transformed farcaster cast", "hash", hash, "fid", out.Author.ID)
	return &out, nil
}

type embed struct {
	URL string `json:"url"`
}

type castRequest struct {
	SignerUUID string  `json:"signer_uuid"`
	Text       string  `json:"text"`
	Parent     string  `json:"parent,omitempty"`
	Embeds     []embed `json:"embeds,omitempty"`
}

// Publish posts a cast, as a reply when parentID is a cast hash.
func (c *Client) Publish(ctx context.Context, text, parentID string, embeds []string) (platform.Ack, error) {
	body := castRequest{
		SignerUUID: c.signerUUID,
		Text:       text,
		Parent:     parentID,
	}
	for _, u := range embeds {
		body.Embeds = append(body.Embeds, embed{URL: u})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return platform.Ack{}, fmt.Errorf("failed to encode cast: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/farcaster/cast", bytes.NewReader(payload))
	if err != nil {
		return platform.Ack{}, fmt.Errorf("failed to create cast request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return platform.Ack{}, fmt.Errorf("cast request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return platform.Ack{}, fmt.Errorf("failed to read cast response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(respBody, "message").String()
		if msg == "" {
			msg = string(respBody)
			if len(msg) > maxErrorBody {
				msg = msg[:maxErrorBody]
			}
		}
		c.log.ErrorContext(ctx, "Neynar rejected cast", "status", resp.StatusCode, "message", msg)
		return platform.Ack{}, &retry.StatusError{Code: resp.StatusCode, Body: msg}
	}

	hash := gjson.GetBytes(respBody, "cast.hash").String()
	c.log.InfoContext(ctx, "Published cast", "hash", hash, "parent", parentID)
	return platform.Ack{Platform: message.PlatformFarcaster, ID: hash}, nil
}
