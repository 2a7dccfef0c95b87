// Package processor queues inbound messages and drains them one at a time
// through action dispatch, context assembly, generation, persistence and reply.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edgard/socialbot/internal/bot/actions"
	"github.com/edgard/socialbot/internal/cache"
	"github.com/edgard/socialbot/internal/llm"
	"github.com/edgard/socialbot/internal/memory"
	"github.com/edgard/socialbot/internal/message"
	"github.com/edgard/socialbot/internal/observability"
	"github.com/edgard/socialbot/internal/platform"
	"github.com/edgard/socialbot/internal/ratelimit"
	"github.com/edgard/socialbot/internal/retry"
)

// Result statuses.
const (
	StatusQueued  = "queued"
	StatusReplied = "replied"
	StatusCached  = "cached"
	StatusSilent  = "silent"
)

// Result is the outcome of a processed message.
type Result struct {
	Status            string        `json:"status"`
	Text              string        `json:"text,omitempty"`
	ShouldSendMessage bool          `json:"shouldSendMessage"`
	Action            string        `json:"action,omitempty"`
	Ack               *platform.Ack `json:"ack,omitempty"`
}

// TransformError means the message could not be handed to a platform client.
type TransformError struct {
	Platform message.Platform
	Err      error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s message: %v", e.Platform, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// Memory is the part of the memory store the processor uses.
type Memory interface {
	StoreConversation(ctx context.Context, userID string, turn memory.Turn)
	StoreLongTerm(ctx context.Context, userID string, record memory.LongTermRecord)
	GetAll(ctx context.Context, userID string) memory.Snapshot
}

// Deps provides the processor's collaborators.
type Deps struct {
	Logger    *slog.Logger
	Validator *message.Validator
	Platforms *platform.Registry
	Actions   *actions.Dispatcher
	Memory    Memory
	Cache     *cache.Cache
	Executor  *retry.Executor
	Completer llm.Completer
	// Metrics is optional.
	Metrics *observability.Metrics
	// SystemPrompt seeds every generation.
	SystemPrompt string
	// EmptyFallback replaces a blank generation.
	EmptyFallback string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Processor is a single-consumer FIFO queue. At most one drain loop runs at a time.
type Processor struct {
	deps Deps
	log  *slog.Logger
	now  func() time.Time

	mu       sync.Mutex
	queue    []*message.Message
	draining bool
}

// New creates a Processor.
func New(deps Deps) (*Processor, error) {
	switch {
	case deps.Validator == nil:
		return nil, errors.New("processor requires a validator")
	case deps.Platforms == nil:
		return nil, errors.New("processor requires a platform registry")
	case deps.Actions == nil:
		return nil, errors.New("processor requires an action dispatcher")
	case deps.Memory == nil:
		return nil, errors.New("processor requires a memory store")
	case deps.Cache == nil:
		return nil, errors.New("processor requires a response cache")
	case deps.Executor == nil:
		return nil, errors.New("processor requires a retry executor")
	case deps.Completer == nil:
		return nil, errors.New("processor requires a completer")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Processor{
		deps: deps,
		log:  deps.Logger.With("component", "processor"),
		now:  now,
	}, nil
}

// ProcessMessage validates msg and enqueues it. If a drain is already running
// it returns a queued result at once. Otherwise it drains the queue and
// returns the result of the last message drained, which need not be msg.
//
// The drain is detached from ctx cancellation: once started, it runs until
// the queue is empty or a message fails.
func (p *Processor) ProcessMessage(ctx context.Context, msg *message.Message) (*Result, error) {
	if err := p.deps.Validator.Validate(msg); err != nil {
		p.log.WarnContext(ctx, "Rejected invalid message", "error", err)
		return nil, err
	}

	p.mu.Lock()
	p.queue = append(p.queue, msg)
	p.setDepth(len(p.queue))
	if p.draining {
		p.mu.Unlock()
		p.log.DebugContext(ctx, "Drain in progress, message queued", "platform", msg.Platform)
		return &Result{Status: StatusQueued}, nil
	}
	p.draining = true
	p.mu.Unlock()

	return p.drain(context.WithoutCancel(ctx))
}

// QueueLen reports how many messages are waiting.
func (p *Processor) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Draining reports whether a drain loop is running.
func (p *Processor) Draining() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draining
}

func (p *Processor) drain(ctx context.Context) (*Result, error) {
	log := p.log.With("drain_id", uuid.NewString())
	snapshots := newSnapshotCache(p.deps.Memory)

	var last *Result
	drained := 0
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.draining = false
			p.mu.Unlock()
			log.DebugContext(ctx, "Drain finished", "drained", drained)
			return last, nil
		}
		msg := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.setDepth(len(p.queue))
		p.mu.Unlock()

		res, err := p.processOne(ctx, log, snapshots, msg)
		drained++
		if err != nil {
			p.countOutcome(msg.Platform, "error")
			log.ErrorContext(ctx, "Failed to process message", "error", err, "platform", msg.Platform, "user_id", msg.UserID())

			// Whatever is still queued waits for the next ProcessMessage call.
			p.mu.Lock()
			p.draining = false
			p.mu.Unlock()
			return nil, err
		}
		p.countOutcome(msg.Platform, res.Status)
		last = res
	}
}

func (p *Processor) processOne(ctx context.Context, log *slog.Logger, snapshots *snapshotCache, raw *message.Message) (*Result, error) {
	client, err := p.deps.Platforms.Get(raw.Platform)
	if err != nil {
		return nil, &TransformError{Platform: raw.Platform, Err: err}
	}
	msg, err := client.Transform(ctx, raw)
	if err != nil {
		return nil, &TransformError{Platform: raw.Platform, Err: err}
	}

	userID := msg.UserID()
	log = log.With("platform", msg.Platform, "user_id", userID)

	receivedAt := p.now()
	cacheKey := p.deps.Cache.Key(string(msg.Platform), msg.Author.Key(), msg.Text, receivedAt)
	if entry, ok := p.deps.Cache.Get(cacheKey); ok {
		log.InfoContext(ctx, "Serving cached response")
		if p.deps.Metrics != nil {
			p.deps.Metrics.CacheHits.Inc()
		}
		return &Result{Status: StatusCached, Text: entry.Text, ShouldSendMessage: entry.ShouldSendMessage}, nil
	}

	in := actions.Input{Platform: msg.Platform, UserID: userID, Text: msg.Text, Author: msg.Author}
	if match, ok := p.deps.Actions.Dispatch(ctx, in); ok {
		res, err := p.handleAction(ctx, log, snapshots, client, msg, match)
		if err != nil {
			return nil, err
		}
		p.deps.Cache.Set(cacheKey, receivedAt, cache.Entry{Text: res.Text, ShouldSendMessage: res.ShouldSendMessage})
		return res, nil
	}

	snap := snapshots.get(ctx, userID)
	reply, err := p.generate(ctx, buildContext(p.deps.SystemPrompt, snap, msg.Text))
	if err != nil {
		return nil, err
	}

	p.deps.Memory.StoreConversation(ctx, userID, memory.Turn{Role: memory.RoleUser, Content: msg.Text, Timestamp: receivedAt.UTC()})
	p.deps.Memory.StoreConversation(ctx, userID, memory.Turn{Role: memory.RoleAssistant, Content: reply, Timestamp: p.now().UTC()})
	snapshots.invalidate(userID)

	res, err := p.reply(ctx, client, msg, reply, nil, true)
	if err != nil {
		return nil, err
	}
	p.deps.Cache.Set(cacheKey, receivedAt, cache.Entry{Text: res.Text, ShouldSendMessage: res.ShouldSendMessage})
	log.InfoContext(ctx, "Replied to message", "status", res.Status)
	return res, nil
}

func (p *Processor) handleAction(
	ctx context.Context,
	log *slog.Logger,
	snapshots *snapshotCache,
	client platform.Client,
	msg *message.Message,
	match *actions.Match,
) (*Result, error) {
	userID := msg.UserID()
	if p.deps.Metrics != nil {
		p.deps.Metrics.ActionsMatched.WithLabelValues(match.Action).Inc()
	}
	p.deps.Memory.StoreLongTerm(ctx, userID, memory.LongTermRecord{
		Type:      "action",
		Action:    match.Action,
		Content:   msg.Text,
		Timestamp: p.now().UTC(),
	})
	snapshots.invalidate(userID)

	ar := match.Result
	text := ar.Text
	if ar.Context != "" {
		generated, err := p.generate(ctx, []llm.Message{
			{Role: llm.RoleSystem, Content: p.deps.SystemPrompt},
			{Role: llm.RoleSystem, Content: ar.Context},
			{Role: llm.RoleUser, Content: msg.Text},
		})
		if err != nil {
			return nil, err
		}
		text = generated
	}

	res, err := p.reply(ctx, client, msg, text, ar.Embeds, ar.SendMessage())
	if err != nil {
		return nil, err
	}
	res.Action = match.Action
	log.InfoContext(ctx, "Handled action", "action", match.Action, "status", res.Status)
	return res, nil
}

// generate runs the completion through the retry executor under the shared
// language-model rate limit.
func (p *Processor) generate(ctx context.Context, messages []llm.Message) (string, error) {
	text, err := retry.DoValue(ctx, p.deps.Executor, ratelimit.ResourceLLM, func(ctx context.Context) (string, error) {
		return p.deps.Completer.Complete(ctx, messages)
	})
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	if text == "" {
		text = p.deps.EmptyFallback
	}
	return text, nil
}

func (p *Processor) reply(ctx context.Context, client platform.Client, msg *message.Message, text string, embeds []string, send bool) (*Result, error) {
	text = platform.Truncate(text, client.MaxLength())
	if !send {
		return &Result{Status: StatusSilent, Text: text}, nil
	}

	start := time.Now()
	ack, err := retry.DoValue(ctx, p.deps.Executor, "publish:"+string(client.Platform()), func(ctx context.Context) (platform.Ack, error) {
		return client.Publish(ctx, text, msg.ReplyTo, embeds)
	})
	if p.deps.Metrics != nil {
		p.deps.Metrics.ObservePublishLatency(string(client.Platform()), time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("publish reply: %w", err)
	}
	return &Result{Status: StatusReplied, Text: text, ShouldSendMessage: true, Ack: &ack}, nil
}

func (p *Processor) setDepth(n int) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.QueueDepth.Set(float64(n))
	}
}

func (p *Processor) countOutcome(pl message.Platform, outcome string) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.MessagesProcessed.WithLabelValues(string(pl), outcome).Inc()
	}
}
