package actions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/edgard/socialbot/internal/memory"
)

// RecordTypeFact marks long-term records written by the remember action.
const RecordTypeFact = "fact"

const rememberPrefix = "remember "

type rememberAction struct {
	deps Deps
	now  func() time.Time
}

// NewRememberAction returns the action storing "remember <fact>" as a long-term record.
func NewRememberAction(deps Deps) Action {
	return rememberAction{deps: deps, now: time.Now}
}

func (rememberAction) Name() string { return "remember" }

func (rememberAction) Matches(text string) bool {
	return fact(text) != ""
}

func (r rememberAction) Run(ctx context.Context, in Input) (*Result, error) {
	f := fact(in.Text)
	if f == "" {
		return nil, errors.New("nothing to remember")
	}
	r.deps.Memory.StoreLongTerm(ctx, in.UserID, memory.LongTermRecord{
		Type:      RecordTypeFact,
		Content:   f,
		Timestamp: r.now().UTC(),
	})
	return &Result{Text: r.deps.Config.Messages.Remembered}, nil
}

// fact returns the text after a leading "remember", or "" if there is none.
func fact(text string) string {
	text = strings.TrimSpace(text)
	if len(text) < len(rememberPrefix) || !strings.EqualFold(text[:len(rememberPrefix)], rememberPrefix) {
		return ""
	}
	f := strings.TrimSpace(text[len(rememberPrefix):])
	f = strings.TrimPrefix(f, "that ")
	return strings.TrimSpace(f)
}
