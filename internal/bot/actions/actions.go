// Package actions contains the commands that can answer a message directly or
// add context to its generation, along with their ordered registration.
package actions

import (
	"context"
	"fmt"

	"github.com/edgard/socialbot/internal/message"
)

// Input is what an action sees of a message.
type Input struct {
	Platform message.Platform
	UserID   string
	Text     string
	Author   message.Author
}

// Result is an action's outcome. A non-empty Context asks the caller to
// generate a reply from it instead of sending Text.
type Result struct {
	Text              string
	ShouldSendMessage *bool
	Context           string
	Embeds            []string
}

// SendMessage reports whether the result should be published. It defaults to true.
func (r *Result) SendMessage() bool {
	return r.ShouldSendMessage == nil || *r.ShouldSendMessage
}

// Action is a command matched against inbound text.
type Action interface {
	Name() string
	Matches(text string) bool
	Run(ctx context.Context, in Input) (*Result, error)
}

// Match is the outcome of a dispatch that found an action.
type Match struct {
	Action string
	Result *Result
	// Err is the action failure, already replaced by an apology in Result.
	Err error
}

// Dispatcher runs the first registered action that matches.
type Dispatcher struct {
	deps    Deps
	actions []Action
}

// NewDispatcher returns a dispatcher over actions, evaluated in order.
func NewDispatcher(deps Deps, actions ...Action) *Dispatcher {
	return &Dispatcher{deps: deps, actions: actions}
}

// Names lists the registered actions in dispatch order.
func (d *Dispatcher) Names() []string {
	names := make([]string, len(d.actions))
	for i, a := range d.actions {
		names[i] = a.Name()
	}
	return names
}

// Dispatch runs the first action matching in.Text. It reports false when
// no action matches. Later actions are never evaluated once one matches.
func (d *Dispatcher) Dispatch(ctx context.Context, in Input) (*Match, bool) {
	for _, a := range d.actions {
		if !a.Matches(in.Text) {
			continue
		}

		log := d.deps.Logger.With("action", a.Name())
		log.InfoContext(ctx, "Running action", "user_id", in.UserID)

		res, err := a.Run(ctx, in)
		if err == nil && res == nil {
			err = fmt.Errorf("action %s returned no result", a.Name())
		}
		if err != nil {
			log.ErrorContext(ctx, "Action failed", "error", err, "user_id", in.UserID)
			return &Match{
				Action: a.Name(),
				Result: &Result{Text: d.deps.Config.Messages.Apology},
				Err:    err,
			}, true
		}
		return &Match{Action: a.Name(), Result: res}, true
	}
	return nil, false
}
