package actions

import (
	"context"
	"strings"
)

type helpAction struct {
	deps Deps
}

// NewHelpAction returns the action answering "help" and "/help".
func NewHelpAction(deps Deps) Action {
	return helpAction{deps}
}

func (helpAction) Name() string { return "help" }

func (helpAction) Matches(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "help", "/help":
		return true
	}
	return false
}

func (h helpAction) Run(context.Context, Input) (*Result, error) {
	return &Result{Text: h.deps.Config.Messages.Help}, nil
}
