package actions

import (
	"context"
	"fmt"
	"strings"
)

type recallAction struct {
	deps Deps
}

// NewRecallAction returns the action that answers from the user's remembered facts.
func NewRecallAction(deps Deps) Action {
	return recallAction{deps}
}

func (recallAction) Name() string { return "recall" }

func (recallAction) Matches(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.TrimRight(t, "?!. ")
	return t == "recall" || t == "/recall" || t == "what do you know about me"
}

func (r recallAction) Run(ctx context.Context, in Input) (*Result, error) {
	var facts []string
	for _, rec := range r.deps.Memory.GetLongTerm(ctx, in.UserID) {
		if rec.Type == RecordTypeFact && rec.Content != "" {
			facts = append(facts, rec.Content)
		}
	}

	var b strings.Builder
	if len(facts) == 0 {
		fmt.Fprintf(&b, "You have not been told anything about @%s yet. Say so briefly and invite them to share something.", in.Author.Username)
	} else {
		fmt.Fprintf(&b, "These are the things @%s asked you to remember. Summarize them back to them in your own voice:\n", in.Author.Username)
		for _, f := range facts {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	return &Result{Context: strings.TrimRight(b.String(), "\n")}, nil
}
