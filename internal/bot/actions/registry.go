package actions

// RegisterAll builds the dispatcher with every built-in action. Order matters:
// the first matching action wins.
func RegisterAll(deps Deps) *Dispatcher {
	return NewDispatcher(deps,
		NewHelpAction(deps),
		NewRememberAction(deps),
		NewRecallAction(deps),
	)
}
