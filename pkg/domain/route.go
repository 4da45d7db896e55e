package domain

// Route is the result of resolving an outgoing edge: either continue with a
// named step or terminate the run.
type Route struct {
	target StepID
}

// Continue routes to the given step.
func Continue(id StepID) Route {
	return Route{target: id}
}

// Terminate routes to the terminal sentinel.
func Terminate() Route {
	return Route{target: End}
}

// Target returns the next step and true, or ("", false) when the route terminates.
func (r Route) Target() (StepID, bool) {
	if r.IsTerminal() {
		return "", false
	}
	return r.target, true
}

// IsTerminal reports whether the route ends the run.
func (r Route) IsTerminal() bool {
	return r.target == End || r.target == ""
}

// Step returns the routed step, or End.
func (r Route) Step() StepID {
	if r.IsTerminal() {
		return End
	}
	return r.target
}

func (r Route) String() string {
	return string(r.Step())
}
