package domain

import "fmt"

// StepID identifies a workflow step. The set of valid identifiers is closed.
type StepID string

const (
	StepPlanner          StepID = "planner"
	StepResearchPlan     StepID = "research_plan"
	StepGenerate         StepID = "generate"
	StepReflect          StepID = "reflect"
	StepResearchCritique StepID = "research_critique"

	// End is the terminal sentinel. It is never registered as a step.
	End StepID = "__end__"
)

var knownSteps = []StepID{
	StepPlanner,
	StepResearchPlan,
	StepGenerate,
	StepReflect,
	StepResearchCritique,
}

// Steps returns every valid step identifier in declaration order.
func Steps() []StepID {
	out := make([]StepID, len(knownSteps))
	copy(out, knownSteps)
	return out
}

// Valid reports whether id names a known step. End is not a step.
func (id StepID) Valid() bool {
	for _, s := range knownSteps {
		if s == id {
			return true
		}
	}
	return false
}

func (id StepID) String() string {
	return string(id)
}

// ParseStepID converts a name into a StepID.
func ParseStepID(name string) (StepID, error) {
	id := StepID(name)
	if id == End || id.Valid() {
		return id, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStep, name)
}
