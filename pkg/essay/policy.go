package essay

import "github.com/aretw0/quill/pkg/domain"

// ShouldContinue is the revision policy, evaluated after each draft.
//
// The drafting step has already advanced RevisionNumber, so the draft just
// written is revision RevisionNumber-1. The first draft counts: with
// MaxRevisions = N the run produces N+1 drafts and N critiques, and any
// MaxRevisions below 1 stops right after the first draft.
func ShouldContinue(state domain.State) domain.Route {
	if state.RevisionNumber-1 > state.MaxRevisions {
		return domain.Terminate()
	}
	return domain.Continue(domain.StepReflect)
}
