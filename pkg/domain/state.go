package domain

import "slices"

// State represents the current snapshot of an essay run.
//
// A State is a value. Merge never aliases the Content slice of its inputs,
// so a State handed to a step can not be used to mutate the engine's copy.
type State struct {
	Task     string `json:"task"`
	Plan     string `json:"plan"`
	Draft    string `json:"draft"`
	Critique string `json:"critique"`

	// Content accumulates research snippets. It only ever grows.
	Content []string `json:"content"`

	// RevisionNumber starts at 1 and is incremented by the drafting step each time it runs.
	RevisionNumber int `json:"revision_number"`
	MaxRevisions   int `json:"max_revisions"`
}

// NewState creates the initial state of a run.
func NewState(task string, maxRevisions int) State {
	return State{
		Task:           task,
		Content:        []string{},
		RevisionNumber: 1,
		MaxRevisions:   maxRevisions,
	}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := s
	out.Content = slices.Clone(s.Content)
	if out.Content == nil {
		out.Content = []string{}
	}
	return out
}

// Update is the partial output of a step. Nil fields are absent.
type Update struct {
	Task     *string `json:"task,omitempty"`
	Plan     *string `json:"plan,omitempty"`
	Draft    *string `json:"draft,omitempty"`
	Critique *string `json:"critique,omitempty"`

	// Content is appended to the accumulated snippets, never replacing them.
	Content []string `json:"content,omitempty"`

	RevisionNumber *int `json:"revision_number,omitempty"`
	MaxRevisions   *int `json:"max_revisions,omitempty"`
}

// Ptr returns a pointer to v. It keeps Update literals short.
func Ptr[T any](v T) *T {
	return &v
}

// Fields reports which fields the update touches.
func (u Update) Fields() FieldSet {
	var fs FieldSet
	if u.Task != nil {
		fs |= FieldSet(FieldTask)
	}
	if u.Plan != nil {
		fs |= FieldSet(FieldPlan)
	}
	if u.Draft != nil {
		fs |= FieldSet(FieldDraft)
	}
	if u.Critique != nil {
		fs |= FieldSet(FieldCritique)
	}
	if len(u.Content) > 0 {
		fs |= FieldSet(FieldContent)
	}
	if u.RevisionNumber != nil {
		fs |= FieldSet(FieldRevisionNumber)
	}
	if u.MaxRevisions != nil {
		fs |= FieldSet(FieldMaxRevisions)
	}
	return fs
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return u.Fields() == 0
}

// Merge applies delta on top of base and returns the result.
//
// Every present field overwrites the base value, except Content which is
// appended. Merge is total and pure: neither argument is modified and the
// result shares no backing array with them.
func Merge(base State, delta Update) State {
	out := base.Clone()

	if delta.Task != nil {
		out.Task = *delta.Task
	}
	if delta.Plan != nil {
		out.Plan = *delta.Plan
	}
	if delta.Draft != nil {
		out.Draft = *delta.Draft
	}
	if delta.Critique != nil {
		out.Critique = *delta.Critique
	}
	if len(delta.Content) > 0 {
		out.Content = append(out.Content, delta.Content...)
	}
	if delta.RevisionNumber != nil {
		out.RevisionNumber = *delta.RevisionNumber
	}
	if delta.MaxRevisions != nil {
		out.MaxRevisions = *delta.MaxRevisions
	}

	return out
}
