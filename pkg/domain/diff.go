package domain

// StateDiff represents the changes between two snapshots of a thread.
// It is designed to be serialized to JSON for revision-history display.
type StateDiff struct {
	ThreadID string `json:"thread_id"`
	From     int    `json:"from"`
	To       int    `json:"to"`

	// Step is the step that produced the newer snapshot.
	Step StepID `json:"step,omitempty"`

	// Changed holds the fields whose value differs. Content is reported
	// as the snippets appended since the older snapshot.
	Changed Update `json:"changed"`
}

// Diff calculates the difference between two checkpoints of the same thread.
// If oldCp is nil, it returns a diff representing the entire newer state.
func Diff(oldCp *Checkpoint, newCp *Checkpoint) *StateDiff {
	if newCp == nil {
		return nil
	}

	diff := &StateDiff{
		ThreadID: newCp.ThreadID,
		To:       newCp.StepIndex,
		Step:     newCp.Step,
	}

	var old State
	if oldCp != nil {
		old = oldCp.State
		diff.From = oldCp.StepIndex
	}
	cur := newCp.State

	diff.Changed = diffState(old, cur, oldCp == nil)

	if diff.Changed.IsEmpty() {
		return nil
	}
	return diff
}

func diffState(old, cur State, initial bool) Update {
	var u Update

	if initial || old.Task != cur.Task {
		u.Task = Ptr(cur.Task)
	}
	if old.Plan != cur.Plan {
		u.Plan = Ptr(cur.Plan)
	}
	if old.Draft != cur.Draft {
		u.Draft = Ptr(cur.Draft)
	}
	if old.Critique != cur.Critique {
		u.Critique = Ptr(cur.Critique)
	}
	// Content is append-only, so the delta is the new tail.
	if len(cur.Content) > len(old.Content) {
		u.Content = append([]string(nil), cur.Content[len(old.Content):]...)
	}
	if initial || old.RevisionNumber != cur.RevisionNumber {
		u.RevisionNumber = Ptr(cur.RevisionNumber)
	}
	if initial || old.MaxRevisions != cur.MaxRevisions {
		u.MaxRevisions = Ptr(cur.MaxRevisions)
	}

	return u
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d == nil || d.Changed.IsEmpty()
}
