package domain

import (
	"reflect"
	"time"
)

// Checkpoint is a durable snapshot of a thread after a given number of steps.
//
// Index 0 holds the caller-supplied initial state. Index N holds the state
// after the N-th step of the thread has been merged.
type Checkpoint struct {
	ThreadID  string `json:"thread_id"`
	StepIndex int    `json:"step_index"`

	// Step is the step that produced this snapshot. Empty for index 0.
	Step StepID `json:"step,omitempty"`

	// Next is the step about to execute, or End when the run has finished.
	Next StepID `json:"next"`

	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy of the checkpoint.
func (c Checkpoint) Clone() Checkpoint {
	out := c
	out.State = c.State.Clone()
	return out
}

// Finished reports whether the thread had reached the terminal sentinel.
func (c Checkpoint) Finished() bool {
	return c.Next == End
}

// Equivalent reports whether two checkpoints carry the same payload.
// CreatedAt is ignored so that a retried save of the same step is idempotent.
func (c Checkpoint) Equivalent(other Checkpoint) bool {
	return c.ThreadID == other.ThreadID &&
		c.StepIndex == other.StepIndex &&
		c.Step == other.Step &&
		c.Next == other.Next &&
		reflect.DeepEqual(c.State.Clone(), other.State.Clone())
}
