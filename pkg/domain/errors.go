package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoCheckpoint is matched by NoCheckpointError via errors.Is.
	ErrNoCheckpoint = errors.New("no checkpoint for thread")

	// ErrCheckpointConflict is returned when a checkpoint already exists at the
	// same (thread, step index) with a different payload.
	ErrCheckpointConflict = errors.New("checkpoint conflict")

	// ErrThreadExists is returned when starting a run on a thread that already has checkpoints.
	ErrThreadExists = errors.New("thread already exists")

	// ErrUnknownStep is returned for names outside the enumerated step set.
	ErrUnknownStep = errors.New("unknown step")

	// ErrUndeclaredWrite is returned when a step writes a field it did not declare.
	ErrUndeclaredWrite = errors.New("step wrote undeclared field")

	// ErrUndeclaredRoute is returned when a predicate resolves to a target absent from its routing table.
	ErrUndeclaredRoute = errors.New("route not declared in routing table")
)

// GraphIntegrityError reports a malformed graph definition.
type GraphIntegrityError struct {
	Problems []string
}

func (e *GraphIntegrityError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid graph: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid graph, found %d problems:\n- %s", len(e.Problems), strings.Join(e.Problems, "\n- "))
}

// DuplicateStepError is returned when a step name is registered twice.
type DuplicateStepError struct {
	Step StepID
}

func (e *DuplicateStepError) Error() string {
	return fmt.Sprintf("step %q already registered", e.Step)
}

// StepExecutionError wraps a failure raised while executing a step.
// The run halts at the last persisted checkpoint and can be resumed.
type StepExecutionError struct {
	Step      StepID
	StepIndex int
	Cause     error
}

func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("step %q (index %d) failed: %v", e.Step, e.StepIndex, e.Cause)
}

func (e *StepExecutionError) Unwrap() error {
	return e.Cause
}

// NoCheckpointError is returned when a thread has no persisted checkpoints.
type NoCheckpointError struct {
	ThreadID string
}

func (e *NoCheckpointError) Error() string {
	return fmt.Sprintf("no checkpoint for thread %q", e.ThreadID)
}

func (e *NoCheckpointError) Is(target error) bool {
	return target == ErrNoCheckpoint
}
