package domain

import (
	"context"
	"time"
)

// Event is one progress notification of a run: the step that just executed
// and the partial update it produced.
type Event struct {
	ThreadID string `json:"thread_id"`

	// StepIndex is the index of the checkpoint the step produced.
	StepIndex int    `json:"step_index"`
	Step      StepID `json:"step"`
	Delta     Update `json:"delta"`
}

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventStepStart  EventType = "step_start"
	EventStepFinish EventType = "step_finish"
	EventCheckpoint EventType = "checkpoint"
	EventRunFinish  EventType = "run_finish"
)

// EventBase contains common fields for all lifecycle events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	ThreadID  string    `json:"thread_id"`
}

// StepEvent represents the start or end of a step execution.
type StepEvent struct {
	EventBase
	Step      StepID        `json:"step"`
	StepIndex int           `json:"step_index"`
	Duration  time.Duration `json:"duration,omitempty"`
	Err       error         `json:"-"`
}

// CheckpointEvent is emitted after a checkpoint has been persisted.
type CheckpointEvent struct {
	EventBase
	Checkpoint Checkpoint `json:"checkpoint"`
}

// RunEvent is emitted when a run stops, whether finished, failed or paused.
type RunEvent struct {
	EventBase
	Steps    int           `json:"steps"`
	Finished bool          `json:"finished"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStepStart  func(context.Context, *StepEvent)
	OnStepFinish func(context.Context, *StepEvent)
	OnCheckpoint func(context.Context, *CheckpointEvent)
	OnRunFinish  func(context.Context, *RunEvent)
}

// CombineHooks fans each callback out to every non-nil hook in order.
func CombineHooks(hooks ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStepStart: func(ctx context.Context, e *StepEvent) {
			for _, h := range hooks {
				if h.OnStepStart != nil {
					h.OnStepStart(ctx, e)
				}
			}
		},
		OnStepFinish: func(ctx context.Context, e *StepEvent) {
			for _, h := range hooks {
				if h.OnStepFinish != nil {
					h.OnStepFinish(ctx, e)
				}
			}
		},
		OnCheckpoint: func(ctx context.Context, e *CheckpointEvent) {
			for _, h := range hooks {
				if h.OnCheckpoint != nil {
					h.OnCheckpoint(ctx, e)
				}
			}
		},
		OnRunFinish: func(ctx context.Context, e *RunEvent) {
			for _, h := range hooks {
				if h.OnRunFinish != nil {
					h.OnRunFinish(ctx, e)
				}
			}
		},
	}
}
