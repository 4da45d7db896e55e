package runtime

import (
	"errors"
	"iter"
	"sync/atomic"

	"github.com/aretw0/quill/pkg/domain"
)

// ErrExecutionConsumed is returned when an execution is iterated twice.
var ErrExecutionConsumed = errors.New("execution already consumed")

// Execution is a lazy, finite, non-restartable run of one thread.
//
// Nothing happens until Events or Wait is called. It is not safe for
// concurrent use.
type Execution struct {
	threadID string
	body     func(*Execution, func(domain.Event, error) bool) error
	consumed atomic.Bool

	state    domain.State
	steps    int
	finished bool
	err      error
}

func newExecution(threadID string, body func(*Execution, func(domain.Event, error) bool) error) *Execution {
	return &Execution{threadID: threadID, body: body}
}

// ThreadID returns the thread this execution runs on.
func (x *Execution) ThreadID() string {
	return x.threadID
}

// Events returns the sequence of (step, delta) events. Each event is yielded
// after its checkpoint is durable. A failure is yielded once as the last item.
//
// Breaking out of the loop pauses the run after the last yielded step;
// the thread can be resumed later.
//
// The thread's write lock is held while the loop body runs. Deleting the
// same thread or starting another run on it from inside the loop blocks
// forever; do it after the loop ends.
func (x *Execution) Events() iter.Seq2[domain.Event, error] {
	return func(yield func(domain.Event, error) bool) {
		if !x.consumed.CompareAndSwap(false, true) {
			yield(domain.Event{}, ErrExecutionConsumed)
			return
		}

		err := x.body(x, yield)
		if errors.Is(err, errStopped) {
			return
		}
		if err != nil {
			x.err = err
			yield(domain.Event{}, err)
		}
	}
}

// Wait consumes the whole sequence and returns the final state.
// On failure it returns the state of the last persisted checkpoint.
func (x *Execution) Wait() (domain.State, error) {
	for _, err := range x.Events() {
		if err != nil {
			return x.State(), err
		}
	}
	return x.State(), x.err
}

// State returns the latest merged state observed by the run.
func (x *Execution) State() domain.State {
	return x.state.Clone()
}

// Steps returns how many steps this execution completed.
func (x *Execution) Steps() int {
	return x.steps
}

// Finished reports whether the run reached the terminal sentinel.
func (x *Execution) Finished() bool {
	return x.finished
}

// Err returns the failure that halted the run, if any.
func (x *Execution) Err() error {
	return x.err
}
