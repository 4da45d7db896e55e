// Package registry holds the named step functions of a workflow and
// enforces the contract every step invocation must honor.
package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/quill/pkg/domain"
)

// StepFunc defines the signature for a step implementation.
// It receives a read-only copy of the state and returns the fields it wants to change.
type StepFunc func(ctx context.Context, state domain.State) (domain.Update, error)

// Step is a registered step: its function and the fields it may write.
type Step struct {
	ID     domain.StepID
	Writes domain.FieldSet
	Fn     StepFunc
}

// Registry manages the available steps.
type Registry struct {
	mu    sync.RWMutex
	steps map[domain.StepID]Step
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		steps: make(map[domain.StepID]Step),
	}
}

// Register adds a step to the registry.
// Registering the same identifier twice is an error.
func (r *Registry) Register(id domain.StepID, writes domain.FieldSet, fn StepFunc) error {
	if !id.Valid() {
		return fmt.Errorf("register %q: %w", id, domain.ErrUnknownStep)
	}
	if fn == nil {
		return fmt.Errorf("register %q: nil step function", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.steps[id]; exists {
		return &domain.DuplicateStepError{Step: id}
	}
	r.steps[id] = Step{ID: id, Writes: writes, Fn: fn}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(id domain.StepID, writes domain.FieldSet, fn StepFunc) {
	if err := r.Register(id, writes, fn); err != nil {
		panic(err)
	}
}

// Has reports whether a step is registered under id.
func (r *Registry) Has(id domain.StepID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.steps[id]
	return ok
}

// Lookup returns the registered step.
func (r *Registry) Lookup(id domain.StepID) (Step, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.steps[id]
	return s, ok
}

// IDs returns the registered identifiers, sorted.
func (r *Registry) IDs() []domain.StepID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]domain.StepID, 0, len(r.steps))
	for id := range r.steps {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Invoke looks up a step by id and executes it on a private copy of state.
//
// Failures, panics and writes outside the declared field set are all
// reported as *domain.StepExecutionError. index is only used to annotate
// the error.
func (r *Registry) Invoke(ctx context.Context, id domain.StepID, index int, state domain.State) (delta domain.Update, err error) {
	step, ok := r.Lookup(id)
	if !ok {
		return domain.Update{}, &domain.StepExecutionError{
			Step:      id,
			StepIndex: index,
			Cause:     fmt.Errorf("%w: %q is not registered", domain.ErrUnknownStep, id),
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			delta = domain.Update{}
			err = &domain.StepExecutionError{Step: id, StepIndex: index, Cause: fmt.Errorf("panic: %v", rec)}
		}
	}()

	delta, err = step.Fn(ctx, state.Clone())
	if err != nil {
		return domain.Update{}, &domain.StepExecutionError{Step: id, StepIndex: index, Cause: err}
	}

	if extra := delta.Fields().Without(step.Writes); extra != 0 {
		return domain.Update{}, &domain.StepExecutionError{
			Step:      id,
			StepIndex: index,
			Cause:     fmt.Errorf("%w: %s (declared %s)", domain.ErrUndeclaredWrite, extra, step.Writes),
		}
	}

	return delta, nil
}
