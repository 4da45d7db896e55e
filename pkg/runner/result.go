package runner

import (
	"context"
	"errors"

	"github.com/aretw0/quill/pkg/domain"
)

// Result summarizes a stopped run for rich clients (CLI, HTTP, MCP).
type Result struct {
	ThreadID string       `json:"thread_id"`
	Finished bool         `json:"finished"`
	Steps    int          `json:"steps"`
	State    domain.State `json:"state"`
	Err      error        `json:"-"`
}

// NewResult captures the current outcome of x.
func NewResult(x Execution, err error) Result {
	return Result{
		ThreadID: x.ThreadID(),
		Finished: x.Finished(),
		Steps:    x.Steps(),
		State:    x.State(),
		Err:      err,
	}
}

// Paused reports whether the run stopped early without a step failing.
// A paused thread resumes from its latest checkpoint.
func (r Result) Paused() bool {
	if r.Finished {
		return false
	}
	return r.Err == nil || errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded)
}
