package runner

import (
	"context"
	"errors"

	"github.com/aretw0/quill/pkg/domain"
)

type multiHandler []Handler

// MultiHandler fans every call out to all handlers in order.
// Every handler is called even if an earlier one fails; the errors are joined.
func MultiHandler(handlers ...Handler) Handler {
	return multiHandler(handlers)
}

func (m multiHandler) Begin(ctx context.Context, threadID string) error {
	var errs []error
	for _, h := range m {
		errs = append(errs, h.Begin(ctx, threadID))
	}
	return errors.Join(errs...)
}

func (m multiHandler) Event(ctx context.Context, ev domain.Event) error {
	var errs []error
	for _, h := range m {
		errs = append(errs, h.Event(ctx, ev))
	}
	return errors.Join(errs...)
}

func (m multiHandler) End(ctx context.Context, r Result) error {
	var errs []error
	for _, h := range m {
		errs = append(errs, h.End(ctx, r))
	}
	return errors.Join(errs...)
}
