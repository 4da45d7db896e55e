// Package resilient wraps collaborators with a per-call timeout, a shared
// rate limiter and bounded retry of temporary failures.
package resilient

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/quill/pkg/ports"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxRetries     = 2
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 10 * time.Second
)

// IsTemporary reports whether err, or an error it wraps, declares itself temporary.
// Calls cut short by the per-call timeout are temporary too.
func IsTemporary(err error) bool {
	var t interface{ Temporary() bool }
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Policy bounds every wrapped call. The zero value means no timeout, no
// rate limit and no retry.
type Policy struct {
	timeout        time.Duration
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	limiter        *rate.Limiter
	logger         *slog.Logger
}

// Option configures a Policy.
type Option func(*Policy)

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option {
	return func(p *Policy) {
		p.timeout = d
	}
}

// WithRetries sets how many times a temporary failure is retried.
func WithRetries(n int) Option {
	return func(p *Policy) {
		p.maxRetries = max(n, 0)
	}
}

// WithBackoff sets the first delay between attempts and its cap. The delay doubles per attempt.
func WithBackoff(initial, maxDelay time.Duration) Option {
	return func(p *Policy) {
		p.initialBackoff = initial
		p.maxBackoff = maxDelay
	}
}

// WithRateLimit allows perSecond calls with the given burst. perSecond <= 0 disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(p *Policy) {
		if perSecond <= 0 {
			p.limiter = nil
			return
		}
		p.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithLimiter shares an existing limiter, e.g. between a completer and a searcher
// hitting the same quota.
func WithLimiter(l *rate.Limiter) Option {
	return func(p *Policy) {
		p.limiter = l
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Policy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPolicy creates a policy with DefaultMaxRetries and default backoff.
func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		maxRetries:     DefaultMaxRetries,
		initialBackoff: DefaultInitialBackoff,
		maxBackoff:     DefaultMaxBackoff,
		logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Do runs fn under the policy. op names the call in logs.
func (p *Policy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	backoff := p.initialBackoff
	for attempt := 0; ; attempt++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		err := p.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt >= p.maxRetries || !IsTemporary(err) {
			return err
		}

		p.logger.Warn("Collaborator call failed, retrying", "op", op, "attempt", attempt+1, "backoff", backoff, "err", err)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, p.maxBackoff)
	}
}

func (p *Policy) attempt(ctx context.Context, fn func(context.Context) error) error {
	if p.timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return fn(callCtx)
}

// Completer applies a Policy to every call of the wrapped completer.
type Completer struct {
	inner  ports.Completer
	policy *Policy
}

var _ ports.Completer = (*Completer)(nil)

// NewCompleter wraps inner.
func NewCompleter(inner ports.Completer, policy *Policy) *Completer {
	return &Completer{inner: inner, policy: policy}
}

func (c *Completer) Complete(ctx context.Context, system, user string) (string, error) {
	var out string
	err := c.policy.Do(ctx, "complete", func(ctx context.Context) error {
		var err error
		out, err = c.inner.Complete(ctx, system, user)
		return err
	})
	return out, err
}

func (c *Completer) CompleteStructured(ctx context.Context, system, user string, schema ports.Schema, out any) error {
	return c.policy.Do(ctx, "complete_structured", func(ctx context.Context) error {
		return c.inner.CompleteStructured(ctx, system, user, schema, out)
	})
}

// Searcher applies a Policy to every call of the wrapped searcher.
type Searcher struct {
	inner  ports.Searcher
	policy *Policy
}

var _ ports.Searcher = (*Searcher)(nil)

// NewSearcher wraps inner.
func NewSearcher(inner ports.Searcher, policy *Policy) *Searcher {
	return &Searcher{inner: inner, policy: policy}
}

func (s *Searcher) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	var out []string
	err := s.policy.Do(ctx, "search", func(ctx context.Context) error {
		var err error
		out, err = s.inner.Search(ctx, query, maxResults)
		return err
	})
	return out, err
}
