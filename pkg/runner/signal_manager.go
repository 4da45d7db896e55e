package runner

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// SignalManager turns SIGINT/SIGTERM into cancellation of a run context.
// The first signal pauses the run after the step in flight; the thread
// stays resumable.
type SignalManager struct {
	ctx         context.Context
	cancel      context.CancelFunc
	interrupted atomic.Bool
	stop        chan struct{}
	stopOnce    sync.Once
	signals     chan os.Signal
}

// NewSignalManager starts listening for signals. The context derives from parent.
func NewSignalManager(parent context.Context) *SignalManager {
	sm := &SignalManager{
		stop:    make(chan struct{}),
		signals: make(chan os.Signal, 1),
	}
	sm.ctx, sm.cancel = context.WithCancel(parent)
	signal.Notify(sm.signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sm.signals:
			sm.interrupted.Store(true)
			sm.cancel()
		case <-sm.stop:
		}
	}()
	return sm
}

// Context returns the run context.
func (sm *SignalManager) Context() context.Context {
	return sm.ctx
}

// Interrupted reports whether a signal canceled the context.
func (sm *SignalManager) Interrupted() bool {
	return sm.interrupted.Load()
}

// Stop releases the signal listener and cancels the context. It is idempotent.
func (sm *SignalManager) Stop() {
	sm.stopOnce.Do(func() {
		signal.Stop(sm.signals)
		close(sm.stop)
	})
	sm.cancel()
}
