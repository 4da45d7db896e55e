package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/runner"
)

// StreamManager fans run events out to SSE subscribers, keyed by thread.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{}
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan string]struct{}),
	}
}

// Subscribe registers a buffered channel for threadID. The returned func unsubscribes and closes it.
func (sm *StreamManager) Subscribe(threadID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	if _, ok := sm.subscribers[threadID]; !ok {
		sm.subscribers[threadID] = make(map[chan string]struct{})
	}
	sm.subscribers[threadID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[threadID]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, threadID)
			}
		}
	}
}

// Broadcast delivers msg to every subscriber of threadID. Slow subscribers miss messages.
func (sm *StreamManager) Broadcast(threadID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[threadID] {
		select {
		case ch <- msg:
		default:
			slog.Warn("SSE: Client buffer full, dropping message", "thread_id", threadID)
		}
	}
}

// broadcaster is a runner.Handler publishing to a StreamManager.
type broadcaster struct {
	streams *StreamManager
}

func (b *broadcaster) Begin(ctx context.Context, threadID string) error {
	return nil
}

func (b *broadcaster) Event(ctx context.Context, ev domain.Event) error {
	return b.publish(ev.ThreadID, runner.Line{Type: runner.LineEvent, ThreadID: ev.ThreadID, Event: &ev})
}

func (b *broadcaster) End(ctx context.Context, r runner.Result) error {
	line := runner.Line{Type: runner.LineEnd, ThreadID: r.ThreadID, Result: &r}
	if r.Err != nil {
		line.Error = r.Err.Error()
	}
	return b.publish(r.ThreadID, line)
}

func (b *broadcaster) publish(threadID string, line runner.Line) error {
	data, err := json.Marshal(line)
	if err != nil {
		return err
	}
	b.streams.Broadcast(threadID, string(data))
	return nil
}
