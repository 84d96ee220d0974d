package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

const asyncPublisherLogPrefix = "events:async"

// DefaultAsyncBuffer is the queue size used when NewAsyncPublisher gets a
// non-positive buffer.
const DefaultAsyncBuffer = 1024

var (
	// ErrQueueFull is returned when an event is dropped because the queue is full.
	ErrQueueFull = errors.New("dispatch event queue full")
	// ErrPublisherClosed is returned for events published after Close.
	ErrPublisherClosed = errors.New("dispatch event publisher closed")
)

// AsyncPublisher queues events and forwards them to another publisher from a
// single background goroutine, so a slow sink never holds up the caller.
type AsyncPublisher struct {
	next    EventPublisher
	queue   chan *DispatchEvent
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewAsyncPublisher starts an AsyncPublisher in front of next.
func NewAsyncPublisher(next EventPublisher, buffer int) *AsyncPublisher {
	if buffer <= 0 {
		buffer = DefaultAsyncBuffer
	}
	p := &AsyncPublisher{
		next:  next,
		queue: make(chan *DispatchEvent, buffer),
		done:  make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for event := range p.queue {
		if err := p.next.PublishDispatched(context.Background(), event); err != nil {
			slog.Warn(fmt.Sprintf("%s - failed to publish dispatch event for %s: %v", asyncPublisherLogPrefix, event.Operation, err))
		}
	}
}

// PublishDispatched enqueues the event without blocking. A full queue drops
// the event and reports ErrQueueFull.
func (p *AsyncPublisher) PublishDispatched(_ context.Context, event *DispatchEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped.Add(1)
		return ErrPublisherClosed
	}
	select {
	case p.queue <- event:
		return nil
	default:
		return fmt.Errorf("%w (%d dropped so far)", ErrQueueFull, p.dropped.Add(1))
	}
}

// Dropped returns how many events were discarded.
func (p *AsyncPublisher) Dropped() int64 {
	return p.dropped.Load()
}

// Close stops accepting events and waits until the queue is drained or ctx
// ends. It is safe to call more than once.
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s - %d events still queued: %w", asyncPublisherLogPrefix, len(p.queue), ctx.Err())
	}
}
