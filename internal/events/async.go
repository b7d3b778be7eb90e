package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"auction-backend/utils"
)

// DefaultPublishTimeout bounds a single delivery when NewAsync is given none
const DefaultPublishTimeout = 10 * time.Second

var (
	ErrQueueFull = errors.New("event queue full")
	ErrClosed    = errors.New("event publisher closed")
)

// Async queues events and hands them to the wrapped Publisher from one background
// goroutine, so Publish never waits on the broker. Events leave in the order they
// were queued. Each delivery gets its own timeout, detached from the caller's context.
type Async struct {
	next    Publisher
	timeout time.Duration
	queue   chan Event
	done    chan struct{}

	mu     sync.RWMutex
	closed bool

	closeOnce sync.Once
	closeErr  error
}

// NewAsync starts the delivery goroutine. Close must be called to drain it.
func NewAsync(next Publisher, buffer int, timeout time.Duration) *Async {
	if buffer <= 0 {
		buffer = 1
	}
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	a := &Async{
		next:    next,
		timeout: timeout,
		queue:   make(chan Event, buffer),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// Publish queues ev without blocking. A full queue drops the event with ErrQueueFull.
func (a *Async) Publish(_ context.Context, ev Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events, waits for queued ones to be delivered and closes the
// wrapped Publisher.
func (a *Async) Close() error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.queue)
		a.mu.Unlock()

		<-a.done
		a.closeErr = a.next.Close()
	})
	return a.closeErr
}

func (a *Async) run() {
	defer close(a.done)
	for ev := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := a.next.Publish(ctx, ev)
		cancel()
		if err != nil {
			utils.Warn("events: delivery failed", map[string]any{
				"type":    string(ev.Type),
				"item_id": ev.ItemID,
				"bid_id":  ev.BidID,
				"error":   err.Error(),
			})
		}
	}
}
