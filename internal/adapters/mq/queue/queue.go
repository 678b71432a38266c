// Package queue defines the contract for enqueuing and consuming composition requests.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/pkg/metrics"
)

const defaultQueueCapacity = 1000

// Request is the payload type flowing through the queue.
type Request = model.CompositionRequest

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a request without blocking. Returns ErrFull on
	// backpressure and ErrClosed after Close.
	Enqueue(ctx context.Context, r Request) error

	// Dequeue returns a channel that will receive requests as they become
	// available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Request

	// Len returns the current number of queued requests.
	Len(ctx context.Context) int

	// Close stops accepting requests. Queued ones are still delivered.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	requests chan Request
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.requests = make(chan Request, q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a request to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r Request) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	// The read lock keeps Close from closing the channel mid-send.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordEnqueue("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordEnqueue("cancelled")
		return fmt.Errorf("enqueue %s: %w", r.ID, err)
	}

	select {
	case q.requests <- r:
		metrics.RecordEnqueue("accepted")
		metrics.UpdateQueueSize(len(q.requests))
		return nil
	default:
		metrics.RecordEnqueue("full")
		return fmt.Errorf("%w: %d queued", ErrFull, q.capacity)
	}
}

// Dequeue returns the receive side of the queue. Every caller shares the
// same channel, so a request is delivered to exactly one consumer.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Request {
	return q.requests
}

// Len returns the current number of queued requests.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.requests)
	metrics.UpdateQueueSize(size)
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.requests)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
