package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrQueueClosed = errors.New("queue is closed")
	ErrQueueFull   = errors.New("queue is full")
)

// RunRequest asks the worker to execute one margin extraction run.
type RunRequest struct {
	ID           string    `json:"id"`
	Worksheet    string    `json:"worksheet"`
	MarginColumn int       `json:"margin_column"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// Queue hands run requests from the API to the single extraction worker.
type Queue interface {
	Push(ctx context.Context, req *RunRequest) error
	// Pop blocks until a request is available, the context is cancelled,
	// or the queue is closed and drained.
	Pop(ctx context.Context) (*RunRequest, error)
	Close() error
}

// InMemoryQueue is the default single-process queue.
type InMemoryQueue struct {
	ch     chan *RunRequest
	closed chan struct{}
	once   sync.Once
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		ch:     make(chan *RunRequest, 128),
		closed: make(chan struct{}),
	}
}

func (q *InMemoryQueue) Push(_ context.Context, req *RunRequest) error {
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}

	select {
	case q.ch <- req:
		return nil
	case <-q.closed:
		return ErrQueueClosed
	default:
		return ErrQueueFull
	}
}

func (q *InMemoryQueue) Pop(ctx context.Context) (*RunRequest, error) {
	// Drain pending requests even after Close.
	select {
	case req := <-q.ch:
		return req, nil
	default:
	}

	select {
	case req := <-q.ch:
		return req, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.closed:
		select {
		case req := <-q.ch:
			return req, nil
		default:
			return nil, ErrQueueClosed
		}
	}
}

func (q *InMemoryQueue) Size() int {
	return len(q.ch)
}

func (q *InMemoryQueue) Close() error {
	q.once.Do(func() { close(q.closed) })
	return nil
}
