// Package queue provides the bounded in-memory rescore queue. Ingestion
// enqueues one job per affected neighbor; workers drain them asynchronously
// so ingest latency never depends on neighbor fan-out.
package queue

import (
	"context"
	"sync"

	"github.com/okian/strata/pkg/metrics"
)

// Default queue sizing.
const defaultCapacity = 100000

// Job asks a worker to recompute the GTC of one record because its spatial
// neighborhood changed.
type Job struct {
	RecordID string
	// Cause identifies what triggered the rescore, for logging only.
	Cause string
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. Returns false when the queue is full or closed;
	// the caller logs and counts the drop rather than blocking ingest.
	Enqueue(ctx context.Context, j Job) bool

	// Dequeue returns the channel workers consume. Closed when the queue
	// closes.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the number of queued jobs.
	Len(ctx context.Context) int

	// Close stops the queue; subsequent enqueues fail.
	Close() error
}

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity bounds the queue.
func WithCapacity(n int) Option {
	return func(q *InMemoryQueue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// InMemoryQueue implements Queue over a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a bounded in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)
	metrics.UpdateRescoreQueueDepth(0)
	return q
}

// Enqueue adds a job without blocking.
func (q *InMemoryQueue) Enqueue(_ context.Context, j Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}
	select {
	case q.jobs <- j:
		metrics.UpdateRescoreQueueDepth(len(q.jobs))
		return true
	default:
		metrics.RecordRescoreDropped()
		return false
	}
}

// Dequeue returns the consumption channel.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Job {
	return q.jobs
}

// Len returns the number of queued jobs.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.jobs)
}

// Close stops the queue. Queued jobs remain consumable until drained.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.jobs)
	return nil
}
