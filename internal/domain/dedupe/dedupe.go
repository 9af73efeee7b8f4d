// Package dedupe tracks integrity hashes of ingested payloads so identical
// submissions are answered idempotently instead of creating twins.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Guard records integrity hashes and the record ids they produced.
type Guard interface {
	// SeenAndRecord atomically checks whether hash was seen and records the
	// mapping hash -> recordID if not. Returns the previously stored record
	// id and true when the hash was already seen.
	SeenAndRecord(ctx context.Context, hash, recordID string) (string, bool)

	// Unrecord removes a hash, allowing re-ingestion. Used when a payload
	// was marked seen but failed to commit.
	Unrecord(ctx context.Context, hash string)

	Size() int64
}

// Option applies a configuration option to the in-memory guard.
type Option func(*inMemoryGuard)

// WithMaxSize bounds the number of retained hashes. Zero or negative means
// unbounded.
func WithMaxSize(n int) Option {
	return func(g *inMemoryGuard) {
		g.maxSize = n
	}
}

// inMemoryGuard implements Guard with a map plus FIFO eviction order.
type inMemoryGuard struct {
	mu      sync.Mutex
	seen    map[string]string // hash -> record id
	order   []string          // insertion order for bounded eviction
	maxSize int
	size    atomic.Int64
}

// NewInMemoryGuard creates a bounded in-memory guard.
func NewInMemoryGuard(opts ...Option) Guard {
	g := &inMemoryGuard{maxSize: 50000}
	for _, opt := range opts {
		opt(g)
	}
	g.seen = make(map[string]string)
	return g
}

func (g *inMemoryGuard) SeenAndRecord(_ context.Context, hash, recordID string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.seen[hash]; ok {
		return existing, true
	}

	if g.maxSize > 0 && len(g.seen) >= g.maxSize {
		g.evictOldest()
	}

	g.seen[hash] = recordID
	g.order = append(g.order, hash)
	g.size.Add(1)
	return "", false
}

func (g *inMemoryGuard) Unrecord(_ context.Context, hash string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.seen[hash]; !ok {
		return
	}
	delete(g.seen, hash)
	for i, h := range g.order {
		if h == hash {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	g.size.Add(-1)
}

func (g *inMemoryGuard) Size() int64 {
	return g.size.Load()
}

// evictOldest drops the earliest surviving insertion. Caller holds g.mu.
func (g *inMemoryGuard) evictOldest() {
	for len(g.order) > 0 {
		h := g.order[0]
		g.order = g.order[1:]
		if _, ok := g.seen[h]; ok {
			delete(g.seen, h)
			g.size.Add(-1)
			return
		}
	}
}
