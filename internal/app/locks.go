package service

import "sync"

// cellLocks serializes ingestion per spatial cell. Two concurrent ingests
// into the same cell would otherwise both detect conflicts against a stale
// neighbor set; unrelated cells proceed fully in parallel.
type cellLocks struct {
	mu    sync.Mutex
	cells map[string]*cellLock
}

type cellLock struct {
	mu   sync.Mutex
	refs int
}

func newCellLocks() *cellLocks {
	return &cellLocks{cells: make(map[string]*cellLock)}
}

// acquire blocks until the cell is exclusively held and returns the release
// function. Entries are reference counted so idle cells do not accumulate.
func (c *cellLocks) acquire(key string) func() {
	c.mu.Lock()
	e, ok := c.cells[key]
	if !ok {
		e = &cellLock{}
		c.cells[key] = e
	}
	e.refs++
	c.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		c.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(c.cells, key)
		}
		c.mu.Unlock()
	}
}
