// Package session holds the single-flight guard for sync batches. Only one
// sync runs at a time; concurrent callers observe "busy" instead of queuing.
// There is no cancellation: a started batch always runs to completion.
package session

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of the running session, safe to hand to
// observers. Progress numbers are advisory only.
type Snapshot struct {
	InProgress bool
	Total      int
	Current    int
	StartedAt  time.Time
}

// Coordinator serializes sync batches.
type Coordinator struct {
	mu         sync.Mutex
	inProgress bool
	total      int
	current    int
	startedAt  time.Time
}

func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Begin claims the session for one batch. It returns false without blocking
// when a batch is already running; the caller must then perform no I/O.
func (c *Coordinator) Begin(total int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inProgress {
		return false
	}
	c.inProgress = true
	c.total = total
	c.current = 0
	c.startedAt = time.Now()
	return true
}

// SetTotal records the batch size once it is known. The session is claimed
// before the pending records are counted, so the total arrives after Begin.
func (c *Coordinator) SetTotal(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inProgress {
		c.total = total
	}
}

// Progress records the index of the item currently being processed.
func (c *Coordinator) Progress(current int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inProgress {
		c.current = current
	}
}

// End releases the session. Safe to call from a deferred statement even if
// Begin returned false earlier in some other goroutine; it only clears an
// active session.
func (c *Coordinator) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inProgress = false
	c.total = 0
	c.current = 0
	c.startedAt = time.Time{}
}

// IsSyncing reports whether a batch is currently running.
func (c *Coordinator) IsSyncing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inProgress
}

// Snapshot returns a copy of the current session state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		InProgress: c.inProgress,
		Total:      c.total,
		Current:    c.current,
		StartedAt:  c.startedAt,
	}
}
