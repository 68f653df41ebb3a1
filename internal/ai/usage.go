package ai

import "sync"

// Tracker counts provider translations against an optional limit.
type Tracker struct {
	mu    sync.Mutex
	limit int
	used  int
}

// NewTracker returns a tracker; a limit of zero or less means unlimited.
func NewTracker(limit int) *Tracker {
	return &Tracker{limit: limit}
}

func (t *Tracker) LimitReached() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limit > 0 && t.used >= t.limit
}

func (t *Tracker) Track() {
	t.mu.Lock()
	t.used++
	t.mu.Unlock()
}

func (t *Tracker) Used() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.used
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	t.used = 0
	t.mu.Unlock()
}
