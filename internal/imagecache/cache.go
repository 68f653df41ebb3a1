// Package imagecache remembers which image URLs have loaded successfully so
// a later failure on the same URL can fall back to the last good asset.
// Failed loads are never retried automatically.
package imagecache

import (
	"sync"
	"time"
)

const (
	DefaultTTL          = 24 * time.Hour
	DefaultCleanupDelay = 5 * time.Second
)

type Status string

const (
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusError   Status = "error"
)

type LoadState struct {
	Status Status
}

type entry struct {
	url      string
	storedAt time.Time
}

// Timer is the handle returned by an AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run after d.
type AfterFunc func(d time.Duration, f func()) Timer

type Cache struct {
	ttl          time.Duration
	cleanupDelay time.Duration
	now          func() time.Time
	after        AfterFunc

	mu      sync.Mutex
	entries map[string]entry
	states  map[string]LoadState
	pending Timer
}

type Option func(*Cache)

func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

func WithCleanupDelay(d time.Duration) Option {
	return func(c *Cache) {
		if d >= 0 {
			c.cleanupDelay = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithAfterFunc(f AfterFunc) Option {
	return func(c *Cache) { c.after = f }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		ttl:          DefaultTTL,
		cleanupDelay: DefaultCleanupDelay,
		now:          time.Now,
		after: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
		entries: make(map[string]entry),
		states:  make(map[string]LoadState),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the URL to display for original: the cached URL when the
// last load of original failed and a good copy is known, otherwise original.
func (c *Cache) URL(original string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.states[original]; ok && st.Status == StatusError {
		if e, ok := c.entries[original]; ok {
			return e.url
		}
	}
	return original
}

// MarkLoading records that a load of url has started.
func (c *Cache) MarkLoading(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[url] = LoadState{Status: StatusLoading}
}

// MarkLoaded caches url as good and schedules an expiry pass.
func (c *Cache) MarkLoaded(url string) {
	c.mu.Lock()
	c.entries[url] = entry{url: url, storedAt: c.now()}
	c.states[url] = LoadState{Status: StatusLoaded}
	c.scheduleCleanupLocked()
	c.mu.Unlock()
}

// HandleLoadError records a failed load of url and reports whether the
// caller should retry, which is always false. With a cached copy the state
// goes back to loaded so the cached asset is shown; without one it stays
// error until a later MarkLoaded.
func (c *Cache) HandleLoadError(url string) (retry bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[url]; ok {
		c.states[url] = LoadState{Status: StatusLoaded}
		return false
	}
	c.states[url] = LoadState{Status: StatusError}
	return false
}

func (c *Cache) LoadState(url string) (LoadState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[url]
	return st, ok
}

func (c *Cache) HasCached(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[url]
	return ok
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Evict removes entries older than the TTL together with their load states
// and returns how many were removed.
func (c *Cache) Evict() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictLocked()
}

func (c *Cache) evictLocked() int {
	now := c.now()
	var expired []string
	for url, e := range c.entries {
		if now.Sub(e.storedAt) > c.ttl {
			expired = append(expired, url)
		}
	}
	for _, url := range expired {
		delete(c.entries, url)
		delete(c.states, url)
	}
	return len(expired)
}

// scheduleCleanupLocked arranges one deferred expiry pass; further calls
// while one is pending do nothing.
func (c *Cache) scheduleCleanupLocked() {
	if c.pending != nil {
		return
	}
	c.pending = c.after(c.cleanupDelay, c.runCleanup)
}

func (c *Cache) runCleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictLocked()
	c.pending = nil
}

// Clear drops all cached entries and load states.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	clear(c.states)
}

// Close cancels a pending expiry pass.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}
