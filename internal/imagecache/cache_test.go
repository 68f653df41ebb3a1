package imagecache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type manualTimer struct {
	delay   time.Duration
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type manualTimers struct {
	timers []*manualTimer
}

func (m *manualTimers) AfterFunc(d time.Duration, f func()) Timer {
	t := &manualTimer{delay: d, f: f}
	m.timers = append(m.timers, t)
	return t
}

// fire runs every timer that has not been stopped or fired yet.
func (m *manualTimers) fire() int {
	n := 0
	for _, t := range m.timers {
		if t.stopped {
			continue
		}
		t.stopped = true
		t.f()
		n++
	}
	return n
}

func (m *manualTimers) pending() int {
	n := 0
	for _, t := range m.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func newTestCache(t *testing.T) (*Cache, *fakeClock, *manualTimers) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	timers := &manualTimers{}
	c := New(WithClock(clock.Now), WithAfterFunc(timers.AfterFunc))
	t.Cleanup(c.Close)
	return c, clock, timers
}

const img = "https://example.com/a.png"

func TestURLReturnsOriginalWithoutFailure(t *testing.T) {
	c, _, _ := newTestCache(t)
	assert.Equal(t, img, c.URL(img))

	c.MarkLoaded(img)
	assert.Equal(t, img, c.URL(img))
}

func TestMarkLoadedRecordsEntryAndState(t *testing.T) {
	c, _, _ := newTestCache(t)
	c.MarkLoading(img)
	st, ok := c.LoadState(img)
	require.True(t, ok)
	assert.Equal(t, StatusLoading, st.Status)

	c.MarkLoaded(img)
	st, _ = c.LoadState(img)
	assert.Equal(t, StatusLoaded, st.Status)
	assert.True(t, c.HasCached(img))
	assert.Equal(t, 1, c.Len())
}

func TestHandleLoadErrorWithCachedCopy(t *testing.T) {
	c, _, _ := newTestCache(t)
	c.MarkLoaded(img)
	c.MarkLoading(img)

	retry := c.HandleLoadError(img)
	assert.False(t, retry)
	st, _ := c.LoadState(img)
	assert.Equal(t, StatusLoaded, st.Status)
	assert.Equal(t, img, c.URL(img))
}

func TestHandleLoadErrorWithoutCachedCopy(t *testing.T) {
	c, _, _ := newTestCache(t)
	c.MarkLoading(img)

	retry := c.HandleLoadError(img)
	assert.False(t, retry)
	st, ok := c.LoadState(img)
	require.True(t, ok)
	assert.Equal(t, StatusError, st.Status)
	assert.False(t, c.HasCached(img))
	assert.Equal(t, img, c.URL(img))

	// A later success recovers.
	c.MarkLoaded(img)
	st, _ = c.LoadState(img)
	assert.Equal(t, StatusLoaded, st.Status)
}

func TestEvictRemovesExpiredEntriesAndStates(t *testing.T) {
	c, clock, _ := newTestCache(t)
	c.MarkLoaded("old")
	clock.Advance(20 * time.Hour)
	c.MarkLoaded("fresh")
	c.MarkLoading("untracked")

	clock.Advance(5 * time.Hour)
	assert.Equal(t, 1, c.Evict())

	assert.False(t, c.HasCached("old"))
	_, ok := c.LoadState("old")
	assert.False(t, ok)
	assert.True(t, c.HasCached("fresh"))
	_, ok = c.LoadState("untracked")
	assert.True(t, ok, "states without an entry are left alone")
}

func TestEntryExactlyAtTTLIsKept(t *testing.T) {
	c, clock, _ := newTestCache(t)
	c.MarkLoaded(img)
	clock.Advance(DefaultTTL)
	assert.Equal(t, 0, c.Evict())
	clock.Advance(time.Millisecond)
	assert.Equal(t, 1, c.Evict())
}

func TestCleanupIsDebounced(t *testing.T) {
	c, clock, timers := newTestCache(t)
	c.MarkLoaded("a")
	c.MarkLoaded("b")
	c.MarkLoaded("c")
	require.Len(t, timers.timers, 1)
	assert.Equal(t, DefaultCleanupDelay, timers.timers[0].delay)

	clock.Advance(25 * time.Hour)
	assert.Equal(t, 1, timers.fire())
	assert.Equal(t, 0, c.Len())

	// Once the pass has run a new load schedules another one.
	c.MarkLoaded("d")
	assert.Equal(t, 1, timers.pending())
}

func TestCloseStopsPendingCleanup(t *testing.T) {
	c, _, timers := newTestCache(t)
	c.MarkLoaded(img)
	require.Equal(t, 1, timers.pending())
	c.Close()
	assert.Equal(t, 0, timers.pending())
}

func TestClear(t *testing.T) {
	c, _, _ := newTestCache(t)
	c.MarkLoaded("a")
	c.MarkLoading("b")
	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok := c.LoadState("b")
	assert.False(t, ok)
}

func TestOptions(t *testing.T) {
	c := New(WithTTL(time.Minute), WithCleanupDelay(0), WithTTL(-1))
	defer c.Close()
	assert.Equal(t, time.Minute, c.ttl)
	assert.Equal(t, time.Duration(0), c.cleanupDelay)
}

func TestRealTimerCleanup(t *testing.T) {
	c := New(WithTTL(time.Nanosecond), WithCleanupDelay(time.Millisecond))
	defer c.Close()
	c.MarkLoaded(img)
	require.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}
