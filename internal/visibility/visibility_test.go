package visibility

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	ids []int64
}

func (r *recorder) fn(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *recorder) got() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.ids...)
}

// ten rows of three lines each, viewport showing rows 0-2 (lines 0-8)
func newTestRegion() *Region {
	r := NewRegion()
	r.Layout(ListLayout([]int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 3))
	r.Scroll(0, 9)
	return r
}

func TestObserveFiresWhenAlreadyVisible(t *testing.T) {
	r := newTestRegion()
	var rec recorder
	o := r.NewObserver(Options{Threshold: 0.1}, rec.fn)

	o.Observe(1)
	o.Observe(5)

	assert.Equal(t, []int64{1}, rec.got())
}

func TestObserveTwiceFiresOnce(t *testing.T) {
	r := newTestRegion()
	var rec recorder
	o := r.NewObserver(Options{}, rec.fn)

	o.Observe(2)
	o.Observe(2)

	assert.Equal(t, []int64{2}, rec.got())
}

func TestScrollFiresOnTransition(t *testing.T) {
	r := newTestRegion()
	var rec recorder
	o := r.NewObserver(Options{Threshold: 0.1}, rec.fn)
	for _, id := range r.Candidates() {
		o.Observe(id)
	}
	require.Equal(t, []int64{1, 2, 3}, rec.got())

	// rows 3-5 come into view
	r.Scroll(9, 9)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, sortedTail(rec.got(), 3))

	// scrolling back re-enters rows 1-3
	r.Scroll(0, 9)
	assert.Len(t, rec.got(), 9)

	// staying put fires nothing
	r.Scroll(0, 9)
	assert.Len(t, rec.got(), 9)
}

func TestMarginLooksAhead(t *testing.T) {
	r := newTestRegion()
	var rec recorder
	o := r.NewObserver(Options{Threshold: 0.1, Margin: 3}, rec.fn)
	for _, id := range r.Candidates() {
		o.Observe(id)
	}
	// row 4 occupies lines 9-11, within the 3-line margin
	assert.ElementsMatch(t, []int64{1, 2, 3, 4}, rec.got())
}

func TestThreshold(t *testing.T) {
	r := NewRegion()
	r.Layout([]Item{{ID: 1, Top: 0, Height: 10}})
	r.Scroll(9, 10) // one line of ten visible

	var low, high recorder
	r.NewObserver(Options{Threshold: 0.1}, low.fn).Observe(1)
	r.NewObserver(Options{Threshold: 0.5}, high.fn).Observe(1)

	assert.Equal(t, []int64{1}, low.got())
	assert.Empty(t, high.got())
}

func TestDisconnectStopsEvents(t *testing.T) {
	r := newTestRegion()
	var rec recorder
	o := r.NewObserver(Options{}, rec.fn)
	o.Observe(4)
	o.Disconnect()
	o.Disconnect()

	r.Scroll(9, 9)
	o.Observe(5)
	assert.Empty(t, rec.got())
}

func TestLayoutDropsRemovedElements(t *testing.T) {
	r := newTestRegion()
	var rec recorder
	o := r.NewObserver(Options{}, rec.fn)
	o.Observe(1)
	require.Equal(t, []int64{1}, rec.got())

	// element 1 disappears, then a new element with the same id is rendered
	r.Layout(ListLayout([]int64{2, 3}, 3))
	r.Layout(ListLayout([]int64{1, 2, 3}, 3))
	assert.Equal(t, []int64{1}, rec.got(), "a re-rendered element must be observed again")

	o.Observe(1)
	assert.Equal(t, []int64{1, 1}, rec.got())
}

func TestObserveUnrenderedIsIgnored(t *testing.T) {
	r := newTestRegion()
	var rec recorder
	o := r.NewObserver(Options{}, rec.fn)
	o.Observe(99)
	assert.Empty(t, rec.got())
}

func TestCallbackMayReenterRegion(t *testing.T) {
	r := newTestRegion()
	var o Observer
	var seen []int64
	o = r.NewObserver(Options{}, func(id int64) {
		seen = append(seen, id)
		_ = r.Candidates()
		o.Observe(id + 1)
	})
	o.Observe(1)
	assert.Equal(t, []int64{1, 2, 3}, seen)
}

func TestVisible(t *testing.T) {
	r := newTestRegion()
	r.Scroll(3, 6)
	assert.Equal(t, []int64{2, 3}, r.Visible(Options{}))
	assert.Equal(t, []int64{1, 2, 3, 4}, r.Visible(Options{Margin: 1}))
}

func TestEmptyViewportIntersectsNothing(t *testing.T) {
	r := NewRegion()
	r.Layout(ListLayout([]int64{1}, 3))
	var rec recorder
	r.NewObserver(Options{}, rec.fn).Observe(1)
	assert.Empty(t, rec.got())
}

// sortedTail keeps the first n entries and sorts the remainder, since
// callbacks for one scroll step arrive in map order.
func sortedTail(ids []int64, n int) []int64 {
	head := append([]int64(nil), ids[:n]...)
	tail := append([]int64(nil), ids[n:]...)
	for i := 1; i < len(tail); i++ {
		for j := i; j > 0 && tail[j] < tail[j-1]; j-- {
			tail[j], tail[j-1] = tail[j-1], tail[j]
		}
	}
	return append(head, tail...)
}
