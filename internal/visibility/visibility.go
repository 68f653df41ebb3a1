// Package visibility reports when rendered list elements scroll into view.
//
// A Region models a scroll container addressed in lines. Observers attached
// to it receive the id of each observed element whenever that element goes
// from outside to inside the (margin-extended) viewport.
package visibility

import (
	"sort"
	"sync"
)

// Options controls when an element counts as intersecting.
type Options struct {
	// Threshold is the fraction of the element's height that must be inside
	// the viewport. Zero means any overlap.
	Threshold float64
	// Margin extends the viewport by this many lines above and below.
	Margin int
}

// Observer watches individual elements of a Source.
type Observer interface {
	Observe(id int64)
	Disconnect()
}

// Source creates observers and lists the elements currently rendered.
type Source interface {
	NewObserver(opts Options, onVisible func(id int64)) Observer
	Candidates() []int64
}

// Item is one rendered element.
type Item struct {
	ID     int64
	Top    int
	Height int
}

// Region is a Source for a vertically scrolling, line-addressed container.
type Region struct {
	mu        sync.Mutex
	items     map[int64]Item
	order     []int64
	top       int
	height    int
	observers map[*observer]struct{}
}

func NewRegion() *Region {
	return &Region{
		items:     make(map[int64]Item),
		observers: make(map[*observer]struct{}),
	}
}

// Layout replaces the set of rendered elements. Elements no longer rendered
// are dropped from every observer.
func (r *Region) Layout(items []Item) {
	r.mu.Lock()
	r.items = make(map[int64]Item, len(items))
	r.order = r.order[:0]
	for _, it := range items {
		if _, dup := r.items[it.ID]; !dup {
			r.order = append(r.order, it.ID)
		}
		r.items[it.ID] = it
	}
	for o := range r.observers {
		for id := range o.watched {
			if _, ok := r.items[id]; !ok {
				delete(o.watched, id)
			}
		}
	}
	fire := r.recomputeLocked()
	r.mu.Unlock()
	fire.run()
}

// Scroll moves the viewport to [top, top+height).
func (r *Region) Scroll(top, height int) {
	r.mu.Lock()
	r.top, r.height = top, height
	fire := r.recomputeLocked()
	r.mu.Unlock()
	fire.run()
}

// Candidates returns the ids of all rendered elements in layout order.
func (r *Region) Candidates() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.order...)
}

// Visible returns the rendered ids that intersect the viewport under opts,
// ordered top to bottom.
func (r *Region) Visible(opts Options) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for _, id := range r.order {
		if r.intersectsLocked(r.items[id], opts) {
			ids = append(ids, id)
		}
	}
	sort.SliceStable(ids, func(i, j int) bool { return r.items[ids[i]].Top < r.items[ids[j]].Top })
	return ids
}

func (r *Region) NewObserver(opts Options, onVisible func(id int64)) Observer {
	o := &observer{region: r, opts: opts, fn: onVisible, watched: make(map[int64]bool)}
	r.mu.Lock()
	r.observers[o] = struct{}{}
	r.mu.Unlock()
	return o
}

func (r *Region) intersectsLocked(it Item, opts Options) bool {
	if it.Height <= 0 || r.height <= 0 {
		return false
	}
	lo := r.top - opts.Margin
	hi := r.top + r.height + opts.Margin
	overlap := min(it.Top+it.Height, hi) - max(it.Top, lo)
	if overlap <= 0 {
		return false
	}
	return float64(overlap)/float64(it.Height) >= opts.Threshold
}

// recomputeLocked updates intersection state for every watched element and
// collects the callbacks for those that just became visible.
func (r *Region) recomputeLocked() callbacks {
	var fire callbacks
	for o := range r.observers {
		for id, was := range o.watched {
			now := r.intersectsLocked(r.items[id], o.opts)
			o.watched[id] = now
			if now && !was {
				fire = append(fire, callback{fn: o.fn, id: id})
			}
		}
	}
	return fire
}

type callback struct {
	fn func(int64)
	id int64
}

type callbacks []callback

// run invokes callbacks outside the region lock so they may call back in.
func (cs callbacks) run() {
	for _, c := range cs {
		c.fn(c.id)
	}
}

type observer struct {
	region  *Region
	opts    Options
	fn      func(int64)
	watched map[int64]bool // guarded by region.mu; value is "intersecting"
}

// Observe starts watching id. If the element is already in view the callback
// fires once immediately. Observing an element that is not rendered, or one
// already watched, does nothing.
func (o *observer) Observe(id int64) {
	r := o.region
	r.mu.Lock()
	if _, live := r.observers[o]; !live {
		r.mu.Unlock()
		return
	}
	it, ok := r.items[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	if _, already := o.watched[id]; already {
		r.mu.Unlock()
		return
	}
	in := r.intersectsLocked(it, o.opts)
	o.watched[id] = in
	r.mu.Unlock()

	if in {
		o.fn(id)
	}
}

// Disconnect stops all observation. It is safe to call more than once.
func (o *observer) Disconnect() {
	r := o.region
	r.mu.Lock()
	delete(r.observers, o)
	o.watched = make(map[int64]bool)
	r.mu.Unlock()
}

// ListLayout lays out ids as consecutive rows of rowHeight lines each.
func ListLayout(ids []int64, rowHeight int) []Item {
	items := make([]Item, len(ids))
	for i, id := range ids {
		items[i] = Item{ID: id, Top: i * rowHeight, Height: rowHeight}
	}
	return items
}
