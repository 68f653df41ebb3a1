// Package store holds the shared in-memory article collection that the
// pagination session and the translation scheduler both write into.
package store

import "sync"

const subscriberBuffer = 64

// Collection keeps at most one Article per ID, in order of first appearance.
// Writers either replace a whole record (Merge) or assign a single field
// (SetTranslatedTitle); readers always get copies.
type Collection struct {
	mu    sync.RWMutex
	order []int64
	byID  map[int64]*Article

	subMu  sync.Mutex
	subs   map[int]chan Change
	nextID int
}

func NewCollection() *Collection {
	return &Collection{
		byID: make(map[int64]*Article),
		subs: make(map[int]chan Change),
	}
}

// Merge appends articles whose ID is unknown and replaces the fields of
// those already present with the given version.
func (c *Collection) Merge(articles ...Article) {
	if len(articles) == 0 {
		return
	}
	c.mu.Lock()
	for i := range articles {
		a := articles[i]
		if existing, ok := c.byID[a.ID]; ok {
			*existing = a
			continue
		}
		c.byID[a.ID] = &a
		c.order = append(c.order, a.ID)
	}
	c.mu.Unlock()

	for _, a := range articles {
		c.publish(Change{ID: a.ID, Kind: ChangeMerged})
	}
}

// SetTranslatedTitle assigns the translated title of one article. It
// reports false if the article is not in the collection.
func (c *Collection) SetTranslatedTitle(id int64, title string) bool {
	c.mu.Lock()
	a, ok := c.byID[id]
	if ok {
		a.TranslatedTitle = title
	}
	c.mu.Unlock()

	if ok {
		c.publish(Change{ID: id, Kind: ChangeTranslated})
	}
	return ok
}

func (c *Collection) Get(id int64) (Article, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.byID[id]
	if !ok {
		return Article{}, false
	}
	return *a, true
}

// Lookup returns the current version of each known ID, preserving the order
// of ids and skipping unknown ones.
func (c *Collection) Lookup(ids []int64) []Article {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Article, 0, len(ids))
	for _, id := range ids {
		if a, ok := c.byID[id]; ok {
			out = append(out, *a)
		}
	}
	return out
}

func (c *Collection) All() []Article {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Article, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.byID[id])
	}
	return out
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Subscribe returns a channel of changes and a func that unsubscribes and
// closes it. Changes are dropped for a subscriber whose buffer is full.
func (c *Collection) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, subscriberBuffer)

	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	c.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
			close(ch)
		})
	}
}

func (c *Collection) publish(ch Change) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, sub := range c.subs {
		select {
		case sub <- ch:
		default:
		}
	}
}
