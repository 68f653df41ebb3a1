// Package filter loads server-side filtered articles page by page and merges
// every received page into the shared article collection.
package filter

import (
	"context"
	"fmt"
	"sync"

	"github.com/matheuskafuri/feedview/internal/api"
	"github.com/matheuskafuri/feedview/internal/logging"
	"github.com/matheuskafuri/feedview/internal/store"
)

// DefaultPageSize is the number of articles requested per page.
const DefaultPageSize = 50

// Searcher runs a filtered article query against the backend.
type Searcher interface {
	FilterArticles(ctx context.Context, req api.FilterRequest) (*api.FilterResponse, error)
}

// State is a snapshot of a Session.
type State struct {
	Conditions []api.Condition
	Results    []store.Article
	// Page is the next page LoadMore will request once it advances.
	Page    int
	HasMore bool
	Total   int
	Loading bool
}

// Session holds one filter's accumulated results. Changing the condition set
// starts over from page 1; only LoadMore advances the page cursor.
type Session struct {
	searcher Searcher
	articles *store.Collection
	log      logging.Logger
	pageSize int

	mu         sync.Mutex
	conditions []api.Condition
	results    []store.Article
	page       int
	hasMore    bool
	total      int
	loading    bool
	// gen changes whenever the conditions are replaced or cleared; a
	// response fetched under an older gen is not applied to the results.
	gen uint64
}

type Option func(*Session)

func WithPageSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(s *Session) { s.log = logging.OrNop(l) }
}

func New(searcher Searcher, articles *store.Collection, opts ...Option) *Session {
	s := &Session{
		searcher: searcher,
		articles: articles,
		log:      logging.Nop(),
		pageSize: DefaultPageSize,
		page:     1,
		hasMore:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetConditions replaces the active conditions. An empty set resets the
// session without a request; otherwise the first page is fetched.
func (s *Session) SetConditions(ctx context.Context, conds []api.Condition) error {
	s.mu.Lock()
	s.conditions = append([]api.Condition(nil), conds...)
	s.gen++
	s.page = 1
	s.mu.Unlock()
	return s.FetchPage(ctx, conds, false)
}

// FetchPage requests one page for conds. When appending, the current page
// cursor is requested and results accumulate; otherwise page 1 replaces the
// results. A failed append keeps what was already loaded.
func (s *Session) FetchPage(ctx context.Context, conds []api.Condition, appendPage bool) error {
	if len(conds) == 0 {
		s.mu.Lock()
		s.gen++
		s.loading = false
		s.resetLocked()
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	s.loading = true
	page := 1
	if appendPage {
		page = s.page
	}
	gen := s.gen
	s.mu.Unlock()

	return s.fetch(ctx, conds, page, appendPage, gen)
}

// fetch requests one page and applies it unless the conditions changed
// while the request was out. Every received page is merged into the
// collection either way.
func (s *Session) fetch(ctx context.Context, conds []api.Condition, page int, appendPage bool, gen uint64) error {
	resp, err := s.searcher.FilterArticles(ctx, api.FilterRequest{
		Conditions: conds,
		Page:       page,
		Limit:      s.pageSize,
	})
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen {
			s.log.Debug("ignoring failure of superseded filter", "page", page, "err", err)
			return nil
		}
		s.loading = false
		s.log.Error("fetching filtered articles", "page", page, "append", appendPage, "err", err)
		if !appendPage {
			s.results = nil
		}
		return fmt.Errorf("fetching filtered articles: %w", err)
	}

	articles := resp.Articles
	if articles == nil {
		articles = []store.Article{}
	}

	// Keep the collection current so detail views see the same data.
	s.articles.Merge(articles...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		s.log.Debug("dropping page of superseded filter", "page", page, "count", len(articles))
		return nil
	}
	s.loading = false
	if appendPage {
		s.results = append(s.results, articles...)
	} else {
		s.results = append([]store.Article(nil), articles...)
		s.page = 1
	}
	s.hasMore = resp.HasMore
	s.total = resp.Total

	s.log.Debug("filtered page loaded", "page", page, "count", len(articles), "total", resp.Total, "has_more", resp.HasMore)
	return nil
}

// LoadMore fetches the next page of the active conditions. It does nothing
// while a request is in progress or when no pages remain.
func (s *Session) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.loading || !s.hasMore {
		s.mu.Unlock()
		return nil
	}
	if len(s.conditions) == 0 {
		s.mu.Unlock()
		return nil
	}
	s.page++
	page := s.page
	conds := append([]api.Condition(nil), s.conditions...)
	s.loading = true
	gen := s.gen
	s.mu.Unlock()

	return s.fetch(ctx, conds, page, true, gen)
}

// ClearAll drops the conditions and all loaded results.
func (s *Session) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conditions = nil
	s.gen++
	s.loading = false
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.results = []store.Article{}
	s.page = 1
	s.hasMore = true
	s.total = 0
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Conditions: append([]api.Condition(nil), s.conditions...),
		Results:    append([]store.Article{}, s.results...),
		Page:       s.page,
		HasMore:    s.hasMore,
		Total:      s.total,
		Loading:    s.loading,
	}
}

func (s *Session) Conditions() []api.Condition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.Condition(nil), s.conditions...)
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}
