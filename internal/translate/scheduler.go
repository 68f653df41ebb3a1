// Package translate translates article titles as they scroll into view.
//
// The Scheduler owns a single visibility observer and a set of article ids
// with a translation request outstanding. An id is in flight from just
// before its request starts until the request settles, whatever the outcome,
// so each article has at most one request outstanding no matter how often it
// re-enters the viewport.
package translate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/matheuskafuri/feedview/internal/api"
	"github.com/matheuskafuri/feedview/internal/logging"
	"github.com/matheuskafuri/feedview/internal/store"
	"github.com/matheuskafuri/feedview/internal/toast"
	"github.com/matheuskafuri/feedview/internal/visibility"
)

const (
	DefaultTargetLang = "en"
	// DefaultRescanDelay is how long OnSettingsChanged waits before
	// observing the rendered elements again.
	DefaultRescanDelay = 100 * time.Millisecond
)

// DefaultObserverOptions matches a 10% visibility threshold with a small
// look-ahead margin.
var DefaultObserverOptions = visibility.Options{Threshold: 0.1, Margin: 3}

// Client is the backend surface the scheduler needs.
type Client interface {
	Settings(ctx context.Context) (*api.Settings, error)
	TranslateArticle(ctx context.Context, req api.TranslateRequest) (*api.TranslateResponse, error)
}

// Settings is the process-wide translation configuration.
type Settings struct {
	Enabled    bool
	TargetLang string
}

// AfterFunc runs f after d, like time.AfterFunc.
type AfterFunc func(d time.Duration, f func())

type Scheduler struct {
	client   Client
	articles *store.Collection
	notifier toast.Notifier
	log      logging.Logger

	observerOpts visibility.Options
	after        AfterFunc
	rescanDelay  time.Duration

	// ctx outlives settings changes so an issued request is never cut off
	// by disabling translation; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	settings Settings
	source   visibility.Source
	observer visibility.Observer
	inFlight map[int64]struct{}
}

type Option func(*Scheduler)

func WithLogger(l logging.Logger) Option {
	return func(s *Scheduler) { s.log = logging.OrNop(l) }
}

func WithObserverOptions(o visibility.Options) Option {
	return func(s *Scheduler) { s.observerOpts = o }
}

// WithAfterFunc replaces time.AfterFunc for deferred observation passes.
func WithAfterFunc(f AfterFunc) Option {
	return func(s *Scheduler) { s.after = f }
}

func WithRescanDelay(d time.Duration) Option {
	return func(s *Scheduler) { s.rescanDelay = d }
}

// WithSettings sets the initial settings before LoadSettings is called.
func WithSettings(st Settings) Option {
	return func(s *Scheduler) {
		if st.TargetLang == "" {
			st.TargetLang = DefaultTargetLang
		}
		s.settings = st
	}
}

func New(client Client, articles *store.Collection, notifier toast.Notifier, opts ...Option) *Scheduler {
	if notifier == nil {
		notifier = toast.Nop
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		client:       client,
		articles:     articles,
		notifier:     notifier,
		log:          logging.Nop(),
		observerOpts: DefaultObserverOptions,
		after:        func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		rescanDelay:  DefaultRescanDelay,
		ctx:          ctx,
		cancel:       cancel,
		settings:     Settings{TargetLang: DefaultTargetLang},
		inFlight:     make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadSettings reads the translation settings from the backend. On failure
// the previous settings stay in effect.
func (s *Scheduler) LoadSettings(ctx context.Context) error {
	resp, err := s.client.Settings(ctx)
	if err != nil {
		s.log.Error("loading translation settings", "err", err)
		return fmt.Errorf("loading translation settings: %w", err)
	}
	lang := resp.TargetLanguage
	if lang == "" {
		lang = DefaultTargetLang
	}
	s.mu.Lock()
	s.settings = Settings{Enabled: resp.TranslationEnabled == "true", TargetLang: lang}
	s.mu.Unlock()
	s.log.Debug("translation settings loaded", "enabled", resp.TranslationEnabled, "target", lang)
	return nil
}

func (s *Scheduler) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Attach replaces the current observer with one on src. When translation is
// enabled, every element src has rendered is observed once the current
// render pass has settled.
func (s *Scheduler) Attach(src visibility.Source) {
	s.mu.Lock()
	if s.observer != nil {
		s.observer.Disconnect()
	}
	s.source = src
	s.observer = src.NewObserver(s.observerOpts, s.onVisible)
	enabled := s.settings.Enabled
	s.mu.Unlock()

	if enabled {
		s.after(0, s.observeCandidates)
	}
}

// ObserveElement observes one rendered element if translation is enabled.
func (s *Scheduler) ObserveElement(id int64) {
	s.mu.Lock()
	obs := s.observer
	enabled := s.settings.Enabled
	s.mu.Unlock()
	if obs != nil && enabled {
		obs.Observe(id)
	}
}

// OnSettingsChanged applies new settings. Disabling tears the observer down;
// enabling restores it on the last attached source and, after the rescan
// delay, observes every rendered element. Requests already issued are left
// to complete.
func (s *Scheduler) OnSettingsChanged(enabled bool, targetLang string) {
	if targetLang == "" {
		targetLang = DefaultTargetLang
	}
	s.mu.Lock()
	s.settings = Settings{Enabled: enabled, TargetLang: targetLang}
	if !enabled {
		if s.observer != nil {
			s.observer.Disconnect()
			s.observer = nil
		}
		s.mu.Unlock()
		return
	}
	if s.observer == nil && s.source != nil {
		s.observer = s.source.NewObserver(s.observerOpts, s.onVisible)
	}
	rescan := s.observer != nil
	s.mu.Unlock()

	if rescan {
		s.after(s.rescanDelay, s.observeCandidates)
	}
}

// Cleanup disconnects and drops the observer and forgets the source.
func (s *Scheduler) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.observer != nil {
		s.observer.Disconnect()
		s.observer = nil
	}
	s.source = nil
}

// observeCandidates observes every element the source has rendered using
// whichever observer is current when it runs.
func (s *Scheduler) observeCandidates() {
	s.mu.Lock()
	obs, src := s.observer, s.source
	s.mu.Unlock()
	if obs == nil || src == nil {
		return
	}
	for _, id := range src.Candidates() {
		obs.Observe(id)
	}
}

func (s *Scheduler) onVisible(id int64) {
	if s.InFlight(id) {
		return
	}
	a, ok := s.articles.Get(id)
	if !ok || a.TranslatedTitle != "" {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.translate(s.ctx, a, true)
	}()
}

// Translate requests a translation of a's title and writes it back into the
// collection. It returns nil without a request if a is already in flight.
// Failures are reported through the notifier as well as returned.
func (s *Scheduler) Translate(ctx context.Context, a store.Article) error {
	return s.translate(ctx, a, false)
}

// translate does the work of Translate. With onlyMissing set it also skips
// articles whose translation landed after the visibility check.
func (s *Scheduler) translate(ctx context.Context, a store.Article, onlyMissing bool) error {
	s.mu.Lock()
	if _, busy := s.inFlight[a.ID]; busy {
		s.mu.Unlock()
		return nil
	}
	s.inFlight[a.ID] = struct{}{}
	lang := s.settings.TargetLang
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inFlight, a.ID)
		s.mu.Unlock()
	}()

	if onlyMissing {
		if cur, ok := s.articles.Get(a.ID); !ok || cur.TranslatedTitle != "" {
			return nil
		}
	}

	log := s.log.With("article_id", a.ID)
	log.Debug("translation request", "title", a.Title, "target", lang)

	resp, err := s.client.TranslateArticle(ctx, api.TranslateRequest{
		ArticleID:      a.ID,
		Title:          a.Title,
		TargetLanguage: lang,
	})
	if err != nil {
		log.Error("translating article", "err", err)
		if api.IsStatus(err) {
			s.notifier.Show(toast.KeyErrorTranslatingTitle, toast.Error)
		} else {
			s.notifier.Show(toast.KeyErrorTranslating, toast.Error)
		}
		return fmt.Errorf("translating article %d: %w", a.ID, err)
	}

	log.Debug("translation response", "translated", resp.TranslatedTitle, "limit_reached", resp.LimitReached, "skipped", resp.Skipped)
	s.articles.SetTranslatedTitle(a.ID, resp.TranslatedTitle)

	if resp.LimitReached {
		s.notifier.Show(toast.KeyAILimitReached, toast.Warning)
	}
	return nil
}

// InFlight reports whether a translation for id is outstanding.
func (s *Scheduler) InFlight(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[id]
	return ok
}

// InFlightCount returns the number of outstanding translations.
func (s *Scheduler) InFlightCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

// Wait blocks until every visibility-triggered translation has settled.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Close tears down observation, cancels outstanding requests and waits for
// them to settle.
func (s *Scheduler) Close() {
	s.Cleanup()
	s.cancel()
	s.wg.Wait()
}
