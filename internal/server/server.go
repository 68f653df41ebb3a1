// Package server is a local development backend for feedview. It serves the
// article filter, settings and translation endpoints from a SQLite store.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/matheuskafuri/feedview/internal/ai"
	"github.com/matheuskafuri/feedview/internal/cache"
	"github.com/matheuskafuri/feedview/internal/logging"
)

// Setting keys.
const (
	SettingTranslationEnabled = "translation_enabled"
	SettingTargetLanguage     = "target_language"
	SettingShowHidden         = "show_hidden_articles"
)

const defaultLimit = 50

// maxLimit caps the page size a client may ask for.
const maxLimit = 500

// Store is the persistence used by the handlers.
type Store interface {
	GetArticles(opts cache.QueryOpts) ([]cache.Article, error)
	UpdateTranslation(id int64, title string) error
	SetFlag(id int64, flag cache.Flag, on bool) error
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

type Server struct {
	store      Store
	translator ai.Translator
	tracker    *ai.Tracker
	needsWork  func(text, targetLang string) bool
	log        logging.Logger
	mux        *http.ServeMux
}

type Option func(*Server)

// WithTranslator sets the provider used for titles. Once tracker reports
// its limit the provider is bypassed.
func WithTranslator(t ai.Translator, tracker *ai.Tracker) Option {
	return func(s *Server) {
		s.translator = t
		if tracker != nil {
			s.tracker = tracker
		}
	}
}

// WithLanguageCheck replaces the detector deciding whether a title needs
// translating.
func WithLanguageCheck(f func(text, targetLang string) bool) Option {
	return func(s *Server) { s.needsWork = f }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Server) { s.log = logging.OrNop(l) }
}

func New(store Store, opts ...Option) *Server {
	s := &Server{
		store:      store,
		translator: ai.Passthrough{},
		tracker:    ai.NewTracker(0),
		needsWork:  ai.ShouldTranslate,
		log:        logging.Nop(),
		mux:        http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/articles/filter", s.handleFilter)
	s.mux.HandleFunc("POST /api/articles/translate", s.handleTranslate)
	s.mux.HandleFunc("POST /api/articles/read", s.handleRead)
	s.mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	s.mux.HandleFunc("PUT /api/settings", s.handlePutSettings)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "took", time.Since(start))
}

// HTTPServer wraps the handler in an http.Server listening on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, cache.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
