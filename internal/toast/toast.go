// Package toast is the user-facing notification surface. Components report
// outcomes by message key and severity; the UI subscribes and renders them.
package toast

import (
	"sync"
	"time"
)

type Severity string

const (
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// Message keys shown to the user.
const (
	KeyAILimitReached        = "aiLimitReached"
	KeyErrorTranslatingTitle = "errorTranslatingTitle"
	KeyErrorTranslating      = "errorTranslating"
	KeyFilterFailed          = "filterFailed"
	KeyImageFailed           = "imageFailed"
	KeyLinkOpenFailed        = "linkOpenFailed"
	KeyTranslationEnabled    = "translationEnabled"
	KeyTranslationDisabled   = "translationDisabled"
)

var messages = map[string]string{
	KeyAILimitReached:        "AI usage limit reached, using fallback translation",
	KeyErrorTranslatingTitle: "Could not translate title",
	KeyErrorTranslating:      "Translation failed",
	KeyFilterFailed:          "Could not load filtered articles",
	KeyImageFailed:           "Image unavailable",
	KeyLinkOpenFailed:        "Could not open link",
	KeyTranslationEnabled:    "Title translation on",
	KeyTranslationDisabled:   "Title translation off",
}

// Message resolves a key to display text, falling back to the key itself.
func Message(key string) string {
	if m, ok := messages[key]; ok {
		return m
	}
	return key
}

type Toast struct {
	Key      string
	Severity Severity
	Message  string
	At       time.Time
}

// Notifier shows a toast for a message key.
type Notifier interface {
	Show(key string, severity Severity)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(key string, severity Severity)

func (f NotifierFunc) Show(key string, severity Severity) { f(key, severity) }

// Nop discards every toast.
var Nop Notifier = NotifierFunc(func(string, Severity) {})

const busBuffer = 16

// Bus fans toasts out to subscribers. A subscriber that falls behind misses
// toasts instead of blocking the sender.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Toast
	nextID int
	now    func() time.Time
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Toast), now: time.Now}
}

func (b *Bus) Show(key string, severity Severity) {
	t := Toast{Key: key, Severity: severity, Message: Message(key), At: b.now()}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- t:
		default:
		}
	}
}

func (b *Bus) Subscribe() (<-chan Toast, func()) {
	ch := make(chan Toast, busBuffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Recorder keeps every toast it is shown. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *Recorder) Show(key string, severity Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, Toast{Key: key, Severity: severity, Message: Message(key)})
}

func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}
