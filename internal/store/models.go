package store

import "time"

// Article is the client-side view of a backend article. ID is its identity.
type Article struct {
	ID              int64     `json:"id"`
	FeedID          int64     `json:"feed_id"`
	FeedTitle       string    `json:"feed_title"`
	FeedCategory    string    `json:"feed_category,omitempty"`
	Title           string    `json:"title"`
	TranslatedTitle string    `json:"translated_title,omitempty"`
	URL             string    `json:"url"`
	ImageURL        string    `json:"image_url,omitempty"`
	Summary         string    `json:"summary,omitempty"`
	PublishedAt     time.Time `json:"published_at"`
	IsRead          bool      `json:"is_read"`
	IsFavorite      bool      `json:"is_favorite"`
}

// DisplayTitle returns the translated title when one is known.
func (a Article) DisplayTitle() string {
	if a.TranslatedTitle != "" {
		return a.TranslatedTitle
	}
	return a.Title
}

// ChangeKind describes how a collection entry changed.
type ChangeKind int

const (
	ChangeMerged ChangeKind = iota
	ChangeTranslated
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeMerged:
		return "merged"
	case ChangeTranslated:
		return "translated"
	default:
		return "unknown"
	}
}

// Change is delivered to subscribers after a write.
type Change struct {
	ID   int64
	Kind ChangeKind
}
