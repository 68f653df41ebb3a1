package cache

import "time"

type Feed struct {
	ID        int64
	Name      string
	Category  string
	URL       string
	Type      string
	ImageMode bool
}

type Article struct {
	ID              int64
	FeedID          int64
	FeedName        string
	FeedCategory    string
	FeedType        string
	FeedImageMode   bool
	Title           string
	TranslatedTitle string
	Link            string
	ImageURL        string
	Summary         string
	Published       time.Time
	FetchedAt       time.Time
	IsRead          bool
	IsFavorite      bool
	IsHidden        bool
	IsReadLater     bool
}

type QueryOpts struct {
	Since         time.Time
	FeedIDs       []int64
	Search        string
	IncludeHidden bool
	Limit         int
}

// Flag names a boolean article column that can be toggled.
type Flag string

const (
	FlagRead      Flag = "is_read"
	FlagFavorite  Flag = "is_favorite"
	FlagHidden    Flag = "is_hidden"
	FlagReadLater Flag = "is_read_later"
)

func (f Flag) valid() bool {
	switch f {
	case FlagRead, FlagFavorite, FlagHidden, FlagReadLater:
		return true
	}
	return false
}
