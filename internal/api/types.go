package api

import "github.com/matheuskafuri/feedview/internal/store"

// Condition is one row of an article filter.
type Condition struct {
	ID       int64    `json:"id,omitempty"`
	Logic    string   `json:"logic,omitempty"` // "and", "or", or empty for the first row
	Negate   bool     `json:"negate"`
	Field    string   `json:"field"`
	Operator string   `json:"operator,omitempty"`
	Value    string   `json:"value"`
	Values   []string `json:"values"`
}

// Condition fields understood by the backend.
const (
	FieldFeedName        = "feed_name"
	FieldFeedCategory    = "feed_category"
	FieldArticleTitle    = "article_title"
	FieldFeedType        = "feed_type"
	FieldIsImageModeFeed = "is_image_mode_feed"
	FieldPublishedAfter  = "published_after"
	FieldPublishedBefore = "published_before"
	FieldIsRead          = "is_read"
	FieldIsFavorite      = "is_favorite"
	FieldIsHidden        = "is_hidden"
	FieldIsReadLater     = "is_read_later"
)

// Title operators.
const (
	OpContains = "contains"
	OpExact    = "exact"
	OpRegex    = "regex"
)

type FilterRequest struct {
	Conditions []Condition `json:"conditions"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
}

type FilterResponse struct {
	Articles []store.Article `json:"articles"`
	HasMore  bool            `json:"has_more"`
	Total    int             `json:"total"`
	Page     int             `json:"page,omitempty"`
	Limit    int             `json:"limit,omitempty"`
}

// Settings is the subset of backend settings the client reads. Values are
// strings on the wire.
type Settings struct {
	TranslationEnabled string `json:"translation_enabled"`
	TargetLanguage     string `json:"target_language"`
}

type TranslateRequest struct {
	ArticleID      int64  `json:"article_id"`
	Title          string `json:"title"`
	TargetLanguage string `json:"target_language"`
}

type TranslateResponse struct {
	TranslatedTitle string `json:"translated_title"`
	LimitReached    bool   `json:"limit_reached,omitempty"`
	Skipped         bool   `json:"skipped,omitempty"`
}

type ReadRequest struct {
	ArticleID int64 `json:"article_id"`
	Read      bool  `json:"read"`
}
