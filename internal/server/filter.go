package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/matheuskafuri/feedview/internal/api"
	"github.com/matheuskafuri/feedview/internal/cache"
	"github.com/matheuskafuri/feedview/internal/store"
)

// feedTypeRegular is the type code of plain RSS and Atom feeds.
const feedTypeRegular = "regular"

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var req api.FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	match, err := compileConditions(req.Conditions)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	showHidden, err := s.store.GetSetting(SettingShowHidden)
	if err != nil {
		storeError(w, err)
		return
	}
	all, err := s.store.GetArticles(cache.QueryOpts{
		IncludeHidden: showHidden == "true" || mentions(req.Conditions, api.FieldIsHidden),
	})
	if err != nil {
		storeError(w, err)
		return
	}

	var filtered []cache.Article
	for _, a := range all {
		if match(a) {
			filtered = append(filtered, a)
		}
	}

	total := len(filtered)
	// Pages past the end start at total without computing (page-1)*limit.
	offset := total
	if page-1 <= total/limit {
		offset = min((page-1)*limit, total)
	}
	end := min(offset+limit, total)

	out := make([]store.Article, 0, end-offset)
	for _, a := range filtered[offset:end] {
		out = append(out, toClient(a))
	}

	writeJSON(w, api.FilterResponse{
		Articles: out,
		HasMore:  end < total,
		Total:    total,
		Page:     page,
		Limit:    limit,
	})
}

func mentions(conds []api.Condition, field string) bool {
	return slices.ContainsFunc(conds, func(c api.Condition) bool { return c.Field == field })
}

func toClient(a cache.Article) store.Article {
	return store.Article{
		ID:              a.ID,
		FeedID:          a.FeedID,
		FeedTitle:       a.FeedName,
		FeedCategory:    a.FeedCategory,
		Title:           a.Title,
		TranslatedTitle: a.TranslatedTitle,
		URL:             a.Link,
		ImageURL:        a.ImageURL,
		Summary:         a.Summary,
		PublishedAt:     a.Published,
		IsRead:          a.IsRead,
		IsFavorite:      a.IsFavorite,
	}
}

type predicate func(a cache.Article) bool

// compileConditions folds the rows left to right: each row joins the result
// so far with its own logic, "and" when empty. An empty list matches all.
func compileConditions(conds []api.Condition) (predicate, error) {
	if len(conds) == 0 {
		return func(cache.Article) bool { return true }, nil
	}

	preds := make([]predicate, len(conds))
	for i, c := range conds {
		p, err := compileCondition(c)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i+1, err)
		}
		if c.Negate {
			inner := p
			p = func(a cache.Article) bool { return !inner(a) }
		}
		preds[i] = p
	}

	return func(a cache.Article) bool {
		result := preds[0](a)
		for i := 1; i < len(preds); i++ {
			if strings.EqualFold(conds[i].Logic, "or") {
				result = result || preds[i](a)
			} else {
				result = result && preds[i](a)
			}
		}
		return result
	}, nil
}

func compileCondition(c api.Condition) (predicate, error) {
	switch c.Field {
	case api.FieldFeedName:
		return inValues(c, func(a cache.Article) []string { return []string{a.FeedName} }), nil
	case api.FieldFeedCategory:
		return inValues(c, func(a cache.Article) []string { return []string{a.FeedCategory} }), nil
	case api.FieldFeedType:
		return inValues(c, func(a cache.Article) []string { return []string{feedTypeRegular, a.FeedType} }), nil
	case api.FieldArticleTitle:
		return titleMatcher(c)
	case api.FieldPublishedAfter, api.FieldPublishedBefore:
		day, err := time.ParseInLocation("2006-01-02", c.Value, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q", c.Value)
		}
		if c.Field == api.FieldPublishedAfter {
			return func(a cache.Article) bool { return !a.Published.Before(day) }, nil
		}
		return func(a cache.Article) bool { return a.Published.Before(day) }, nil
	case api.FieldIsRead:
		return boolMatcher(c, func(a cache.Article) bool { return a.IsRead })
	case api.FieldIsFavorite:
		return boolMatcher(c, func(a cache.Article) bool { return a.IsFavorite })
	case api.FieldIsHidden:
		return boolMatcher(c, func(a cache.Article) bool { return a.IsHidden })
	case api.FieldIsReadLater:
		return boolMatcher(c, func(a cache.Article) bool { return a.IsReadLater })
	case api.FieldIsImageModeFeed:
		return boolMatcher(c, func(a cache.Article) bool { return a.FeedImageMode })
	default:
		return nil, fmt.Errorf("unknown field %q", c.Field)
	}
}

// inValues matches when any of the article's values is among the condition
// values. A single Value is accepted in place of Values.
func inValues(c api.Condition, get func(cache.Article) []string) predicate {
	want := c.Values
	if len(want) == 0 && c.Value != "" {
		want = []string{c.Value}
	}
	return func(a cache.Article) bool {
		for _, have := range get(a) {
			for _, w := range want {
				if strings.EqualFold(have, w) {
					return true
				}
			}
		}
		return false
	}
}

func titleMatcher(c api.Condition) (predicate, error) {
	switch c.Operator {
	case api.OpExact:
		return func(a cache.Article) bool { return strings.EqualFold(a.Title, c.Value) }, nil
	case api.OpRegex:
		re, err := regexp.Compile("(?i)" + c.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid regex %q: %w", c.Value, err)
		}
		return func(a cache.Article) bool { return re.MatchString(a.Title) }, nil
	case api.OpContains, "":
		needle := strings.ToLower(c.Value)
		return func(a cache.Article) bool { return strings.Contains(strings.ToLower(a.Title), needle) }, nil
	default:
		return nil, fmt.Errorf("unknown operator %q", c.Operator)
	}
}

func boolMatcher(c api.Condition, get func(cache.Article) bool) (predicate, error) {
	var want bool
	switch c.Value {
	case "true":
		want = true
	case "false":
	default:
		return nil, fmt.Errorf("invalid boolean %q", c.Value)
	}
	return func(a cache.Article) bool { return get(a) == want }, nil
}
