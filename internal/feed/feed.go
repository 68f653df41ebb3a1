package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/matheuskafuri/feedview/internal/cache"
	"github.com/matheuskafuri/feedview/internal/config"
	"github.com/matheuskafuri/feedview/internal/logging"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentFetches bounds parallel feed downloads.
const maxConcurrentFetches = 4

type Fetcher interface {
	Fetch(ctx context.Context, feed config.Feed) ([]cache.Article, error)
}

type RSSFetcher struct {
	parser *gofeed.Parser
	maxAge time.Duration
}

// NewRSSFetcher returns a fetcher that drops items older than maxAge.
// A zero maxAge keeps everything.
func NewRSSFetcher(maxAge time.Duration) *RSSFetcher {
	p := gofeed.NewParser()
	p.UserAgent = "feedview"
	return &RSSFetcher{parser: p, maxAge: maxAge}
}

func (f *RSSFetcher) Fetch(ctx context.Context, src config.Feed) ([]cache.Article, error) {
	feed, err := f.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", src.Name, err)
	}

	now := time.Now()
	conv := md.NewConverter("", true, nil)
	articles := make([]cache.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		pub := now
		if item.PublishedParsed != nil {
			pub = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			pub = *item.UpdatedParsed
		}

		if f.maxAge > 0 && pub.Before(now.Add(-f.maxAge)) {
			continue
		}

		desc := item.Description
		if desc == "" {
			desc = item.Content
		}
		desc = truncate(summaryText(conv, desc), 300)

		articles = append(articles, cache.Article{
			Title:     strings.TrimSpace(item.Title),
			Link:      item.Link,
			ImageURL:  imageURL(item),
			Summary:   desc,
			Published: pub,
			FetchedAt: now,
		})
	}
	return articles, nil
}

func imageURL(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// summaryText renders an HTML description as single-line markdown, falling
// back to the bare text when it does not parse.
func summaryText(conv *md.Converter, html string) string {
	out, err := conv.ConvertString(html)
	if err != nil {
		return stripHTML(html)
	}
	return strings.Join(strings.Fields(out), " ")
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Store is the subset of the cache used by Ingest.
type Store interface {
	UpsertFeed(f cache.Feed) (int64, error)
	UpsertArticles(articles []cache.Article) error
}

type Result struct {
	Articles int
	Errors   []error
}

// Ingest fetches every feed and stores the articles. A failing feed is
// recorded in Result.Errors and does not stop the others; only storage
// errors abort.
func Ingest(ctx context.Context, store Store, fetcher Fetcher, feeds []config.Feed, log logging.Logger) (Result, error) {
	log = logging.OrNop(log)

	var (
		mu     sync.Mutex
		result Result
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	for _, src := range feeds {
		g.Go(func() error {
			feedID, err := store.UpsertFeed(cache.Feed{
				Name:      src.Name,
				Category:  src.Category,
				URL:       src.URL,
				Type:      src.Type,
				ImageMode: src.ImageMode,
			})
			if err != nil {
				return err
			}

			articles, err := fetcher.Fetch(ctx, src)
			if err != nil {
				log.Warn("feed fetch failed", "feed", src.Name, "err", err)
				mu.Lock()
				result.Errors = append(result.Errors, err)
				mu.Unlock()
				return nil
			}
			for i := range articles {
				articles[i].FeedID = feedID
			}
			if err := store.UpsertArticles(articles); err != nil {
				return fmt.Errorf("storing %s: %w", src.Name, err)
			}
			log.Debug("feed fetched", "feed", src.Name, "articles", len(articles))

			mu.Lock()
			result.Articles += len(articles)
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	return result, err
}
