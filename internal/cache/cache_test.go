package cache

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *Cache {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seed inserts two feeds and three articles and returns the feed ids.
func seed(t *testing.T, db *Cache) (cloudflare, github int64) {
	t.Helper()
	var err error
	cloudflare, err = db.UpsertFeed(Feed{Name: "Cloudflare", Category: "Infrastructure", URL: "https://blog.cloudflare.com/rss/", Type: "rss"})
	if err != nil {
		t.Fatalf("upsert feed: %v", err)
	}
	github, err = db.UpsertFeed(Feed{Name: "GitHub", Category: "Engineering", URL: "https://github.blog/feed/", Type: "atom", ImageMode: true})
	if err != nil {
		t.Fatalf("upsert feed: %v", err)
	}

	now := time.Now()
	articles := []Article{
		{FeedID: cloudflare, Title: "Post A", Link: "https://a.com", Summary: "Desc A", Published: now.Add(-1 * time.Hour), FetchedAt: now},
		{FeedID: github, Title: "Post B", Link: "https://b.com", Summary: "Desc B", ImageURL: "https://b.com/b.png", Published: now.Add(-2 * time.Hour), FetchedAt: now},
		{FeedID: cloudflare, Title: "Post C", Link: "https://c.com", Summary: "Desc C about search", Published: now.Add(-48 * time.Hour), FetchedAt: now},
	}
	if err := db.UpsertArticles(articles); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	return cloudflare, github
}

func TestUpsertAndGet(t *testing.T) {
	db := testDB(t)
	seed(t, db)

	got, err := db.GetArticles(QueryOpts{})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(got))
	}
	// Should be ordered by published DESC
	if got[0].Title != "Post A" {
		t.Errorf("expected newest first, got %s", got[0].Title)
	}
	if got[1].FeedName != "GitHub" || got[1].FeedType != "atom" || !got[1].FeedImageMode {
		t.Errorf("expected feed columns joined, got %+v", got[1])
	}
}

func TestUpsertKeepsIDAndTranslation(t *testing.T) {
	db := testDB(t)
	cf, _ := seed(t, db)

	before, _ := db.GetArticles(QueryOpts{Search: "Desc A"})
	if len(before) != 1 {
		t.Fatalf("expected 1 article, got %d", len(before))
	}
	id := before[0].ID
	if err := db.UpdateTranslation(id, "Beitrag A"); err != nil {
		t.Fatalf("UpdateTranslation: %v", err)
	}

	// Same title, new summary: translation survives.
	now := time.Now()
	err := db.UpsertArticles([]Article{{FeedID: cf, Title: "Post A", Link: "https://a.com", Summary: "New", Published: now.Add(-1 * time.Hour), FetchedAt: now}})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, err := db.GetArticle(id)
	if err != nil {
		t.Fatalf("GetArticle: %v", err)
	}
	if got.TranslatedTitle != "Beitrag A" || got.Summary != "New" {
		t.Errorf("unexpected article after upsert: %+v", got)
	}

	// Changed title: stale translation is dropped.
	err = db.UpsertArticles([]Article{{FeedID: cf, Title: "Updated Post A", Link: "https://a.com", Published: now, FetchedAt: now}})
	if err != nil {
		t.Fatalf("third upsert: %v", err)
	}
	got, _ = db.GetArticle(id)
	if got.Title != "Updated Post A" || got.TranslatedTitle != "" {
		t.Errorf("expected updated title without translation, got %+v", got)
	}
}

func TestQuerySince(t *testing.T) {
	db := testDB(t)
	seed(t, db)

	got, err := db.GetArticles(QueryOpts{Since: time.Now().Add(-3 * time.Hour)})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 articles within 3h, got %d", len(got))
	}
}

func TestQueryFeeds(t *testing.T) {
	db := testDB(t)
	cf, _ := seed(t, db)

	got, err := db.GetArticles(QueryOpts{FeedIDs: []int64{cf}})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 Cloudflare articles, got %d", len(got))
	}
	for _, a := range got {
		if a.FeedName != "Cloudflare" {
			t.Errorf("expected feed Cloudflare, got %s", a.FeedName)
		}
	}
}

func TestQuerySearch(t *testing.T) {
	db := testDB(t)
	seed(t, db)

	got, err := db.GetArticles(QueryOpts{Search: "search"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 article matching 'search', got %d", len(got))
	}
	if got[0].Title != "Post C" {
		t.Errorf("expected Post C, got %s", got[0].Title)
	}
}

func TestQueryLimit(t *testing.T) {
	db := testDB(t)
	seed(t, db)

	got, err := db.GetArticles(QueryOpts{Limit: 1})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 article with limit, got %d", len(got))
	}
}

func TestHiddenArticles(t *testing.T) {
	db := testDB(t)
	seed(t, db)

	all, _ := db.GetArticles(QueryOpts{})
	if err := db.SetFlag(all[0].ID, FlagHidden, true); err != nil {
		t.Fatalf("SetFlag: %v", err)
	}

	visible, _ := db.GetArticles(QueryOpts{})
	if len(visible) != 2 {
		t.Errorf("expected hidden article excluded, got %d", len(visible))
	}
	withHidden, _ := db.GetArticles(QueryOpts{IncludeHidden: true})
	if len(withHidden) != 3 {
		t.Errorf("expected 3 articles including hidden, got %d", len(withHidden))
	}
}

func TestSetFlag(t *testing.T) {
	db := testDB(t)
	seed(t, db)
	all, _ := db.GetArticles(QueryOpts{})
	id := all[1].ID

	if err := db.SetFlag(id, FlagFavorite, true); err != nil {
		t.Fatalf("SetFlag: %v", err)
	}
	if err := db.SetFlag(id, FlagRead, true); err != nil {
		t.Fatalf("SetFlag: %v", err)
	}
	got, _ := db.GetArticle(id)
	if !got.IsFavorite || !got.IsRead || got.IsReadLater {
		t.Errorf("unexpected flags: %+v", got)
	}

	if err := db.SetFlag(id, Flag("title"), true); err == nil {
		t.Error("expected error for unknown flag")
	}
	if err := db.SetFlag(9999, FlagRead, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetArticleNotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetArticle(42); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := db.UpdateTranslation(42, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClearTranslations(t *testing.T) {
	db := testDB(t)
	seed(t, db)
	all, _ := db.GetArticles(QueryOpts{})
	for _, a := range all {
		if err := db.UpdateTranslation(a.ID, "t"); err != nil {
			t.Fatalf("UpdateTranslation: %v", err)
		}
	}
	if err := db.ClearTranslations(); err != nil {
		t.Fatalf("ClearTranslations: %v", err)
	}
	all, _ = db.GetArticles(QueryOpts{})
	for _, a := range all {
		if a.TranslatedTitle != "" {
			t.Errorf("expected translation cleared for %d", a.ID)
		}
	}
}

func TestFeedsUpsertByName(t *testing.T) {
	db := testDB(t)
	id1, err := db.UpsertFeed(Feed{Name: "Go Blog", URL: "https://go.dev/blog/feed.atom", Type: "atom"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	id2, err := db.UpsertFeed(Feed{Name: "Go Blog", Category: "Languages", URL: "https://go.dev/blog/feed.atom", Type: "atom"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if id1 != id2 {
		t.Errorf("expected stable feed id, got %d and %d", id1, id2)
	}
	feeds, err := db.Feeds()
	if err != nil {
		t.Fatalf("Feeds: %v", err)
	}
	if len(feeds) != 1 || feeds[0].Category != "Languages" {
		t.Errorf("unexpected feeds: %+v", feeds)
	}
}

func TestSettings(t *testing.T) {
	db := testDB(t)

	v, err := db.GetSetting("target_language")
	if err != nil || v != "" {
		t.Fatalf("expected empty setting, got %q, %v", v, err)
	}
	if err := db.SetSettingDefault("target_language", "en"); err != nil {
		t.Fatalf("SetSettingDefault: %v", err)
	}
	if err := db.SetSetting("target_language", "de"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := db.SetSettingDefault("target_language", "fr"); err != nil {
		t.Fatalf("SetSettingDefault: %v", err)
	}
	v, _ = db.GetSetting("target_language")
	if v != "de" {
		t.Errorf("expected de, got %q", v)
	}
}

func TestNeedsRefresh(t *testing.T) {
	db := testDB(t)

	// No last_refresh set, should need refresh
	if !db.NeedsRefresh(1 * time.Hour) {
		t.Error("expected NeedsRefresh=true when no last_refresh set")
	}

	if err := db.SetLastRefresh(); err != nil {
		t.Fatalf("SetLastRefresh: %v", err)
	}

	if db.NeedsRefresh(1 * time.Hour) {
		t.Error("expected NeedsRefresh=false right after SetLastRefresh")
	}

	if !db.NeedsRefresh(0) {
		t.Error("expected NeedsRefresh=true with zero interval")
	}
}

func TestEmptyDB(t *testing.T) {
	db := testDB(t)

	got, err := db.GetArticles(QueryOpts{})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected 0 articles in empty db, got %d", len(got))
	}
}

func TestPruneDeletesOldArticles(t *testing.T) {
	db := testDB(t)
	seed(t, db)

	// Post C is 48h old. Prune anything older than 24h.
	deleted, err := db.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 pruned, got %d", deleted)
	}

	got, err := db.GetArticles(QueryOpts{})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 remaining articles, got %d", len(got))
	}
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	seed(t, db)

	count, size, err := db.Stats(dbPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}
	if size == 0 {
		t.Error("expected non-zero db size")
	}
}
