package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type Cache struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

func Open(dbPath string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}

	c := &Cache{readDB: readDB, writeDB: writeDB}
	if err := c.init(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) init() error {
	if _, err := c.writeDB.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enabling wal: %w", err)
	}
	_, err := c.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS feeds (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL UNIQUE,
			category   TEXT NOT NULL DEFAULT '',
			url        TEXT NOT NULL,
			type       TEXT NOT NULL DEFAULT 'rss',
			image_mode INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS articles (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			feed_id          INTEGER NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
			title            TEXT NOT NULL,
			translated_title TEXT NOT NULL DEFAULT '',
			link             TEXT NOT NULL UNIQUE,
			image_url        TEXT NOT NULL DEFAULT '',
			summary          TEXT NOT NULL DEFAULT '',
			published        DATETIME NOT NULL,
			fetched_at       DATETIME NOT NULL,
			is_read          INTEGER NOT NULL DEFAULT 0,
			is_favorite      INTEGER NOT NULL DEFAULT 0,
			is_hidden        INTEGER NOT NULL DEFAULT 0,
			is_read_later    INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published DESC);
		CREATE INDEX IF NOT EXISTS idx_articles_feed ON articles(feed_id);

		CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	var errs []error
	if c.readDB != nil {
		errs = append(errs, c.readDB.Close())
	}
	if c.writeDB != nil {
		errs = append(errs, c.writeDB.Close())
	}
	return errors.Join(errs...)
}

// UpsertFeed inserts or updates a feed by name and returns its id.
func (c *Cache) UpsertFeed(f Feed) (int64, error) {
	var id int64
	err := c.writeDB.QueryRow(`
		INSERT INTO feeds (name, category, url, type, image_mode)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			category = excluded.category,
			url = excluded.url,
			type = excluded.type,
			image_mode = excluded.image_mode
		RETURNING id
	`, f.Name, f.Category, f.URL, f.Type, f.ImageMode).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting feed %s: %w", f.Name, err)
	}
	return id, nil
}

func (c *Cache) Feeds() ([]Feed, error) {
	rows, err := c.readDB.Query("SELECT id, name, category, url, type, image_mode FROM feeds ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		var f Feed
		if err := rows.Scan(&f.ID, &f.Name, &f.Category, &f.URL, &f.Type, &f.ImageMode); err != nil {
			return nil, fmt.Errorf("scanning feed: %w", err)
		}
		feeds = append(feeds, f)
	}
	return feeds, rows.Err()
}

// UpsertArticles inserts articles keyed by link. Existing rows keep their id,
// translation and flags.
func (c *Cache) UpsertArticles(articles []Article) error {
	tx, err := c.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO articles (feed_id, title, link, image_url, summary, published, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(link) DO UPDATE SET
			title = excluded.title,
			image_url = excluded.image_url,
			summary = excluded.summary,
			fetched_at = excluded.fetched_at,
			translated_title = CASE WHEN articles.title = excluded.title THEN articles.translated_title ELSE '' END
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range articles {
		_, err := stmt.Exec(a.FeedID, a.Title, a.Link, a.ImageURL, a.Summary, a.Published, a.FetchedAt)
		if err != nil {
			return fmt.Errorf("upserting article %s: %w", a.Link, err)
		}
	}

	return tx.Commit()
}

const articleColumns = `a.id, a.feed_id, f.name, f.category, f.type, f.image_mode,
	a.title, a.translated_title, a.link, a.image_url, a.summary, a.published, a.fetched_at,
	a.is_read, a.is_favorite, a.is_hidden, a.is_read_later`

func scanArticle(s interface{ Scan(...any) error }) (Article, error) {
	var a Article
	err := s.Scan(&a.ID, &a.FeedID, &a.FeedName, &a.FeedCategory, &a.FeedType, &a.FeedImageMode,
		&a.Title, &a.TranslatedTitle, &a.Link, &a.ImageURL, &a.Summary, &a.Published, &a.FetchedAt,
		&a.IsRead, &a.IsFavorite, &a.IsHidden, &a.IsReadLater)
	return a, err
}

func (c *Cache) GetArticles(opts QueryOpts) ([]Article, error) {
	var (
		where []string
		args  []any
	)

	if !opts.Since.IsZero() {
		where = append(where, "a.published >= ?")
		args = append(args, opts.Since)
	}

	if len(opts.FeedIDs) > 0 {
		placeholders := make([]string, len(opts.FeedIDs))
		for i, id := range opts.FeedIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		where = append(where, "a.feed_id IN ("+strings.Join(placeholders, ",")+")") //nolint:gosec
	}

	if opts.Search != "" {
		where = append(where, "(a.title LIKE ? OR a.summary LIKE ?)")
		term := "%" + opts.Search + "%"
		args = append(args, term, term)
	}

	if !opts.IncludeHidden {
		where = append(where, "a.is_hidden = 0")
	}

	query := "SELECT " + articleColumns + " FROM articles a JOIN feeds f ON f.id = a.feed_id"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.published DESC, a.id DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 50000
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := c.readDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func (c *Cache) GetArticle(id int64) (Article, error) {
	row := c.readDB.QueryRow("SELECT "+articleColumns+" FROM articles a JOIN feeds f ON f.id = a.feed_id WHERE a.id = ?", id)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Article{}, fmt.Errorf("article %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Article{}, fmt.Errorf("reading article %d: %w", id, err)
	}
	return a, nil
}

func (c *Cache) UpdateTranslation(id int64, title string) error {
	return c.updateArticle(id, "UPDATE articles SET translated_title = ? WHERE id = ?", title, id)
}

func (c *Cache) SetFlag(id int64, flag Flag, on bool) error {
	if !flag.valid() {
		return fmt.Errorf("unknown article flag %q", flag)
	}
	return c.updateArticle(id, "UPDATE articles SET "+string(flag)+" = ? WHERE id = ?", on, id) //nolint:gosec
}

func (c *Cache) updateArticle(id int64, query string, args ...any) error {
	res, err := c.writeDB.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("updating article %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("article %d: %w", id, ErrNotFound)
	}
	return nil
}

// ClearTranslations drops every stored translated title.
func (c *Cache) ClearTranslations() error {
	_, err := c.writeDB.Exec("UPDATE articles SET translated_title = ''")
	if err != nil {
		return fmt.Errorf("clearing translations: %w", err)
	}
	return nil
}

// Prune deletes articles published before now minus olderThan.
func (c *Cache) Prune(olderThan time.Duration) (int64, error) {
	res, err := c.writeDB.Exec("DELETE FROM articles WHERE published < ?", time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("pruning articles: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns the article count and database file size.
func (c *Cache) Stats(dbPath string) (int, int64, error) {
	var count int
	if err := c.readDB.QueryRow("SELECT COUNT(*) FROM articles").Scan(&count); err != nil {
		return 0, 0, fmt.Errorf("counting articles: %w", err)
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		return count, 0, fmt.Errorf("stat db: %w", err)
	}
	return count, info.Size(), nil
}

func (c *Cache) GetSetting(key string) (string, error) {
	var value string
	err := c.readDB.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading setting %s: %w", key, err)
	}
	return value, nil
}

func (c *Cache) SetSetting(key, value string) error {
	_, err := c.writeDB.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	return nil
}

// SetSettingDefault writes value only when key has no value yet.
func (c *Cache) SetSettingDefault(key, value string) error {
	_, err := c.writeDB.Exec("INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	return nil
}

func (c *Cache) NeedsRefresh(interval time.Duration) bool {
	var value string
	err := c.readDB.QueryRow("SELECT value FROM meta WHERE key = 'last_refresh'").Scan(&value)
	if err != nil {
		return true
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return true
	}
	return time.Since(t) > interval
}

func (c *Cache) SetLastRefresh() error {
	_, err := c.writeDB.Exec(`
		INSERT INTO meta (key, value) VALUES ('last_refresh', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, time.Now().Format(time.RFC3339))
	return err
}
