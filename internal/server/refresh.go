package server

import (
	"context"
	"fmt"
	"time"

	"github.com/matheuskafuri/feedview/internal/cache"
	"github.com/matheuskafuri/feedview/internal/config"
	"github.com/matheuskafuri/feedview/internal/feed"
	"github.com/matheuskafuri/feedview/internal/logging"
)

// RefreshStore is the persistence used by the Refresher.
type RefreshStore interface {
	feed.Store
	Prune(olderThan time.Duration) (int64, error)
	NeedsRefresh(interval time.Duration) bool
	SetLastRefresh() error
}

// Refresher periodically ingests the configured feeds and prunes articles
// past the retention window.
type Refresher struct {
	store     RefreshStore
	fetcher   feed.Fetcher
	feeds     []config.Feed
	interval  time.Duration
	retention time.Duration
	log       logging.Logger
}

func NewRefresher(store RefreshStore, fetcher feed.Fetcher, feeds []config.Feed, interval, retention time.Duration, log logging.Logger) *Refresher {
	return &Refresher{
		store:     store,
		fetcher:   fetcher,
		feeds:     feeds,
		interval:  interval,
		retention: retention,
		log:       logging.OrNop(log),
	}
}

// Run refreshes when the last refresh is older than the interval, then on
// every tick until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	if r.store.NeedsRefresh(r.interval) {
		if err := r.Refresh(ctx); err != nil {
			r.log.Error("refresh failed", "err", err)
		}
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.log.Error("refresh failed", "err", err)
			}
		}
	}
}

func (r *Refresher) Refresh(ctx context.Context) error {
	start := time.Now()
	res, err := feed.Ingest(ctx, r.store, r.fetcher, r.feeds, r.log)
	if err != nil {
		return fmt.Errorf("ingesting feeds: %w", err)
	}
	for _, ferr := range res.Errors {
		r.log.Warn("feed skipped", "err", ferr)
	}

	pruned, err := r.store.Prune(r.retention)
	if err != nil {
		return err
	}
	if err := r.store.SetLastRefresh(); err != nil {
		return fmt.Errorf("recording refresh: %w", err)
	}
	r.log.Info("feeds refreshed", "articles", res.Articles, "failed", len(res.Errors), "pruned", pruned, "took", time.Since(start))
	return nil
}

var _ RefreshStore = (*cache.Cache)(nil)
var _ Store = (*cache.Cache)(nil)
