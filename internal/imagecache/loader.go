package imagecache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/matheuskafuri/feedview/internal/logging"
)

// Loader probes image URLs over HTTP and records the outcome in a Cache.
type Loader struct {
	cache  *Cache
	client *http.Client
	log    logging.Logger
}

func NewLoader(cache *Cache, timeout time.Duration, log logging.Logger) *Loader {
	return &Loader{
		cache:  cache,
		client: &http.Client{Timeout: timeout},
		log:    logging.OrNop(log),
	}
}

// Load probes url once. It returns the URL to display and the resulting
// state. A URL that already loaded or failed is not probed again unless
// force is set.
func (l *Loader) Load(ctx context.Context, url string, force bool) (string, LoadState) {
	if url == "" {
		return "", LoadState{Status: StatusError}
	}
	if st, ok := l.cache.LoadState(url); ok && !force && st.Status != StatusLoading {
		return l.cache.URL(url), st
	}

	l.cache.MarkLoading(url)
	if err := l.probe(ctx, url); err != nil {
		l.log.Debug("image load failed", "url", url, "err", err)
		l.cache.HandleLoadError(url)
	} else {
		l.cache.MarkLoaded(url)
	}
	st, _ := l.cache.LoadState(url)
	return l.cache.URL(url), st
}

func (l *Loader) probe(ctx context.Context, url string) error {
	code, err := l.request(ctx, http.MethodHead, url)
	if err != nil {
		return err
	}
	if code == http.StatusMethodNotAllowed {
		code, err = l.request(ctx, http.MethodGet, url)
		if err != nil {
			return err
		}
	}
	if code < 200 || code > 299 {
		return fmt.Errorf("unexpected status %d", code)
	}
	return nil
}

func (l *Loader) request(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "feedview")
	resp, err := l.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, nil
}
