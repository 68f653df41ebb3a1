package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleArticles() []Article {
	now := time.Now()
	return []Article{
		{ID: 1, FeedID: 10, FeedTitle: "Go Blog", Title: "Range over func", URL: "https://a.com", PublishedAt: now.Add(-time.Hour)},
		{ID: 2, FeedID: 11, FeedTitle: "Cloudflare", Title: "DNS in Rust", URL: "https://b.com", PublishedAt: now.Add(-2 * time.Hour)},
		{ID: 3, FeedID: 10, FeedTitle: "Go Blog", Title: "Go 1.24", URL: "https://c.com", PublishedAt: now.Add(-48 * time.Hour)},
	}
}

func TestMergeAppendsUnknown(t *testing.T) {
	c := NewCollection()
	c.Merge(sampleArticles()...)

	require.Equal(t, 3, c.Len())
	all := c.All()
	require.Equal(t, []int64{1, 2, 3}, []int64{all[0].ID, all[1].ID, all[2].ID})
}

func TestMergeIsIdempotent(t *testing.T) {
	c := NewCollection()
	articles := sampleArticles()
	c.Merge(articles...)
	c.Merge(articles...)

	require.Equal(t, 3, c.Len())
}

func TestMergeReplacesWholeRecord(t *testing.T) {
	c := NewCollection()
	c.Merge(Article{ID: 1, Title: "Old", TranslatedTitle: "Alt", IsRead: true})

	c.Merge(Article{ID: 1, Title: "New"})

	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "New", got.Title)
	// Freshest wins: fields absent from the new version are not carried over
	assert.Empty(t, got.TranslatedTitle)
	assert.False(t, got.IsRead)
	require.Equal(t, 1, c.Len())
}

func TestMergeKeepsFirstAppearanceOrder(t *testing.T) {
	c := NewCollection()
	c.Merge(Article{ID: 5}, Article{ID: 6})
	c.Merge(Article{ID: 7}, Article{ID: 5, Title: "updated"})

	all := c.All()
	require.Len(t, all, 3)
	assert.Equal(t, int64(5), all[0].ID)
	assert.Equal(t, "updated", all[0].Title)
	assert.Equal(t, int64(7), all[2].ID)
}

func TestSetTranslatedTitle(t *testing.T) {
	c := NewCollection()
	c.Merge(sampleArticles()...)

	require.True(t, c.SetTranslatedTitle(2, "Rust 中的 DNS"))
	require.False(t, c.SetTranslatedTitle(99, "missing"))

	got, _ := c.Get(2)
	assert.Equal(t, "Rust 中的 DNS", got.TranslatedTitle)
	assert.Equal(t, "Rust 中的 DNS", got.DisplayTitle())
	assert.Equal(t, "DNS in Rust", got.Title)
}

func TestReadsAreCopies(t *testing.T) {
	c := NewCollection()
	c.Merge(Article{ID: 1, Title: "A"})

	got, _ := c.Get(1)
	got.Title = "mutated"

	again, _ := c.Get(1)
	assert.Equal(t, "A", again.Title)
}

func TestLookupPreservesOrderAndSkipsUnknown(t *testing.T) {
	c := NewCollection()
	c.Merge(sampleArticles()...)

	got := c.Lookup([]int64{3, 42, 1})
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(1), got[1].ID)
}

func TestSubscribeReceivesChanges(t *testing.T) {
	c := NewCollection()
	ch, cancel := c.Subscribe()
	defer cancel()

	c.Merge(Article{ID: 1})
	c.SetTranslatedTitle(1, "x")

	require.Equal(t, Change{ID: 1, Kind: ChangeMerged}, <-ch)
	require.Equal(t, Change{ID: 1, Kind: ChangeTranslated}, <-ch)
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	c := NewCollection()
	ch, cancel := c.Subscribe()
	cancel()
	cancel()

	_, open := <-ch
	require.False(t, open)

	// Publishing after cancel must not panic
	c.Merge(Article{ID: 1})
}

func TestSlowSubscriberDoesNotBlockWriters(t *testing.T) {
	c := NewCollection()
	_, cancel := c.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer*2; i++ {
		c.Merge(Article{ID: int64(i)})
	}
	require.Equal(t, subscriberBuffer*2, c.Len())
}

func TestConcurrentMergeAndTranslate(t *testing.T) {
	c := NewCollection()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Merge(sampleArticles()...)
		}()
		go func(n int) {
			defer wg.Done()
			c.SetTranslatedTitle(int64(n%3+1), "t")
		}(i)
	}
	wg.Wait()
	require.Equal(t, 3, c.Len())
}
