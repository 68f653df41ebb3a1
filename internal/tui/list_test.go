package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/matheuskafuri/feedview/internal/store"
)

func TestTruncateStr(t *testing.T) {
	tests := []struct {
		input string
		n     int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc"},
		{"", 5, ""},
		{"test", 0, ""},
	}
	for _, tt := range tests {
		got := truncateStr(tt.input, tt.n)
		if got != tt.want {
			t.Errorf("truncateStr(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.want)
		}
	}
}

func TestTruncateStrUTF8(t *testing.T) {
	got := truncateStr("日本語テスト", 5)
	want := "日本..."
	if got != want {
		t.Errorf("truncateStr(Japanese, 5) = %q, want %q", got, want)
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Now()

	tests := []struct {
		t    time.Time
		want string
	}{
		{now.Add(-30 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5m"},
		{now.Add(-3 * time.Hour), "3h"},
		{now.Add(-2 * 24 * time.Hour), "2d"},
	}
	for _, tt := range tests {
		got := relativeTime(tt.t)
		if got != tt.want {
			t.Errorf("relativeTime(%v ago) = %q, want %q", now.Sub(tt.t), got, tt.want)
		}
	}
}

func TestRelativeTimeOld(t *testing.T) {
	old := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	got := relativeTime(old)
	if got != "Jun 15" {
		t.Errorf("relativeTime(old date) = %q, want %q", got, "Jun 15")
	}
}

func TestScrollStart(t *testing.T) {
	tests := []struct {
		cursor, visible, n int
		want               int
	}{
		{0, 5, 20, 0},
		{4, 5, 20, 0},
		{5, 5, 20, 1},
		{19, 5, 20, 15},
		{2, 5, 3, 0},
		{0, 0, 3, 0},
	}
	for _, tt := range tests {
		got := scrollStart(tt.cursor, tt.visible, tt.n)
		if got != tt.want {
			t.Errorf("scrollStart(%d, %d, %d) = %d, want %d", tt.cursor, tt.visible, tt.n, got, tt.want)
		}
	}
}

func TestRenderListItemPrefersTranslatedTitle(t *testing.T) {
	a := store.Article{ID: 1, FeedTitle: "Go Blog", Title: "Hallo Welt", TranslatedTitle: "Hello world", PublishedAt: time.Now()}
	got := renderListItem(a, false, false, 40)
	if !strings.Contains(got, "Hello world") {
		t.Errorf("item %q does not show the translated title", got)
	}
	if strings.Contains(got, "Hallo Welt") {
		t.Errorf("item %q still shows the original title", got)
	}
}

func TestRenderListItemMarksTranslating(t *testing.T) {
	a := store.Article{ID: 1, FeedTitle: "Go Blog", Title: "Hallo Welt", PublishedAt: time.Now()}
	if got := renderListItem(a, false, true, 40); !strings.Contains(got, "translating") {
		t.Errorf("item %q has no in-flight marker", got)
	}
	if got := renderListItem(a, false, false, 40); strings.Contains(got, "translating") {
		t.Errorf("item %q has an in-flight marker", got)
	}
}

func TestRenderListEmpty(t *testing.T) {
	got := renderList(nil, 0, 0, 9, 40, nil)
	if !strings.Contains(got, "No articles") {
		t.Errorf("renderList(nil) = %q, want empty-state text", got)
	}
}
