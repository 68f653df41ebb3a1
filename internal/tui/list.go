package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/matheuskafuri/feedview/internal/store"
)

func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

func renderListItem(a store.Article, selected, translating bool, width int) string {
	if width < 10 {
		width = 30
	}

	label := truncateStr(a.DisplayTitle(), width-4)
	var title string
	switch {
	case selected:
		title = itemSelectedStyle.Render("> " + label)
	case a.IsRead:
		title = itemReadStyle.Render("  " + label)
	default:
		title = itemTitleStyle.Render("  " + label)
	}

	meta := "  " + itemSourceStyle.Render(a.FeedTitle) + " " + itemTimeStyle.Render("· "+relativeTime(a.PublishedAt))
	if a.IsFavorite {
		meta += " " + itemMarkStyle.Render("★")
	}
	if translating {
		meta += " " + itemMarkStyle.Render("translating…")
	}

	return title + "\n" + meta
}

func truncateStr(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// scrollStart returns the first row shown so that cursor stays within a
// window of visible rows over n items.
func scrollStart(cursor, visible, n int) int {
	if visible < 1 {
		visible = 1
	}
	start := 0
	if cursor >= visible {
		start = cursor - visible + 1
	}
	if start+visible > n {
		start = max(0, n-visible)
	}
	return start
}

func renderList(articles []store.Article, cursor, start, height, width int, inFlight func(int64) bool) string {
	if len(articles) == 0 {
		return lipglossCenter("No articles match this filter", width, height)
	}

	visible := max(1, height/itemHeight)
	if start < 0 || start >= len(articles) {
		start = scrollStart(cursor, visible, len(articles))
	}
	end := min(start+visible, len(articles))

	var b strings.Builder
	for i := start; i < end; i++ {
		a := articles[i]
		b.WriteString(renderListItem(a, i == cursor, inFlight != nil && inFlight(a.ID), width))
		if i < end-1 {
			b.WriteString("\n\n")
		}
	}

	return b.String()
}

func lipglossCenter(s string, width, height int) string {
	return strings.Repeat("\n", height/3) + strings.Repeat(" ", max(0, (width-len(s))/2)) + s
}
