package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/matheuskafuri/feedview/internal/imagecache"
	"github.com/matheuskafuri/feedview/internal/store"
)

func renderPreview(article *store.Article, img *imageStatus, width, height, scroll int) string {
	if article == nil {
		return lipglossCenter("Select an article", width, height)
	}

	contentWidth := width - 2
	if contentWidth < 10 {
		contentWidth = 10
	}

	parts := []string{previewTitleStyle.Width(contentWidth).Render(article.DisplayTitle())}
	if article.TranslatedTitle != "" && article.TranslatedTitle != article.Title {
		parts = append(parts, previewOriginalStyle.Width(contentWidth).Render(article.Title))
	}

	source := article.FeedTitle
	if article.FeedCategory != "" {
		source += " · " + article.FeedCategory
	}
	parts = append(parts, previewSourceStyle.Render(
		fmt.Sprintf("%s · %s", source, article.PublishedAt.Format("Jan 2, 2006")),
	))

	summary := article.Summary
	if summary == "" {
		summary = "(No summary available)"
	}
	parts = append(parts, "", previewBodyStyle.Width(contentWidth).Render(wrapText(summary, contentWidth)))

	if line := imageLine(article, img); line != "" {
		parts = append(parts, "", previewImageStyle.Width(contentWidth).Render(line))
	}

	parts = append(parts, "", previewLinkStyle.Width(contentWidth).Render("Read more: "+article.URL))

	content := lipgloss.JoinVertical(lipgloss.Left, parts...)

	// Apply scroll offset
	lines := strings.Split(content, "\n")
	if scroll > 0 && scroll < len(lines) {
		lines = lines[scroll:]
	}

	// Pad to fill height
	if len(lines) < height {
		lines = append(lines, make([]string, height-len(lines))...)
	} else if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

// imageLine describes the article image and where it loads from.
func imageLine(article *store.Article, img *imageStatus) string {
	if article.ImageURL == "" {
		return ""
	}
	if img == nil {
		return "Image: " + article.ImageURL
	}
	switch img.state.Status {
	case imagecache.StatusLoading:
		return "Image: loading…"
	case imagecache.StatusError:
		return "Image unavailable (i to retry): " + article.ImageURL
	default:
		return "Image: " + img.displayURL
	}
}

func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) > width {
			lines = append(lines, line)
			line = w
		} else {
			line += " " + w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}
