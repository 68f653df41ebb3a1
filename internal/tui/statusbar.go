package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/matheuskafuri/feedview/internal/toast"
	"github.com/matheuskafuri/feedview/internal/translate"
)

type statusInfo struct {
	shown       int
	total       int
	hasMore     bool
	translating int
	editing     bool
	loading     bool
	toast       *toast.Toast
}

func renderStatusBar(info statusInfo, width int) string {
	left := fmt.Sprintf(" %d of %d articles", info.shown, info.total)
	if info.hasMore {
		left += " · more ↓"
	}
	if info.translating > 0 {
		left += fmt.Sprintf(" · translating %d", info.translating)
	}
	if info.loading {
		left += " (loading...)"
	}
	if info.toast != nil {
		left = " " + renderToast(*info.toast)
	}

	right := " / filter  t translate  ? help  q quit "
	if info.editing {
		right = " esc cancel  enter apply "
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + fmt.Sprintf("%*s", gap, "") + right

	return statusBarStyle.Width(width).Render(bar)
}

func renderBottomBar(t *toast.Toast, hints string, width int) string {
	left := ""
	if t != nil {
		left = " " + renderToast(*t)
	}

	right := " " + hints + " "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + fmt.Sprintf("%*s", gap, "") + right

	return statusBarStyle.Width(width).Render(bar)
}

func renderToast(t toast.Toast) string {
	switch t.Severity {
	case toast.Error:
		return toastErrorStyle.Render(t.Message)
	case toast.Warning:
		return toastWarningStyle.Render(t.Message)
	default:
		return toastSuccessStyle.Render(t.Message)
	}
}

func renderTranslationBadge(st translate.Settings) string {
	if !st.Enabled {
		return badgeOffStyle.Render("translate off")
	}
	return badgeOnStyle.Render("translate → " + st.TargetLang)
}
