package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/matheuskafuri/feedview/internal/translate"
)

var asciiLogo = []string{
	`┌─┐┌─┐┌─┐┌┬┐┬  ┬┬┌─┐┬ ┬`,
	`├┤ ├┤ ├┤  ││└┐┌┘│├┤ │││`,
	`└  └─┘└─┘─┴┘ └┘ ┴└─┘└┴┘`,
}

func renderHomeScreen(width, height int, st translate.Settings, updateVersion string) string {
	logoStyle := lipgloss.NewStyle().Foreground(colorAccent)
	keyStyle := lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(colorText)

	var lines []string

	for _, l := range asciiLogo {
		lines = append(lines, logoStyle.Render(l))
	}
	lines = append(lines, "")
	lines = append(lines, "")

	translation := "Turn title translation on"
	if st.Enabled {
		translation = "Turn title translation off (" + st.TargetLang + ")"
	}

	lines = append(lines, "  "+keyStyle.Render("[e]")+"  "+labelStyle.Render("Browse articles"))
	lines = append(lines, "  "+keyStyle.Render("[/]")+"  "+labelStyle.Render("New filter"))
	lines = append(lines, "  "+keyStyle.Render("[t]")+"  "+labelStyle.Render(translation))
	lines = append(lines, "")
	lines = append(lines, "  "+keyStyle.Render("[q]")+"  "+labelStyle.Render("Quit"))

	if updateVersion != "" {
		lines = append(lines, "")
		lines = append(lines, "  "+logoStyle.Render("Update available: v"+updateVersion))
	}

	content := strings.Join(lines, "\n")
	contentHeight := strings.Count(content, "\n") + 1

	topPad := (height - contentHeight) / 3
	if topPad < 0 {
		topPad = 0
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top,
		strings.Repeat("\n", topPad)+content)
}
