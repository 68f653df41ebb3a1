package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/matheuskafuri/feedview/internal/api"
	"github.com/matheuskafuri/feedview/internal/filter"
)

// renderFilterBar shows each active condition as a chip, joined by its logic
// keyword, stopping before the row would exceed width.
func renderFilterBar(conds []api.Condition, width int) string {
	sep := tabSeparatorStyle.Render(" ")
	var parts []string

	if len(conds) == 0 {
		parts = append(parts, tabInactiveStyle.Render("no filter"), helpDimStyle.Render("press / to filter"))
	}
	for i, c := range conds {
		if i > 0 && c.Logic != "" {
			parts = append(parts, tabSeparatorStyle.Render(c.Logic))
		}
		style := tabActiveStyle
		if c.Negate {
			style = tabNegatedStyle
		}
		// Describe of a single condition drops the logic keyword.
		c.Logic = ""
		parts = append(parts, style.Render(filter.Describe([]api.Condition{c})))
	}

	var row string
	for i, part := range parts {
		candidate := row
		if i > 0 {
			candidate += sep
		}
		candidate += part
		if lipgloss.Width(candidate) > width && row != "" {
			break
		}
		row = candidate
	}

	barStyle := lipgloss.NewStyle().
		Background(colorSurface).
		Width(width).
		PaddingLeft(1)
	return barStyle.Render(row)
}
