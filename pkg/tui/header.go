package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Version is shown in the header. Set by the csearch command.
var Version = "dev"

const headerHeight = 3

func renderHeader(width int, title string) string {
	logo := "▄▖▄▖▄▖▄▖▄▖▄▖▖▖\n▌ ▚ ▙▖▙▌▙▘▌ ▙▌\n" + Version

	logoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorActive)).
		Bold(true).
		Align(lipgloss.Right)

	headerPadding := lipgloss.NewStyle().
		PaddingLeft(1).
		PaddingRight(1).
		Width(width)

	logoRendered := logoStyle.Render(logo)
	if title == "" {
		rightAlign := lipgloss.NewStyle().
			Width(width - 2).
			Align(lipgloss.Right)
		return headerPadding.Render(rightAlign.Render(logoRendered))
	}

	// Title sits on the last logo line.
	titleRendered := TitleStyle.Render("\n\n" + title)
	gap := max(width-2-lipgloss.Width(titleRendered)-lipgloss.Width(logoRendered), 1)
	return headerPadding.Render(lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		lipgloss.NewStyle().Width(gap).Render(""),
		logoRendered,
	))
}
