package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/completesearch/completesearch-cli/pkg/models"
)

// Color constants
const (
	ColorActive   = "170" // Purple/magenta for active elements
	ColorInactive = "240" // Gray for inactive elements
	ColorSelected = "236" // Dark gray for background selection
	ColorNormal   = "245" // Light gray for normal text
	ColorDim      = "241" // Dimmer gray
	ColorWarning  = "214" // Orange/yellow for warnings
	ColorSuccess  = "28"  // Green for success
	ColorWhite    = "255" // White
	ColorError    = "196" // Red for errors
	ColorStatusBg = "62"
	ColorStatusFg = "230"
)

// Common styles
var (
	ActiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color(ColorActive))

	InactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color(ColorInactive))

	SelectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorActive)).
			Background(lipgloss.Color(ColorSelected)).
			Bold(true)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorDim))

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	DescriptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(ColorDim))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorError))

	StatusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color(ColorStatusBg)).
			Foreground(lipgloss.Color(ColorStatusFg)).
			Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorDim))
)

// Styles are the colors taken from the ui settings.
type Styles struct {
	Facet      lipgloss.Style
	FacetFaded lipgloss.Style
	Highlight  lipgloss.Style
}

// NewStyles builds the configurable styles.
func NewStyles(ui models.UISettings) Styles {
	return Styles{
		Facet:      lipgloss.NewStyle().Foreground(lipgloss.Color(ui.ColorFacets)),
		FacetFaded: lipgloss.NewStyle().Foreground(lipgloss.Color(ui.ColorFacetsFaded)),
		Highlight:  lipgloss.NewStyle().Foreground(lipgloss.Color(ui.ColorHighlight)).Bold(true),
	}
}
