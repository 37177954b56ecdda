package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SearchBar is the query input field with its subtitle
type SearchBar struct {
	input    textinput.Model
	isActive bool
	width    int
	subtitle string
}

// NewSearchBar creates a new search bar component
func NewSearchBar() *SearchBar {
	ti := textinput.New()
	ti.Placeholder = "Type to search..."
	ti.CharLimit = 512
	ti.Width = 50 // Default width, will be adjusted

	return &SearchBar{
		input: ti,
	}
}

// SetActive sets whether the search bar is the active pane
func (s *SearchBar) SetActive(active bool) {
	s.isActive = active
	if active {
		s.input.Focus()
	} else {
		s.input.Blur()
	}
}

// SetWidth sets the width for the search bar
func (s *SearchBar) SetWidth(width int) {
	s.width = width
	// Width - 4 (borders) - 2 (outer padding) - 5 (icon with spaces) - 1 (space after icon)
	s.input.Width = width - 12
}

// Value returns the current search text
func (s *SearchBar) Value() string {
	return s.input.Value()
}

// SetValue sets the search text and moves the cursor to its end
func (s *SearchBar) SetValue(value string) {
	s.input.SetValue(value)
	s.input.CursorEnd()
}

// SetSubtitle sets the line shown below the input
func (s *SearchBar) SetSubtitle(subtitle string) {
	s.subtitle = subtitle
}

// Update handles tea messages for the search bar
func (s *SearchBar) Update(msg tea.Msg) (*SearchBar, tea.Cmd) {
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

// View renders the search bar with consistent styling
func (s *SearchBar) View() string {
	borderColor := ColorInactive
	if s.isActive {
		borderColor = ColorActive
	}

	searchStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(borderColor)).
		Width(max(s.width-4, 10)).
		Padding(0, 1)

	var searchIcon string
	if s.isActive {
		searchIcon = lipgloss.NewStyle().
			Background(lipgloss.Color(ColorActive)).
			Foreground(lipgloss.Color(ColorWhite)).
			Bold(true).
			Padding(0, 1).
			Render("⌕")
	} else {
		// 1 space on either side to match active state width
		searchIcon = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorNormal)).
			Bold(true).
			Render(" ⌕ ")
	}

	searchContent := lipgloss.JoinHorizontal(lipgloss.Center, searchIcon, " ", s.input.View())

	outerPadding := lipgloss.NewStyle().
		PaddingLeft(1).
		PaddingRight(1)

	bar := outerPadding.Render(searchStyle.Render(searchContent))
	if s.subtitle == "" {
		return bar
	}
	return lipgloss.JoinVertical(lipgloss.Left, bar, outerPadding.Render(DescriptionStyle.Render(" "+s.subtitle)))
}

// Focus focuses the search input
func (s *SearchBar) Focus() tea.Cmd {
	return s.input.Focus()
}

// Blur removes focus from the search input
func (s *SearchBar) Blur() {
	s.input.Blur()
}
