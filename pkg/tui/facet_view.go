package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"

	"github.com/completesearch/completesearch-cli/pkg/session"
)

const facetColumnWidth = 34

func (a *App) visibleRows() int {
	return max(a.settings.Facets.CompletionsPerBox, session.MinRows)
}

// facetBoxView renders one facet box with a window of its rows.
func (a *App) facetBoxView(box *session.FacetBox, focused bool) string {
	inner := facetColumnWidth - 4
	rows := box.Rows(a.ctrl.Selection(), a.settings.ScoreKey(box.Name), a.settings.Facets.CompletionsPerBox)

	offset := a.boxOffset[box.Name]
	end := min(offset+a.visibleRows(), len(rows))
	if offset > end {
		offset = end
	}
	cursor := a.boxCursor[box.Name]

	text := a.styles.Facet
	if box.Dimmed {
		text = a.styles.FacetFaded
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(truncate.StringWithTail(box.Title(), uint(inner), "…")))
	for i := offset; i < end; i++ {
		b.WriteString("\n")
		row := rows[i]
		if row.Empty {
			continue
		}
		check := "[ ]"
		if row.Checked {
			check = "[x]"
		}
		score := humanize.Comma(int64(row.Score))
		labelWidth := inner - len(check) - len(score) - 2
		label := truncate.StringWithTail(row.Label, uint(max(labelWidth, 1)), "…")
		pad := max(labelWidth-lipgloss.Width(label), 0)
		line := fmt.Sprintf("%s %s%s %s", check, label, strings.Repeat(" ", pad), score)
		if focused && i == cursor {
			b.WriteString(SelectedStyle.Render(line))
		} else {
			b.WriteString(text.Render(line))
		}
	}
	b.WriteString("\n")
	b.WriteString(DescriptionStyle.Render(box.Footer()))

	border := InactiveBorderStyle
	if focused {
		border = ActiveBorderStyle
	}
	return border.Width(facetColumnWidth - 2).Render(b.String())
}

// facetsView stacks the word box and the facet boxes.
func (a *App) facetsView() string {
	boxes := a.ctrl.Boxes()
	views := make([]string, 0, len(boxes))
	for i, box := range boxes {
		views = append(views, a.facetBoxView(box, a.focus == focusFacets && i == a.boxIndex))
	}
	return lipgloss.JoinVertical(lipgloss.Left, views...)
}

// focusedBox returns the facet box that has the focus.
func (a *App) focusedBox() (*session.FacetBox, bool) {
	if a.focus != focusFacets {
		return nil, false
	}
	boxes := a.ctrl.Boxes()
	if a.boxIndex < 0 || a.boxIndex >= len(boxes) {
		return nil, false
	}
	return boxes[a.boxIndex], true
}

// moveBoxCursor moves the cursor of box by delta and keeps it in view. It
// reports whether the cursor ended on the last loaded row.
func (a *App) moveBoxCursor(box *session.FacetBox, delta int) bool {
	n := len(box.Items)
	if n == 0 {
		return false
	}
	cursor := min(max(a.boxCursor[box.Name]+delta, 0), n-1)
	a.boxCursor[box.Name] = cursor

	offset := a.boxOffset[box.Name]
	visible := a.visibleRows()
	if cursor < offset {
		offset = cursor
	}
	if cursor >= offset+visible {
		offset = cursor - visible + 1
	}
	a.boxOffset[box.Name] = offset
	return cursor == n-1
}
