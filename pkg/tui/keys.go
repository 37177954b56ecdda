package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit        key.Binding
	NextPane    key.Binding
	PrevPane    key.Binding
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Toggle      key.Binding
	ClearFacets key.Binding
	MoreText    key.Binding
	LessText    key.Binding
	CopyURL     key.Binding
	HistoryBack key.Binding
	HistoryFwd  key.Binding
	ClearErrors key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Quit:        key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
		NextPane:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next pane")),
		PrevPane:    key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous pane")),
		Up:          key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up")),
		Down:        key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "down")),
		PageUp:      key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "previous hits")),
		PageDown:    key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "next hits")),
		Toggle:      key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "toggle facet")),
		ClearFacets: key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "clear facets")),
		MoreText:    key.NewBinding(key.WithKeys("alt+m"), key.WithHelp("alt+m", "more text")),
		LessText:    key.NewBinding(key.WithKeys("alt+l"), key.WithHelp("alt+l", "less text")),
		CopyURL:     key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy url")),
		HistoryBack: key.NewBinding(key.WithKeys("alt+left"), key.WithHelp("alt+←", "back")),
		HistoryFwd:  key.NewBinding(key.WithKeys("alt+right"), key.WithHelp("alt+→", "forward")),
		ClearErrors: key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "clear errors")),
	}
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.NextPane, k.PageDown, k.Toggle, k.ClearFacets, k.MoreText, k.LessText, k.CopyURL, k.HistoryBack, k.Quit}
}
