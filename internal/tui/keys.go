package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Dashboard key.Binding
	Results   key.Binding
	Streams   key.Binding
	Level     key.Binding
	Stream    key.Binding
	Sort      key.Binding
	Order     key.Binding
	Quit      key.Binding
}

var keys = keyMap{
	Dashboard: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "dashboard"),
	),
	Results: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "results"),
	),
	Streams: key.NewBinding(
		key.WithKeys("3"),
		key.WithHelp("3", "streams"),
	),
	Level: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "level filter"),
	),
	Stream: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "stream filter"),
	),
	Sort: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "sort key"),
	),
	Order: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "sort order"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q/ctrl+c", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Dashboard, k.Results, k.Streams, k.Level, k.Sort, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Dashboard, k.Results, k.Streams},
		{k.Level, k.Stream, k.Sort, k.Order, k.Quit},
	}
}
