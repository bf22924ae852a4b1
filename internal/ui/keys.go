package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Tab       key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	PrevMatch key.Binding
	NextMatch key.Binding
	Search    key.Binding
	Esc       key.Binding

	Dashboard key.Binding
	Documents key.Binding
	QA        key.Binding

	NewChat     key.Binding
	Delete      key.Binding
	Rename      key.Binding
	Export      key.Binding
	Copy        key.Binding
	CycleModel  key.Binding
	CycleFilter key.Binding
	Input       key.Binding

	AddFile key.Binding
	Upload  key.Binding
	Sync    key.Binding
	Refresh key.Binding

	Quit key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "toggle focus"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "b"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "f"),
			key.WithHelp("pgdn", "page down"),
		),
		PrevMatch: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "prev match"),
		),
		NextMatch: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next match"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Esc: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Dashboard: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "dashboard"),
		),
		Documents: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "documents"),
		),
		QA: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "q&a"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "new chat"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Rename: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rename"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export markdown"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy answer"),
		),
		CycleModel: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "model"),
		),
		CycleFilter: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "target doc"),
		),
		Input: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "ask"),
		),
		AddFile: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add file"),
		),
		Upload: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "upload staged"),
		),
		Sync: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sync index"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Dashboard, k.Documents, k.QA, k.Tab, k.NewChat, k.Search, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Dashboard, k.Documents, k.QA, k.Tab, k.Up, k.Down},
		{k.NewChat, k.Delete, k.Rename, k.Export, k.Copy, k.CycleModel, k.CycleFilter},
		{k.AddFile, k.Upload, k.Sync, k.Refresh, k.Search, k.NextMatch, k.PrevMatch, k.Quit},
	}
}
