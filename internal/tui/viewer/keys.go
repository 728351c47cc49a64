package viewer

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	nextPage      key.Binding
	prevPage      key.Binding
	zoomIn        key.Binding
	zoomOut       key.Binding
	cycleMode     key.Binding
	retry         key.Binding
	toggleOutline key.Binding
	up            key.Binding
	down          key.Binding
	jump          key.Binding
	expand        key.Binding
	moveUp        key.Binding
	moveDown      key.Binding
	saveOutline   key.Binding
	widenPanel    key.Binding
	narrowPanel   key.Binding
	help          key.Binding
	quit          key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		nextPage: key.NewBinding(
			key.WithKeys("n", "right", "pgdown"),
			key.WithHelp("n", "next page"),
		),
		prevPage: key.NewBinding(
			key.WithKeys("p", "left", "pgup"),
			key.WithHelp("p", "prev page"),
		),
		zoomIn: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "zoom in"),
		),
		zoomOut: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "zoom out"),
		),
		cycleMode: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mode"),
		),
		retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		toggleOutline: key.NewBinding(
			key.WithKeys("o", "tab"),
			key.WithHelp("o", "outline"),
		),
		up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j", "down"),
		),
		jump: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("↵", "go to entry"),
		),
		expand: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "expand"),
		),
		moveUp: key.NewBinding(
			key.WithKeys("K"),
			key.WithHelp("K", "move entry up"),
		),
		moveDown: key.NewBinding(
			key.WithKeys("J"),
			key.WithHelp("J", "move entry down"),
		),
		saveOutline: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "save outline"),
		),
		widenPanel: key.NewBinding(
			key.WithKeys(">"),
			key.WithHelp(">", "widen outline"),
		),
		narrowPanel: key.NewBinding(
			key.WithKeys("<"),
			key.WithHelp("<", "narrow outline"),
		),
		help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.nextPage, k.prevPage, k.zoomIn, k.zoomOut, k.toggleOutline, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.nextPage, k.prevPage, k.zoomIn, k.zoomOut, k.cycleMode, k.retry},
		{k.toggleOutline, k.up, k.down, k.jump, k.expand},
		{k.moveUp, k.moveDown, k.saveOutline, k.widenPanel, k.narrowPanel},
		{k.help, k.quit},
	}
}
