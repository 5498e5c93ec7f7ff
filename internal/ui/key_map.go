package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	pane     key.Binding
	enter    key.Binding
	add      key.Binding
	remove   key.Binding
	focus    key.Binding
	move     key.Binding
	open     key.Binding
	refresh  key.Binding
	showMore key.Binding
	back     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		pane:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add")),
		add:      key.NewBinding(key.WithKeys("a", "/"), key.WithHelp("a", "add channel")),
		remove:   key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
		focus:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "focus")),
		move:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "move")),
		open:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open")),
		refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		showMore: key.NewBinding(key.WithKeys("+"), key.WithHelp("+", "show more")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.pane, k.add, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.pane, k.enter},
		{k.add, k.remove, k.focus, k.move},
		{k.open, k.refresh, k.showMore, k.back, k.quit},
	}
}
