package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	toggle   key.Binding
	next     key.Binding
	previous key.Binding
	seek     key.Binding
	back     key.Binding
	forward  key.Binding
	enter    key.Binding
	cancel   key.Binding
	up       key.Binding
	down     key.Binding
	learn    key.Binding
	dismiss  key.Binding
	reset    key.Binding
	help     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		next:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		previous: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous")),
		seek:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "seek")),
		back:     key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "-5s")),
		forward:  key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "+5s")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		learn:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "learn tag")),
		dismiss:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss")),
		reset:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reconnect")),
		help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.seek, k.learn, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.toggle, k.next, k.previous},
		{k.seek, k.back, k.forward, k.enter, k.cancel},
		{k.up, k.down, k.learn, k.dismiss},
		{k.reset, k.help, k.quit},
	}
}
