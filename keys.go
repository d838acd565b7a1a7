package main

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the key bindings of the TUI.
type keyMap struct {
	// Global
	Quit        key.Binding
	SwitchPane  key.Binding
	Translate   key.Binding
	Connections key.Binding
	Pick        key.Binding

	// Editor
	Run      key.Binding
	Newline  key.Binding
	Complete key.Binding
	Accept   key.Binding
	Dismiss  key.Binding
	Up       key.Binding
	Down     key.Binding

	// Grid
	Edit   key.Binding
	Commit key.Binding
	Cancel key.Binding
	Copy   key.Binding

	// Tables
	Search key.Binding
	Reload key.Binding
}

var defaultKeyMap = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	SwitchPane: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch pane"),
	),
	Translate: key.NewBinding(
		key.WithKeys("ctrl+t"),
		key.WithHelp("ctrl+t", "ask AI"),
	),
	Connections: key.NewBinding(
		key.WithKeys("ctrl+o"),
		key.WithHelp("ctrl+o", "connections"),
	),
	Pick: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "connect"),
	),
	Run: key.NewBinding(
		key.WithKeys("enter", "ctrl+r"),
		key.WithHelp("enter", "run"),
	),
	Newline: key.NewBinding(
		key.WithKeys("ctrl+j"),
		key.WithHelp("ctrl+j", "new line"),
	),
	Complete: key.NewBinding(
		key.WithKeys("ctrl+@", "ctrl+n"),
		key.WithHelp("ctrl+space", "complete"),
	),
	Accept: key.NewBinding(
		key.WithKeys("tab", "enter"),
		key.WithHelp("tab/enter", "accept"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close"),
	),
	Up: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "previous"),
	),
	Down: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "next"),
	),
	Edit: key.NewBinding(
		key.WithKeys("enter", "e"),
		key.WithHelp("enter/e", "edit cell"),
	),
	Commit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "save"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	Copy: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy cell"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload schema"),
	),
}
