package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the session screen.
type KeyMap struct {
	Submit  key.Binding
	NewLine key.Binding
	Record  key.Binding
	Retry   key.Binding
	Quit    key.Binding
	Leave   key.Binding

	ScrollUp   key.Binding
	ScrollDown key.Binding
}

// DefaultKeyMap provides the default key bindings.
var DefaultKeyMap = KeyMap{
	Submit: key.NewBinding(
		key.WithKeys(KeyEnter),
		key.WithHelp("enter", "send answer"),
	),
	NewLine: key.NewBinding(
		key.WithKeys(KeyCtrlJ, "alt+enter"),
		key.WithHelp("ctrl+j", "new line"),
	),
	Record: key.NewBinding(
		key.WithKeys(KeyCtrlR),
		key.WithHelp("ctrl+r", "record / stop"),
	),
	Retry: key.NewBinding(
		key.WithKeys(KeyCtrlT),
		key.WithHelp("ctrl+t", "retry upload"),
	),
	Quit: key.NewBinding(
		key.WithKeys(KeyCtrlC),
		key.WithHelp("ctrl+c", "end session"),
	),
	Leave: key.NewBinding(
		key.WithKeys(KeyEnter, KeyEsc, "q", KeyCtrlC),
		key.WithHelp("enter", "exit"),
	),
	ScrollUp: key.NewBinding(
		key.WithKeys(KeyPgUp),
		key.WithHelp("pgup", "scroll up"),
	),
	ScrollDown: key.NewBinding(
		key.WithKeys(KeyPgDn),
		key.WithHelp("pgdown", "scroll down"),
	),
}

// ShortHelp lists the bindings shown in the footer while answering.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.NewLine, k.Record, k.Retry, k.Quit}
}

// FullHelp groups every binding for the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.NewLine},
		{k.Record, k.Retry},
		{k.ScrollUp, k.ScrollDown, k.Quit},
	}
}
