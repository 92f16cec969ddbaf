// Package keys contains the host keybindings. Keys not bound here go to
// the editor's own binding table.
package keys

import "github.com/charmbracelet/bubbles/key"

// EditorKeys are handled by the host before the editor sees them.
type EditorKeys struct {
	ToggleMode key.Binding
	Preview    key.Binding
	Submit     key.Binding
	Cancel     key.Binding
	Quit       key.Binding
	Help       key.Binding
	Toolbar    key.Binding
	Logs       key.Binding
}

// Editor is the default host keymap.
var Editor = EditorKeys{
	ToggleMode: key.NewBinding(
		key.WithKeys("ctrl+t"),
		key.WithHelp("ctrl+t", "rich text / markdown"),
	),
	Preview: key.NewBinding(
		key.WithKeys("ctrl+p"),
		key.WithHelp("ctrl+p", "preview"),
	),
	Submit: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "submit"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc esc", "discard draft"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit, keep draft"),
	),
	Help: key.NewBinding(
		key.WithKeys("f1"),
		key.WithHelp("f1", "help"),
	),
	Toolbar: key.NewBinding(
		key.WithKeys("f2"),
		key.WithHelp("f2", "toggle toolbar"),
	),
	// enabled by the host in debug sessions
	Logs: key.NewBinding(
		key.WithKeys("f12"),
		key.WithHelp("f12", "debug log"),
		key.WithDisabled(),
	),
}

// ShortHelp implements help.KeyMap.
func (k EditorKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.ToggleMode, k.Preview, k.Help}
}

// FullHelp implements help.KeyMap.
func (k EditorKeys) FullHelp() [][]key.Binding {
	rows := [][]key.Binding{
		{k.Submit, k.ToggleMode, k.Preview, k.Toolbar},
		{k.Cancel, k.Quit, k.Help, k.Logs},
	}
	var formats []key.Binding
	for _, f := range Formats {
		formats = append(formats, f.Binding)
	}
	return append(rows, formats)
}

// FormatKey is a toolbar command reachable from the keyboard.
type FormatKey struct {
	Binding key.Binding
	Label   string // toolbar button text
	Format  string
	Value   any
}

// Formats lists the toolbar commands in toolbar order.
var Formats = []FormatKey{
	{Binding: formatBinding("alt+b", "bold"), Label: "B", Format: "bold"},
	{Binding: formatBinding("alt+i", "italic"), Label: "I", Format: "italic"},
	{Binding: formatBinding("alt+s", "strike"), Label: "S", Format: "strike"},
	{Binding: formatBinding("alt+c", "code"), Label: "<>", Format: "code"},
	{Binding: formatBinding("alt+1", "heading 1"), Label: "H1", Format: "header", Value: 1},
	{Binding: formatBinding("alt+2", "heading 2"), Label: "H2", Format: "header", Value: 2},
	{Binding: formatBinding("alt+q", "quote"), Label: "❝", Format: "blockquote"},
	{Binding: formatBinding("alt+l", "bullet list"), Label: "•", Format: "list", Value: "bullet"},
	{Binding: formatBinding("alt+o", "numbered list"), Label: "1.", Format: "list", Value: "ordered"},
	{Binding: formatBinding("alt+x", "checklist"), Label: "☐", Format: "list", Value: "check"},
	{Binding: formatBinding("alt+k", "link"), Label: "🔗", Format: "link"},
	{Binding: formatBinding("alt+p", "code block"), Label: "{}", Format: "code-block"},
}

func formatBinding(k, desc string) key.Binding {
	return key.NewBinding(key.WithKeys(k), key.WithHelp(k, desc))
}
