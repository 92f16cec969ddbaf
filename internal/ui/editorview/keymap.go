package editorview

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/draftpad/internal/editor"
)

var namedKeys = map[tea.KeyType]editor.Key{
	tea.KeyEnter:      {Name: editor.KeyEnter},
	tea.KeyTab:        {Name: editor.KeyTab},
	tea.KeyShiftTab:   {Name: editor.KeyTab, Shift: true},
	tea.KeyBackspace:  {Name: editor.KeyBackspace},
	tea.KeyDelete:     {Name: editor.KeyDelete},
	tea.KeyEsc:        {Name: editor.KeyEscape},
	tea.KeySpace:      {Name: editor.KeySpace},
	tea.KeyUp:         {Name: editor.KeyUp},
	tea.KeyDown:       {Name: editor.KeyDown},
	tea.KeyLeft:       {Name: editor.KeyLeft},
	tea.KeyRight:      {Name: editor.KeyRight},
	tea.KeyHome:       {Name: editor.KeyHome},
	tea.KeyEnd:        {Name: editor.KeyEnd},
	tea.KeyShiftUp:    {Name: editor.KeyUp, Shift: true},
	tea.KeyShiftDown:  {Name: editor.KeyDown, Shift: true},
	tea.KeyShiftLeft:  {Name: editor.KeyLeft, Shift: true},
	tea.KeyShiftRight: {Name: editor.KeyRight, Shift: true},
	tea.KeyShiftHome:  {Name: editor.KeyHome, Shift: true},
	tea.KeyShiftEnd:   {Name: editor.KeyEnd, Shift: true},
	tea.KeyCtrlA:      {Text: "a", Short: true},
	tea.KeyCtrlB:      {Text: "b", Short: true},
	tea.KeyCtrlU:      {Text: "u", Short: true},
	tea.KeyCtrlY:      {Text: "y", Short: true},
	tea.KeyCtrlZ:      {Text: "z", Short: true},
	tea.KeyCtrlUp:     {Name: editor.KeyUp, Short: true},
	tea.KeyCtrlDown:   {Name: editor.KeyDown, Short: true},
	tea.KeyCtrlJ:      {Name: editor.KeyEnter, Shift: true}, // most terminals send ctrl+j for shift+enter
}

// toEditorKey converts a terminal key press. ok is false for keys the editor
// has no use for, and for alt combinations, which belong to the host.
func toEditorKey(msg tea.KeyMsg) (editor.Key, bool) {
	if msg.Alt {
		return editor.Key{}, false
	}
	if msg.Type == tea.KeyRunes {
		if len(msg.Runes) == 0 {
			return editor.Key{}, false
		}
		return editor.TextKey(string(msg.Runes)), true
	}
	k, ok := namedKeys[msg.Type]
	return k, ok
}
