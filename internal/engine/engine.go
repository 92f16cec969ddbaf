// Package engine defines the structured document engine the editor drives,
// and provides Memory, an in-process implementation of it.
//
// Positions are rune offsets into Text(). Every embed occupies one position.
// The document always ends with a newline.
package engine

import "github.com/zjrosen/draftpad/internal/delta"

// Source tags who caused a change.
type Source string

const (
	SourceUser   Source = "user"
	SourceAPI    Source = "api"
	SourceSilent Source = "silent"
)

// Range is a selection. Length 0 is a caret.
type Range struct {
	Index  int
	Length int
}

// End is the position just after the range.
func (r Range) End() int { return r.Index + r.Length }

// Collapsed reports whether the range is a caret.
func (r Range) Collapsed() bool { return r.Length == 0 }

// ChangeHandler observes document changes. old is the document before change.
type ChangeHandler func(change, old delta.Delta, source Source)

// Engine is the structured document engine. Mutations with SourceUser are
// ignored while the engine is disabled.
type Engine interface {
	Text() string
	Length() int
	Contents() delta.Delta
	SetContents(d delta.Delta, source Source)
	SetText(text string, source Source)
	InsertText(index int, text string, attrs delta.Attributes, source Source)
	InsertEmbed(index int, e delta.Embed, source Source)
	DeleteText(index, length int, source Source)
	// Format applies a format to the current selection. A collapsed selection
	// stores inline formats for the next insert at the caret.
	Format(name string, value any, source Source)
	FormatLine(index, length int, name string, value any, source Source)
	FormatText(index, length int, name string, value any, source Source)
	UpdateContents(change delta.Delta, source Source)
	RemoveFormat(index, length int, source Source)

	Selection() (Range, bool)
	SetSelection(r Range, source Source)

	// Line returns the line containing index and index's offset within it.
	Line(index int) (delta.Line, int, bool)
	// FormatAt returns the formats common to the range, line formats included.
	FormatAt(index, length int) delta.Attributes

	// Cutoff closes the current undo group.
	Cutoff()
	Enable(enabled bool)
	Enabled() bool
	OnTextChange(h ChangeHandler) (unsubscribe func())
}
