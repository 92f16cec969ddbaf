package engine

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/zjrosen/draftpad/internal/delta"
)

// exclusiveBlocks are block formats a line can hold only one of.
var exclusiveBlocks = []string{"header", "blockquote", "code-block", "list"}

// Memory is an in-process Engine. It is not safe for concurrent use; drive it
// from a single goroutine, the editor's event loop.
type Memory struct {
	doc      delta.Delta
	sel      Range
	focused  bool
	enabled  bool
	pending  delta.Attributes
	handlers []handlerEntry
	nextID   int
	history  *history
}

type handlerEntry struct {
	id int
	fn ChangeHandler
}

// Option configures a Memory engine.
type Option func(*Memory)

// WithClock sets the clock used to group undo history.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) { m.history.now = now }
}

// WithHistoryDelay sets how close together changes must be to share an undo group.
func WithHistoryDelay(d time.Duration) Option {
	return func(m *Memory) { m.history.delay = d }
}

// NewMemory returns an enabled engine holding an empty document.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		doc:     delta.FromText(""),
		enabled: true,
		history: newHistory(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Text() string          { return m.doc.Text() }
func (m *Memory) Length() int           { return m.doc.Length() }
func (m *Memory) Contents() delta.Delta { return m.doc }
func (m *Memory) Enabled() bool         { return m.enabled }
func (m *Memory) Cutoff()               { m.history.cutoff() }

// Enable toggles whether user-sourced mutations are accepted.
func (m *Memory) Enable(enabled bool) { m.enabled = enabled }

// OnTextChange registers h for non-silent changes.
func (m *Memory) OnTextChange(h ChangeHandler) func() {
	m.nextID++
	id := m.nextID
	m.handlers = append(m.handlers, handlerEntry{id: id, fn: h})
	return func() {
		for i, e := range m.handlers {
			if e.id == id {
				m.handlers = append(m.handlers[:i:i], m.handlers[i+1:]...)
				return
			}
		}
	}
}

// Selection returns the current range and whether the engine has focus.
func (m *Memory) Selection() (Range, bool) { return m.sel, m.focused }

// SetSelection focuses the engine and moves the selection, clamped to the document.
func (m *Memory) SetSelection(r Range, _ Source) {
	m.sel = m.clamp(r)
	m.focused = true
	m.pending = nil
}

// Blur drops focus. Selection() reports false until SetSelection.
func (m *Memory) Blur() { m.focused = false }

func (m *Memory) clamp(r Range) Range {
	last := max(m.doc.Length()-1, 0)
	r.Index = min(max(r.Index, 0), last)
	r.Length = min(max(r.Length, 0), last-r.Index)
	return r
}

func (m *Memory) SetContents(d delta.Delta, source Source) {
	if !strings.HasSuffix(d.Text(), "\n") {
		d = d.Insert("\n", nil)
	}
	m.apply(delta.Delta{}.Delete(m.doc.Length()).Concat(d), source)
}

// SetText replaces the document with unformatted text. The emitted change is
// the minimal text diff, with formatting cleared over retained spans.
func (m *Memory) SetText(text string, source Source) {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(m.doc.Text(), text, false)

	var change delta.Delta
	pos := 0
	for _, d := range diffs {
		n := utf8.RuneCountInString(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			for _, op := range m.doc.Slice(pos, pos+n).Ops {
				if op.Embed != nil {
					change = change.Delete(1).Insert(string(delta.EmbedRune), nil)
					continue
				}
				change = change.Retain(op.Len(), clearing(op.Attributes))
			}
			pos += n
		case diffmatchpatch.DiffDelete:
			change = change.Delete(n)
			pos += n
		case diffmatchpatch.DiffInsert:
			change = change.Insert(d.Text, nil)
		}
	}
	m.apply(change.Chop(), source)
}

func clearing(a delta.Attributes) delta.Attributes {
	if len(a) == 0 {
		return nil
	}
	out := make(delta.Attributes, len(a))
	for k := range a {
		out[k] = nil
	}
	return out
}

func (m *Memory) InsertText(index int, text string, attrs delta.Attributes, source Source) {
	if text == "" {
		return
	}
	index = m.clampIndex(index)
	if m.focused && m.sel.Collapsed() && m.sel.Index == index && len(m.pending) > 0 {
		merged := attrs.Clone()
		if merged == nil {
			merged = delta.Attributes{}
		}
		for k, v := range m.pending {
			if v == nil {
				delete(merged, k)
				continue
			}
			merged[k] = v
		}
		attrs = merged
		m.pending = nil
	}
	inline, block := delta.SplitAttributes(attrs)

	change := delta.Delta{}.Retain(index, nil)
	for i, part := range strings.Split(text, "\n") {
		if i > 0 {
			change = change.Insert("\n", block)
		}
		change = change.Insert(part, inline)
	}
	m.apply(change, source)
}

func (m *Memory) InsertEmbed(index int, e delta.Embed, source Source) {
	index = m.clampIndex(index)
	m.apply(delta.Delta{}.Retain(index, nil).InsertEmbed(e, nil), source)
}

func (m *Memory) DeleteText(index, length int, source Source) {
	index = m.clampIndex(index)
	length = min(length, m.doc.Length()-index)
	if length <= 0 {
		return
	}
	m.apply(delta.Delta{}.Retain(index, nil).Delete(length), source)
}

func (m *Memory) clampIndex(index int) int {
	return min(max(index, 0), max(m.doc.Length()-1, 0))
}

func (m *Memory) Format(name string, value any, source Source) {
	if !m.focused {
		return
	}
	r := m.sel
	switch {
	case delta.IsBlockFormat(name):
		m.FormatLine(r.Index, r.Length, name, value, source)
	case r.Collapsed():
		if source == SourceUser && !m.enabled {
			return
		}
		if m.pending == nil {
			m.pending = delta.Attributes{}
		}
		m.pending[name] = formatValue(value)
	default:
		m.FormatText(r.Index, r.Length, name, value, source)
	}
}

// formatValue maps false to nil, the removal marker.
func formatValue(v any) any {
	if b, ok := v.(bool); ok && !b {
		return nil
	}
	return v
}

func (m *Memory) FormatText(index, length int, name string, value any, source Source) {
	if delta.IsBlockFormat(name) {
		m.FormatLine(index, length, name, value, source)
		return
	}
	index = m.clampIndex(index)
	runes := []rune(m.doc.Text())
	end := min(index+length, len(runes))
	attrs := delta.Attributes{name: formatValue(value)}

	change := delta.Delta{}.Retain(index, nil)
	for i := index; i < end; i++ {
		if runes[i] == '\n' {
			change = change.Retain(1, nil)
		} else {
			change = change.Retain(1, attrs)
		}
	}
	m.apply(change.Chop(), source)
}

func (m *Memory) FormatLine(index, length int, name string, value any, source Source) {
	value = formatValue(value)
	attrs := delta.Attributes{name: value}
	if value != nil && slices.Contains(exclusiveBlocks, name) {
		for _, other := range exclusiveBlocks {
			if other != name {
				attrs[other] = nil
			}
		}
	}

	end := index + max(length, 1)
	var change delta.Delta
	pos := 0
	for _, line := range m.doc.Lines() {
		nl := line.Index + line.Content.Length()
		if nl < index || line.Index >= end {
			continue
		}
		change = change.Retain(nl-pos, nil).Retain(1, attrs)
		pos = nl + 1
	}
	m.apply(change.Chop(), source)
}

func (m *Memory) UpdateContents(change delta.Delta, source Source) {
	m.apply(change, source)
}

// RemoveFormat replaces [index, index+length) with its plain text, embeds
// dropped. Newlines inside the range lose their line formats, as does the
// newline ending the line the range stops in.
func (m *Memory) RemoveFormat(index, length int, source Source) {
	index = m.clampIndex(index)
	length = min(length, m.doc.Length()-index)

	text := m.doc.Slice(index, index+length).PlainText()
	replacement := delta.Delta{}.Insert(text, nil)
	span := length
	if line, offset, ok := m.Line(index + length); ok {
		suffix := line.Content.Slice(offset, -1)
		replacement = replacement.Concat(suffix).Insert("\n", nil)
		span += line.Content.Length() - offset + 1
	}

	old := m.doc.Slice(index, index+span)
	if old.Equal(replacement) {
		return
	}
	change := delta.Delta{}.Retain(index, nil).Delete(span).Concat(replacement)
	m.apply(change, source)
}

// Line returns the line containing index. Positions at or past the final
// newline of the document report false.
func (m *Memory) Line(index int) (delta.Line, int, bool) {
	if index < 0 || index >= m.doc.Length() {
		return delta.Line{}, 0, false
	}
	for _, line := range m.doc.Lines() {
		nl := line.Index + line.Content.Length()
		if index >= line.Index && index <= nl {
			return line, index - line.Index, true
		}
	}
	return delta.Line{}, 0, false
}

func (m *Memory) FormatAt(index, length int) delta.Attributes {
	index = m.clampIndex(index)
	runes := []rune(m.doc.Text())

	if length <= 0 {
		line, offset, ok := m.Line(index)
		out := delta.Attributes{}
		if ok {
			for k, v := range line.Attrs {
				out[k] = v
			}
		}
		var inline delta.Attributes
		switch {
		case offset > 0:
			inline = m.attrsAt(index - 1)
		case index < len(runes) && runes[index] != '\n':
			inline = m.attrsAt(index)
		}
		for k, v := range inline {
			if !delta.IsBlockFormat(k) {
				out[k] = v
			}
		}
		if m.focused && m.sel.Collapsed() && m.sel.Index == index {
			for k, v := range m.pending {
				if v == nil {
					delete(out, k)
					continue
				}
				out[k] = v
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}

	end := min(index+length, len(runes))
	var inline delta.Attributes
	first := true
	for i := index; i < end; i++ {
		if runes[i] == '\n' {
			continue
		}
		inline = intersect(inline, m.attrsAt(i), first)
		first = false
	}
	var block delta.Attributes
	firstLine := true
	for _, line := range m.doc.Lines() {
		nl := line.Index + line.Content.Length()
		if nl < index || line.Index >= end {
			continue
		}
		block = intersect(block, line.Attrs, firstLine)
		firstLine = false
	}
	out := delta.Attributes{}
	for k, v := range inline {
		out[k] = v
	}
	for k, v := range block {
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (m *Memory) attrsAt(pos int) delta.Attributes {
	ops := m.doc.Slice(pos, pos+1).Ops
	if len(ops) == 0 {
		return nil
	}
	return ops[0].Attributes
}

func intersect(acc, next delta.Attributes, first bool) delta.Attributes {
	if first {
		return next.Clone()
	}
	out := delta.Attributes{}
	for k, v := range acc {
		if nv, ok := next[k]; ok && (delta.Attributes{k: v}).Equal(delta.Attributes{k: nv}) {
			out[k] = v
		}
	}
	return out
}

// Undo reverts the most recent undo group.
func (m *Memory) Undo() bool {
	change, ok := m.history.undo()
	if !ok {
		return false
	}
	m.replay(change)
	return true
}

// Redo reapplies the most recently undone group.
func (m *Memory) Redo() bool {
	change, ok := m.history.redo()
	if !ok {
		return false
	}
	m.replay(change)
	return true
}

func (m *Memory) replay(change delta.Delta) {
	m.history.ignoring = true
	defer func() { m.history.ignoring = false }()
	m.apply(change, SourceUser)
	if m.focused {
		m.sel = m.clamp(Range{Index: lastChangeIndex(change)})
	}
}

func lastChangeIndex(change delta.Delta) int {
	pos, last := 0, 0
	for _, op := range change.Ops {
		switch {
		case op.IsInsert():
			pos += op.Len()
			last = pos
		case op.IsRetain():
			if len(op.Attributes) > 0 {
				last = pos + op.Retain
			}
			pos += op.Retain
		case op.IsDelete():
			last = pos
		}
	}
	return last
}

func (m *Memory) apply(change delta.Delta, source Source) {
	if change.Empty() {
		return
	}
	if source == SourceUser && !m.enabled {
		return
	}
	old := m.doc
	next := old.Compose(change)
	if !strings.HasSuffix(next.Text(), "\n") {
		fix := delta.Delta{}.Retain(next.Length(), nil).Insert("\n", nil)
		change = change.Compose(fix)
		next = next.Compose(fix)
	}
	if next.Equal(old) {
		return
	}
	m.doc = next

	if m.focused {
		priority := source != SourceUser
		start := change.TransformPosition(m.sel.Index, priority)
		end := change.TransformPosition(m.sel.End(), priority)
		m.sel = m.clamp(Range{Index: start, Length: end - start})
	}
	m.history.record(change, old)

	if source == SourceSilent {
		return
	}
	for _, h := range append([]handlerEntry(nil), m.handlers...) {
		h.fn(change, old, source)
	}
}

type history struct {
	now      func() time.Time
	delay    time.Duration
	last     time.Time
	cut      bool
	ignoring bool
	undos    []historyEntry
	redos    []historyEntry
}

type historyEntry struct {
	redo delta.Delta
	undo delta.Delta
}

func newHistory() *history {
	return &history{now: time.Now, delay: time.Second}
}

func (h *history) cutoff() { h.cut = true }

func (h *history) record(change, old delta.Delta) {
	if h.ignoring {
		return
	}
	undo := change.Invert(old)
	now := h.now()
	if n := len(h.undos); n > 0 && !h.cut && now.Sub(h.last) < h.delay {
		top := &h.undos[n-1]
		top.redo = top.redo.Compose(change)
		top.undo = undo.Compose(top.undo)
	} else {
		h.undos = append(h.undos, historyEntry{redo: change, undo: undo})
	}
	h.last = now
	h.cut = false
	h.redos = nil
}

func (h *history) undo() (delta.Delta, bool) {
	n := len(h.undos)
	if n == 0 {
		return delta.Delta{}, false
	}
	e := h.undos[n-1]
	h.undos = h.undos[:n-1]
	h.redos = append(h.redos, e)
	h.cut = true
	return e.undo, true
}

func (h *history) redo() (delta.Delta, bool) {
	n := len(h.redos)
	if n == 0 {
		return delta.Delta{}, false
	}
	e := h.redos[n-1]
	h.redos = h.redos[:n-1]
	h.undos = append(h.undos, e)
	h.cut = true
	return e.redo, true
}
