package editor

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/zjrosen/draftpad/internal/delta"
	"github.com/zjrosen/draftpad/internal/engine"
	"github.com/zjrosen/draftpad/internal/log"
	"github.com/zjrosen/draftpad/internal/mention"
)

// Named keys. Printable keys are identified by their lower-cased text.
const (
	KeyEnter     = "enter"
	KeyTab       = "tab"
	KeyBackspace = "backspace"
	KeyDelete    = "delete"
	KeyEscape    = "esc"
	KeySpace     = "space"
	KeyUp        = "up"
	KeyDown      = "down"
	KeyLeft      = "left"
	KeyRight     = "right"
	KeyHome      = "home"
	KeyEnd       = "end"
)

// Key is one key press. Short is the platform shortcut modifier (ctrl/cmd).
type Key struct {
	Name  string
	Text  string
	Short bool
	Shift bool
}

// TextKey is a printable key press.
func TextKey(text string) Key { return Key{Text: text} }

func (k Key) code() string {
	if k.Name != "" {
		return k.Name
	}
	if k.Text == " " {
		return KeySpace
	}
	return strings.ToLower(k.Text)
}

func (k Key) text() string {
	if k.Text == "" && k.Name == KeySpace {
		return " "
	}
	return k.Text
}

// Modifier constrains a modifier key in a binding. The zero value requires
// the modifier to be released.
type Modifier int

const (
	Released Modifier = iota
	Pressed
	Either
)

func (m Modifier) allows(down bool) bool {
	switch m {
	case Pressed:
		return down
	case Either:
		return true
	}
	return !down
}

// Outcome tells HandleKey whether to stop at a binding.
type Outcome int

const (
	PassThrough Outcome = iota
	Handled
)

// KeyContext describes the document around the caret when a key arrives.
type KeyContext struct {
	Key    Key
	Range  engine.Range
	Line   delta.Line
	Offset int
	// Prefix is the line text before the caret, Suffix the rest of the line
	// including its newline.
	Prefix string
	Suffix string
	Format delta.Attributes
}

// LineStart is the document index of the caret's line.
func (c KeyContext) LineStart() int { return c.Range.Index - c.Offset }

// Binding is one row of the key table.
type Binding struct {
	Name        string
	Key         string
	Short       Modifier
	Shift       Modifier
	Collapsed   bool
	Format      []string // any of
	NotFormat   []string
	AtLineStart bool
	Prefix      *regexp.Regexp
	Suffix      *regexp.Regexp
	Handler     func(ctx context.Context, c KeyContext) Outcome
}

func (b Binding) matches(c KeyContext) bool {
	if b.Key != c.Key.code() {
		return false
	}
	if !b.Short.allows(c.Key.Short) || !b.Shift.allows(c.Key.Shift) {
		return false
	}
	if b.Collapsed && !c.Range.Collapsed() {
		return false
	}
	if len(b.Format) > 0 {
		found := false
		for _, f := range b.Format {
			if c.Format.Has(f) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, f := range b.NotFormat {
		if c.Format.Has(f) {
			return false
		}
	}
	if b.AtLineStart && c.Offset != 0 {
		return false
	}
	if b.Prefix != nil && !b.Prefix.MatchString(c.Prefix) {
		return false
	}
	if b.Suffix != nil && !b.Suffix.MatchString(c.Suffix) {
		return false
	}
	return true
}

var (
	listPrefix     = regexp.MustCompile(`^\s*(1\.|\*|-)$`)
	autolinkPrefix = regexp.MustCompile(`(?:\s|^)(https?://\S+)$`)
	blankSuffix    = regexp.MustCompile(`^\s+$`)
)

// Bindings returns the key table in the order it is consulted.
func (e *Editor) Bindings() []Binding { return e.bindings }

func (e *Editor) defaultBindings() []Binding {
	b := []Binding{
		{Name: "tab", Key: KeyTab, Handler: func(context.Context, KeyContext) Outcome { return Handled }},
		{Name: "new-line", Key: KeyEnter, Shift: Either, Handler: e.newLine},
		{Name: "add-mention", Key: KeyEnter, Shift: Either, Handler: e.addMention},
		{Name: "submit", Key: KeyEnter, Handler: e.submit},
	}
	for _, name := range []string{"header", "blockquote"} {
		b = append(b, Binding{
			Name: name + "-backspace", Key: KeyBackspace, Collapsed: true, AtLineStart: true,
			Format: []string{name}, Handler: e.clearBlock(name),
		})
	}
	b = append(b,
		Binding{
			Name: "code-backspace", Key: KeyBackspace, Collapsed: true, AtLineStart: true,
			Format: []string{"code-block"}, Suffix: blankSuffix, Handler: e.clearBlock("code-block"),
		},
		Binding{
			Name: "list-autofill", Key: KeySpace, Collapsed: true,
			NotFormat: []string{"list"}, Prefix: listPrefix, Handler: e.listAutofill,
		},
	)
	for _, f := range []struct{ key, format string }{{"b", "bold"}, {"i", "italic"}, {"u", "underline"}} {
		b = append(b, Binding{Name: f.format, Key: f.key, Short: Pressed, Handler: e.toggleInline(f.format)})
	}
	b = append(b,
		Binding{Name: "autolink-space", Key: KeySpace, Collapsed: true, Prefix: autolinkPrefix, Handler: e.autolink},
		Binding{Name: "autolink-enter", Key: KeyEnter, Shift: Either, Collapsed: true, Prefix: autolinkPrefix, Handler: e.autolink},
		Binding{Name: "mention-up", Key: KeyUp, Shift: Either, Handler: e.mentionMove(-1)},
		Binding{Name: "mention-down", Key: KeyDown, Shift: Either, Handler: e.mentionMove(1)},
		Binding{Name: "mention-escape", Key: KeyEscape, Handler: e.mentionEscape},
	)
	return b
}

// HandleKey runs the first binding that handles k, or the default action.
func (e *Editor) HandleKey(ctx context.Context, k Key) {
	if e.closed {
		return
	}
	c := e.keyContext(k)
	handled := false
	for _, b := range e.bindings {
		if !b.matches(c) {
			continue
		}
		if b.Handler(ctx, c) == Handled {
			log.Debug(log.CatKeys, "key handled", "binding", b.Name, "key", k.code())
			handled = true
			break
		}
	}
	if !handled {
		e.defaultKey(c)
	}
	e.refreshMention()
}

func (e *Editor) keyContext(k Key) KeyContext {
	sel := e.selection()
	if _, focused := e.eng.Selection(); !focused {
		e.eng.SetSelection(sel, engine.SourceSilent)
	}
	c := KeyContext{Key: k, Range: sel, Format: e.eng.FormatAt(sel.Index, sel.Length)}
	line, offset, ok := e.eng.Line(sel.Index)
	if !ok {
		return c
	}
	runes := []rune(line.Content.Text())
	offset = min(offset, len(runes))
	c.Line = line
	c.Offset = offset
	c.Prefix = string(runes[:offset])
	c.Suffix = string(runes[offset:]) + "\n"
	return c
}

func (e *Editor) newLine(_ context.Context, c KeyContext) Outcome {
	if e.mode != ModeRichText {
		return PassThrough
	}
	if e.embeds.HandleLine(e.eng, c.LineStart(), c.Line.Content.Text(), c.Range.Index) {
		return Handled
	}
	return PassThrough
}

func (e *Editor) addMention(context.Context, KeyContext) Outcome {
	if !e.mentions.Open() {
		return PassThrough
	}
	item, ok := e.mentions.Highlighted()
	if !ok {
		e.mentions.Close()
		return PassThrough
	}
	e.SelectMention(item)
	return Handled
}

// SelectMention inserts item for the token at the caret and closes the list.
func (e *Editor) SelectMention(item mention.Item) {
	if !e.live() || item.Hint {
		return
	}
	if mention.Insert(e.eng, e.mode == ModeMarkdown, item) {
		log.Debug(log.CatMention, "mention inserted", "name", item.Name, "link", item.Link)
	}
	e.mentions.Close()
}

func (e *Editor) submit(context.Context, KeyContext) Outcome {
	if e.onSubmit == nil {
		return PassThrough
	}
	e.onSubmit()
	return Handled
}

func (e *Editor) clearBlock(format string) func(context.Context, KeyContext) Outcome {
	return func(context.Context, KeyContext) Outcome {
		e.eng.Format(format, false, engine.SourceUser)
		return Handled
	}
}

func (e *Editor) listAutofill(_ context.Context, c KeyContext) Outcome {
	if e.mode != ModeRichText {
		return PassThrough
	}
	value := "ordered"
	if p := strings.TrimSpace(c.Prefix); p == "-" || p == "*" {
		value = "bullet"
	}
	plen := utf8.RuneCountInString(c.Prefix)
	lineStart := c.LineStart()
	lineLen := c.Line.Content.Length()

	e.eng.InsertText(c.Range.Index, " ", nil, engine.SourceUser)
	e.eng.Cutoff()
	change := delta.Delta{}.
		Retain(lineStart, nil).
		Delete(plen+1).
		Retain(lineLen-c.Offset, nil).
		Retain(1, delta.Attributes{"list": value})
	e.eng.UpdateContents(change, engine.SourceUser)
	e.eng.Cutoff()
	e.eng.SetSelection(engine.Range{Index: lineStart}, engine.SourceSilent)
	return Handled
}

func (e *Editor) toggleInline(format string) func(context.Context, KeyContext) Outcome {
	return func(_ context.Context, c KeyContext) Outcome {
		if e.mode == ModeRichText {
			e.eng.Format(format, !c.Format.Has(format), engine.SourceUser)
		}
		return Handled
	}
}

func (e *Editor) autolink(_ context.Context, c KeyContext) Outcome {
	if e.mode != ModeRichText {
		return PassThrough
	}
	m := autolinkPrefix.FindStringSubmatch(c.Prefix)
	if m == nil {
		return PassThrough
	}
	url := m[1]
	n := utf8.RuneCountInString(url)
	change := delta.Delta{}.
		Retain(c.Range.Index-n, nil).
		Delete(n).
		Insert(url, delta.Attributes{"link": url})
	e.eng.UpdateContents(change, engine.SourceUser)
	return PassThrough
}

func (e *Editor) mentionMove(step int) func(context.Context, KeyContext) Outcome {
	return func(context.Context, KeyContext) Outcome {
		if !e.mentions.Open() {
			return PassThrough
		}
		e.mentions.Move(step)
		return Handled
	}
}

func (e *Editor) mentionEscape(context.Context, KeyContext) Outcome {
	if !e.mentions.Open() {
		return PassThrough
	}
	sel := e.selection()
	if start, _, ok := mention.TokenAt(e.eng.Text(), sel.Index); ok {
		e.mentionDismissed = start
	}
	e.mentions.Close()
	return Handled
}

// refreshMention re-reads the mention token after a key. A dismissed token
// and text already carrying a link (an inserted mention) do not reopen the
// list.
func (e *Editor) refreshMention() {
	if !e.live() {
		return
	}
	sel, ok := e.eng.Selection()
	if !ok || !sel.Collapsed() {
		if e.mentions.Open() {
			e.mentions.Close()
		}
		return
	}
	text := e.eng.Text()
	start, _, found := mention.TokenAt(text, sel.Index)
	if found && (start == e.mentionDismissed || e.eng.FormatAt(start, 1).Has("link")) {
		if e.mentions.Open() {
			e.mentions.Close()
		}
		return
	}
	if !found {
		e.mentionDismissed = -1
	}
	e.mentions.Update(text, sel.Index)
}

func (e *Editor) defaultKey(c KeyContext) {
	sel := c.Range
	switch c.Key.code() {
	case KeyEnter:
		_, block := delta.SplitAttributes(c.Format)
		e.typeText(sel, "\n", block)
	case KeyBackspace:
		switch {
		case !sel.Collapsed():
			e.eng.DeleteText(sel.Index, sel.Length, engine.SourceUser)
		case sel.Index > 0:
			e.eng.DeleteText(sel.Index-1, 1, engine.SourceUser)
		}
	case KeyDelete:
		switch {
		case !sel.Collapsed():
			e.eng.DeleteText(sel.Index, sel.Length, engine.SourceUser)
		case sel.Index < e.eng.Length()-1:
			e.eng.DeleteText(sel.Index, 1, engine.SourceUser)
		}
	case KeyLeft:
		e.moveCaret(e.head()-1, c.Key.Shift)
	case KeyRight:
		e.moveCaret(e.head()+1, c.Key.Shift)
	case KeyUp:
		e.moveCaret(e.verticalTarget(-1), c.Key.Shift)
	case KeyDown:
		e.moveCaret(e.verticalTarget(1), c.Key.Shift)
	case KeyHome:
		start, _ := lineBounds([]rune(e.eng.Text()), e.head(), e.head())
		e.moveCaret(start, c.Key.Shift)
	case KeyEnd:
		_, end := lineBounds([]rune(e.eng.Text()), e.head(), e.head())
		e.moveCaret(end, c.Key.Shift)
	case KeyTab, KeyEscape:
	default:
		if c.Key.Short {
			e.shortcut(c.Key.code())
			return
		}
		if text := c.Key.text(); text != "" {
			inline, _ := delta.SplitAttributes(c.Format)
			delete(inline, "link")
			e.typeText(sel, text, inline)
		}
	}
}

// typeText replaces the selection with text as the user typing it.
func (e *Editor) typeText(sel engine.Range, text string, attrs delta.Attributes) {
	if e.mode == ModeMarkdown {
		attrs = nil
	}
	if !sel.Collapsed() {
		e.eng.DeleteText(sel.Index, sel.Length, engine.SourceUser)
	}
	e.eng.InsertText(sel.Index, text, attrs, engine.SourceUser)
}

type undoer interface {
	Undo() bool
	Redo() bool
}

func (e *Editor) shortcut(code string) {
	switch code {
	case "a":
		e.eng.SetSelection(engine.Range{Length: e.eng.Length() - 1}, engine.SourceSilent)
		e.headAtStart = false
	case "z", "y":
		u, ok := e.eng.(undoer)
		if !ok {
			return
		}
		if code == "z" {
			u.Undo()
		} else {
			u.Redo()
		}
	}
}

// head is the moving end of the selection.
func (e *Editor) head() int {
	sel := e.selection()
	if e.headAtStart {
		return sel.Index
	}
	return sel.End()
}

func (e *Editor) moveCaret(to int, extend bool) {
	sel := e.selection()
	to = min(max(to, 0), e.eng.Length()-1)
	if !extend {
		e.headAtStart = false
		e.eng.SetSelection(engine.Range{Index: to}, engine.SourceSilent)
		return
	}
	anchor := sel.Index
	if e.headAtStart {
		anchor = sel.End()
	}
	e.headAtStart = to < anchor
	lo, hi := min(anchor, to), max(anchor, to)
	e.eng.SetSelection(engine.Range{Index: lo, Length: hi - lo}, engine.SourceSilent)
}

// verticalTarget keeps the column while moving dir lines.
func (e *Editor) verticalTarget(dir int) int {
	runes := []rune(e.eng.Text())
	head := e.head()
	start, end := lineBounds(runes, head, head)
	col := head - start
	if dir < 0 {
		if start == 0 {
			return 0
		}
		pstart, pend := lineBounds(runes, start-1, start-1)
		return pstart + min(col, pend-pstart)
	}
	if end >= len(runes)-1 {
		return len(runes) - 1
	}
	nstart, nend := lineBounds(runes, end+1, end+1)
	return nstart + min(col, nend-nstart)
}
