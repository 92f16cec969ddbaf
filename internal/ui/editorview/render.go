package editorview

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/zjrosen/draftpad/internal/delta"
	"github.com/zjrosen/draftpad/internal/engine"
	"github.com/zjrosen/draftpad/internal/ui/styles"
)

// docView is a rendered document.
type docView struct {
	rows     []string
	caretRow int
	caretCol int
	embeds   map[string]struct{} // values of the embeds drawn
}

// renderOptions controls how the document is drawn.
type renderOptions struct {
	width    int
	sel      engine.Range
	caret    bool // draw the selection; false while the engine is unfocused
	rich     bool
	disabled bool
}

// renderDocument draws doc one row per wrapped line.
func renderDocument(doc delta.Delta, opts renderOptions) docView {
	v := docView{embeds: make(map[string]struct{})}
	width := max(opts.width, 8)
	ordered := 0

	for _, line := range doc.Lines() {
		if opts.rich && listValue(line.Attrs) == "ordered" {
			ordered++
		} else {
			ordered = 0
		}
		prefix := ""
		if opts.rich {
			prefix = linePrefix(line.Attrs, ordered)
		}
		prefixWidth := runewidth.StringWidth(prefix)
		avail := max(width-prefixWidth, 4)

		body, caretCol, hasCaret := renderLine(line, opts, &v)
		wrapped := strings.Split(wrap.String(wordwrap.String(body, avail), avail), "\n")
		if hasCaret {
			v.caretRow = len(v.rows) + min(caretCol/avail, len(wrapped)-1)
			v.caretCol = prefixWidth + caretCol%avail
		}

		style := lipgloss.NewStyle()
		if opts.rich {
			style = lineStyle(line.Attrs)
		}
		for i, row := range wrapped {
			lead := prefix
			if i > 0 {
				lead = strings.Repeat(" ", prefixWidth)
			}
			v.rows = append(v.rows, style.Render(lead)+row)
		}
	}
	if len(v.rows) == 0 {
		v.rows = []string{""}
	}
	return v
}

// renderLine styles the runs of one line. caretCol is the display column of
// the caret when the caret is on this line.
func renderLine(line delta.Line, opts renderOptions, v *docView) (string, int, bool) {
	var (
		b        strings.Builder
		col      int
		caretCol int
		hasCaret bool
		pos      = line.Index
	)
	lineAttrs := delta.Attributes(nil)
	if opts.rich {
		lineAttrs = line.Attrs
	}
	mark := func(text string, attrs delta.Attributes, at int) {
		style := runStyle(attrs, lineAttrs, opts.rich)
		if opts.disabled {
			style = styles.DisabledStyle
		}
		if opts.caret && !opts.sel.Collapsed() && at >= opts.sel.Index && at < opts.sel.End() {
			style = style.Inherit(styles.SelectionStyle)
		}
		if opts.caret && opts.sel.Collapsed() && at == opts.sel.Index {
			caretCol, hasCaret = col, true
			style = style.Reverse(true)
		}
		b.WriteString(style.Render(text))
		col += runewidth.StringWidth(text)
	}

	for _, op := range line.Content.Ops {
		if op.Embed != nil {
			label := embedLabel(op.Embed)
			if value, ok := op.Embed.Value().(string); ok {
				v.embeds[value] = struct{}{}
			}
			mark(label, delta.Attributes{"embed": true}, pos)
			pos++
			continue
		}
		// split at every position the selection or caret can change style
		runes := []rune(op.Insert)
		start := 0
		for i := range runes {
			at := pos + i
			if i > start && (at == opts.sel.Index || at == opts.sel.End() || at == opts.sel.Index+1) {
				mark(string(runes[start:i]), op.Attributes, pos+start)
				start = i
			}
		}
		if start < len(runes) {
			mark(string(runes[start:]), op.Attributes, pos+start)
		}
		pos += len(runes)
	}

	// the newline position shows as a blank cell
	if opts.caret && opts.sel.Collapsed() && opts.sel.Index == pos {
		caretCol, hasCaret = col, true
		b.WriteString(styles.CaretStyle.Render(" "))
	}
	return b.String(), caretCol, hasCaret
}

func runStyle(attrs, lineAttrs delta.Attributes, rich bool) lipgloss.Style {
	s := lipgloss.NewStyle()
	if !rich {
		return s
	}
	if attrs.Has("bold") {
		s = s.Bold(true)
	}
	if attrs.Has("italic") {
		s = s.Italic(true)
	}
	if attrs.Has("underline") {
		s = s.Underline(true)
	}
	if attrs.Has("strike") {
		s = s.Strikethrough(true)
	}
	if attrs.Has("code") || lineAttrs.Has("code-block") {
		s = s.Foreground(styles.CodeColor)
	}
	if href, ok := attrs["link"].(string); ok && href != "" {
		if strings.Contains(href, "/account/") {
			s = s.Foreground(styles.MentionColor)
		} else {
			s = s.Foreground(styles.LinkColor).Underline(true)
		}
	}
	if attrs.Has("embed") {
		s = s.Foreground(styles.EmbedColor)
	}
	if lineAttrs.Has("header") {
		s = s.Bold(true).Foreground(styles.HeaderColor)
	}
	if lineAttrs.Has("blockquote") {
		s = s.Italic(true).Foreground(styles.QuoteColor)
	}
	return s
}

func lineStyle(attrs delta.Attributes) lipgloss.Style {
	switch {
	case attrs.Has("blockquote"):
		return lipgloss.NewStyle().Foreground(styles.QuoteColor)
	case attrs.Has("list"):
		return lipgloss.NewStyle().Foreground(styles.TextSecondaryColor)
	}
	return lipgloss.NewStyle()
}

func listValue(attrs delta.Attributes) string {
	v, _ := attrs["list"].(string)
	return v
}

// linePrefix is the gutter text drawn for a block format.
func linePrefix(attrs delta.Attributes, ordered int) string {
	switch listValue(attrs) {
	case "bullet":
		return "• "
	case "ordered":
		return strconv.Itoa(ordered) + ". "
	case "unchecked":
		return "☐ "
	case "checked":
		return "☑ "
	}
	switch {
	case attrs.Has("blockquote"):
		return "│ "
	case attrs.Has("code-block"):
		return "  "
	case attrs.Has("header"):
		return strings.Repeat("#", headerLevel(attrs["header"])) + " "
	}
	return ""
}

func headerLevel(v any) int {
	switch n := v.(type) {
	case int:
		return max(n, 1)
	case float64:
		return max(int(n), 1)
	}
	return 1
}

func embedLabel(e delta.Embed) string {
	value := fmt.Sprint(e.Value())
	switch e.Kind() {
	case "image":
		return "[image " + value + "]"
	case "twitter":
		return "[post " + value + "]"
	case "video":
		return "[video " + value + "]"
	}
	return "[" + e.Kind() + "]"
}
