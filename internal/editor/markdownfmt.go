package editor

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// marker is the markdown syntax written for a format. Function markers vary
// per line (numbered lists).
type marker struct {
	text string
	fn   func(line int) string
}

func (m marker) at(line int) string {
	if m.fn != nil {
		return m.fn(line)
	}
	return m.text
}

var inlineMarkers = map[string]string{
	"bold":       "**",
	"italic":     "_",
	"code":       "`",
	"strike":     "~~",
	"code-block": "\n```\n",
}

// blockMarker returns the line prefix for a block format and value.
func blockMarker(format string, value any) (marker, bool) {
	switch format {
	case "header":
		switch levelOf(value) {
		case 1:
			return marker{text: "# "}, true
		case 2:
			return marker{text: "## "}, true
		}
	case "blockquote":
		return marker{text: "> "}, true
	case "list":
		switch fmt.Sprint(value) {
		case "ordered":
			return marker{fn: func(i int) string { return strconv.Itoa(i+1) + ". " }}, true
		case "bullet":
			return marker{text: "- "}, true
		case "unchecked", "checked":
			return marker{text: "- [ ] "}, true
		}
	}
	return marker{}, false
}

func levelOf(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	}
	return 0
}

// addMarkers writes m around (inline) or before (block) every non-blank line
// of text. A blank text is prefixed once and a multi-line marker is written
// once around the whole text.
func addMarkers(m marker, text string, inline bool) string {
	if m.fn == nil && strings.Contains(m.text, "\n") {
		return strings.TrimSpace(m.text + text + m.text)
	}
	if m.fn == nil && strings.TrimSpace(text) == "" {
		return m.text + text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if m.fn == nil && strings.TrimSpace(line) == "" {
			continue
		}
		mk := m.at(i)
		if inline {
			lines[i] = mk + line + mk
		} else {
			lines[i] = mk + line
		}
	}
	return strings.Join(lines, "\n")
}

// markerPair is what an inline marker inserts at a collapsed caret.
func markerPair(mk string) (open, closing string) {
	return strings.TrimLeftFunc(mk, unicode.IsSpace), strings.TrimRightFunc(mk, unicode.IsSpace)
}

// wrapState remembers the last inline wrap so that applying the same format
// to the span it produced restores the text it replaced.
type wrapState struct {
	format  string
	index   int
	wrapped string
	inner   string
	doc     string
}

// matches reports whether applying format to sel undoes this wrap.
func (w *wrapState) matches(format string, index int, selected, doc string) bool {
	return w != nil && w.format == format && w.index == index && w.wrapped == selected && w.doc == doc
}

// after drops the state once the document no longer is the one it recorded.
func (w *wrapState) after(doc string) *wrapState {
	if w == nil || w.doc != doc {
		return nil
	}
	return w
}

// lineBounds returns the start of the line holding from and the end (index
// of the terminating newline) of the line holding to.
func lineBounds(runes []rune, from, to int) (start, end int) {
	start = min(max(from, 0), len(runes))
	for start > 0 && runes[start-1] != '\n' {
		start--
	}
	end = min(max(to, start), len(runes))
	for end < len(runes) && runes[end] != '\n' {
		end++
	}
	return start, end
}

func hasScheme(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}
