package mention

import (
	"strings"
	"unicode/utf8"

	"github.com/zjrosen/draftpad/internal/delta"
	"github.com/zjrosen/draftpad/internal/engine"
)

// Insert replaces the mention token before the caret with item. In markdown
// the mention is written as a link, in rich text as text carrying a link
// attribute. Exactly one space separates the mention from what follows, and
// the caret ends up after that space.
func Insert(eng engine.Engine, markdown bool, item Item) bool {
	sel, _ := eng.Selection()
	caret := sel.Index
	runes := []rune(eng.Text())
	caret = min(caret, len(runes))

	at := -1
	for i := caret - 1; i >= 0; i-- {
		if runes[i] == Trigger {
			at = i
			break
		}
	}
	if at < 0 {
		return false
	}

	after := strings.TrimSuffix(string(runes[caret:]), "\n")
	spaces := len(after) - len(strings.TrimLeft(after, " "))

	var (
		text  string
		attrs delta.Attributes
	)
	if markdown {
		text = "[@" + item.Name + "](" + item.Link + ")"
	} else {
		text = "@" + item.Name
		attrs = delta.Attributes{"link": item.Link}
	}

	change := delta.Delta{}.Retain(at, nil).Delete(caret-at).Insert(text, attrs)
	switch {
	case spaces == 0:
		change = change.Insert(" ", nil)
	case spaces > 1:
		change = change.Retain(1, nil).Delete(spaces - 1)
	}
	eng.UpdateContents(change, engine.SourceUser)
	eng.SetSelection(engine.Range{Index: at + utf8.RuneCountInString(text) + 1}, engine.SourceSilent)
	return true
}
