package delta

import (
	"fmt"
	"strings"
)

// Markdown renders a document as markdown using the same markers the
// markdown toolbar produces. Unknown attributes are dropped.
func (d Delta) Markdown() string {
	var (
		out     []string
		inCode  bool
		ordinal int
	)
	for _, line := range d.Lines() {
		text := renderInline(line.Content)
		code := line.Attrs.Has("code-block")
		if code != inCode {
			out = append(out, "```")
			inCode = code
		}
		if code {
			out = append(out, line.Content.PlainText())
			continue
		}

		list, _ := line.Attrs["list"].(string)
		if list == "ordered" {
			ordinal++
		} else {
			ordinal = 0
		}

		switch {
		case line.Attrs.Has("header"):
			out = append(out, strings.Repeat("#", headerLevel(line.Attrs["header"]))+" "+text)
		case line.Attrs.Has("blockquote"):
			out = append(out, "> "+text)
		case list == "ordered":
			out = append(out, fmt.Sprintf("%d. %s", ordinal, text))
		case list == "bullet":
			out = append(out, "- "+text)
		case list == "checked":
			out = append(out, "- [x] "+text)
		case list == "unchecked":
			out = append(out, "- [ ] "+text)
		default:
			out = append(out, text)
		}
	}
	if inCode {
		out = append(out, "```")
	}
	return strings.Join(out, "\n")
}

func headerLevel(v any) int {
	switch n := v.(type) {
	case int:
		if n >= 1 && n <= 6 {
			return n
		}
	case float64:
		if n >= 1 && n <= 6 {
			return int(n)
		}
	}
	return 1
}

func renderInline(d Delta) string {
	var b strings.Builder
	for _, op := range d.Ops {
		if op.Embed != nil {
			b.WriteString(renderEmbed(op.Embed))
			continue
		}
		text := op.Insert
		a := op.Attributes
		if a.Has("code") {
			text = "`" + text + "`"
		}
		if a.Has("strike") {
			text = "~~" + text + "~~"
		}
		if a.Has("italic") {
			text = "_" + text + "_"
		}
		if a.Has("bold") {
			text = "**" + text + "**"
		}
		if href, ok := a["link"].(string); ok && href != "" {
			text = "[" + text + "](" + href + ")"
		}
		b.WriteString(text)
	}
	return b.String()
}

func renderEmbed(e Embed) string {
	v, _ := e.Value().(string)
	switch e.Kind() {
	case "image":
		return "![](" + v + ")"
	case "video":
		return v
	case "twitter":
		if v != "" {
			return "https://twitter.com/i/status/" + v
		}
		m, _ := e.Value().(map[string]any)
		if id, ok := m["id"]; ok {
			return fmt.Sprintf("https://twitter.com/i/status/%v", id)
		}
		return ""
	default:
		return v
	}
}
