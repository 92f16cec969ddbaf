package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rivo/uniseg"
)

const (
	cornerTopLeft     = "╭"
	cornerTopRight    = "╮"
	cornerBottomLeft  = "╰"
	cornerBottomRight = "╯"
	edgeHorizontal    = "─"
	edgeVertical      = "│"
)

// Section is a bordered box whose title sits in the top border:
//
//	╭─ Link ─────────╮
//	│https://        │
//	╰────────────────╯
type Section struct {
	Title   string
	Hint    string
	Width   int
	Focused bool
}

// Render draws rows inside the section. Rows wider than the box are
// truncated.
func (s Section) Render(rows ...string) string {
	color := lipgloss.TerminalColor(BorderDefaultColor)
	if s.Focused {
		color = BorderHighlightFocusColor
	}
	edge := lipgloss.NewStyle().Foreground(color)
	inner := max(s.Width-2, 1)

	var b strings.Builder
	b.WriteString(s.top(edge, inner))
	for _, row := range rows {
		row = truncate(row, inner)
		b.WriteString("\n")
		b.WriteString(edge.Render(edgeVertical))
		b.WriteString(row)
		b.WriteString(strings.Repeat(" ", max(inner-lipgloss.Width(row), 0)))
		b.WriteString(edge.Render(edgeVertical))
	}
	b.WriteString("\n")
	b.WriteString(edge.Render(cornerBottomLeft + strings.Repeat(edgeHorizontal, inner) + cornerBottomRight))
	return b.String()
}

func (s Section) top(edge lipgloss.Style, inner int) string {
	if s.Title == "" {
		return edge.Render(cornerTopLeft + strings.Repeat(edgeHorizontal, inner) + cornerTopRight)
	}
	label := lipgloss.NewStyle().Bold(true).Foreground(edge.GetForeground()).Render(s.Title)
	used := uniseg.StringWidth(s.Title) + 3
	if s.Hint != "" {
		label += " " + lipgloss.NewStyle().Foreground(TextMutedColor).Render("("+s.Hint+")")
		used += uniseg.StringWidth(s.Hint) + 3
	}
	return edge.Render(cornerTopLeft+edgeHorizontal+" ") + label +
		edge.Render(" "+strings.Repeat(edgeHorizontal, max(inner-used, 0))+cornerTopRight)
}

func truncate(row string, width int) string {
	if lipgloss.Width(row) <= width {
		return row
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(row)
}
