// Package logpane shows the debug log inside the editor. Entries arrive as
// log events from the logger's broker and are kept in a bounded buffer.
package logpane

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/zjrosen/draftpad/internal/log"
	"github.com/zjrosen/draftpad/internal/ui/overlay"
	"github.com/zjrosen/draftpad/internal/ui/styles"
)

const (
	DefaultCapacity = 500

	viewportMaxHeight = 20
	viewportMinHeight = 3
	boxMaxWidth       = 140
	boxMinWidth       = 30
	chromeHeight      = 6 // title, two dividers, hints and borders
)

// CloseMsg is sent when the pane closes itself.
type CloseMsg struct{}

// Model is the log pane state.
type Model struct {
	entries  []string
	capacity int
	visible  bool
	minLevel log.Level
	width    int
	height   int
	viewport viewport.Model
}

// New creates a hidden pane holding at most capacity entries.
func New(capacity int) Model {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return Model{capacity: capacity, minLevel: log.LevelDebug}
}

// Append adds one log line, dropping the oldest once full.
func (m Model) Append(entry string) Model {
	entry = strings.TrimSuffix(entry, "\n")
	if entry == "" {
		return m
	}
	m.entries = append(m.entries, entry)
	if over := len(m.entries) - m.capacity; over > 0 {
		m.entries = append([]string(nil), m.entries[over:]...)
	}
	if m.visible {
		atBottom := m.viewport.AtBottom()
		m.refresh()
		if atBottom {
			m.viewport.GotoBottom()
		}
	}
	return m
}

// Entries returns the buffered lines that pass the level filter.
func (m Model) Entries() []string {
	var out []string
	for _, e := range m.entries {
		if entryLevel(e) >= m.minLevel {
			out = append(out, e)
		}
	}
	return out
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.visible {
		return m, nil
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "c":
		m.entries = nil
		m.refresh()
	case "d":
		m.setLevel(log.LevelDebug)
	case "i":
		m.setLevel(log.LevelInfo)
	case "w":
		m.setLevel(log.LevelWarn)
	case "e":
		m.setLevel(log.LevelError)
	case "j", "down":
		m.viewport.ScrollDown(1)
	case "k", "up":
		m.viewport.ScrollUp(1)
	case "g":
		m.viewport.GotoTop()
	case "G":
		m.viewport.GotoBottom()
	case "esc":
		m.visible = false
		return m, func() tea.Msg { return CloseMsg{} }
	}
	return m, nil
}

func (m *Model) setLevel(level log.Level) {
	m.minLevel = level
	m.refresh()
	m.viewport.GotoBottom()
}

// MinLevel is the lowest level shown.
func (m Model) MinLevel() log.Level { return m.minLevel }

func (m Model) Visible() bool { return m.visible }

func (m *Model) Toggle() {
	m.visible = !m.visible
	if m.visible {
		m.refresh()
		m.viewport.GotoBottom()
	}
}

func (m *Model) SetSize(width, height int) {
	m.width, m.height = width, height
	m.refresh()
}

func (m Model) boxWidth() int {
	return max(min(m.width-4, boxMaxWidth), boxMinWidth)
}

func (m *Model) refresh() {
	if m.width == 0 || m.height == 0 {
		return
	}
	w := m.boxWidth() - 2
	h := max(min(viewportMaxHeight, m.height-chromeHeight), viewportMinHeight)
	offset := m.viewport.YOffset
	m.viewport = viewport.New(w, h)
	m.viewport.SetContent(m.content(w))
	m.viewport.SetYOffset(offset)
}

func (m Model) content(width int) string {
	entries := m.Entries()
	if len(entries) == 0 {
		return lipgloss.NewStyle().Foreground(styles.TextMutedColor).Italic(true).Render("No log entries")
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		if ansi.StringWidth(e) > width {
			e = ansi.Truncate(e, width-1, "…")
		}
		lines[i] = lipgloss.NewStyle().Foreground(levelColor(entryLevel(e))).Render(e)
	}
	return strings.Join(lines, "\n")
}

func (m Model) View() string {
	if !m.visible {
		return ""
	}
	w := m.boxWidth()
	divider := lipgloss.NewStyle().Foreground(styles.OverlayBorderColor).Render(strings.Repeat("─", w-2))
	title := lipgloss.NewStyle().Bold(true).Foreground(styles.OverlayTitleColor).PaddingLeft(1).Render("Debug log")
	body := strings.Join([]string{title, divider, m.viewport.View(), divider, m.hints()}, "\n")
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.OverlayBorderColor).
		Width(w - 2).
		Render(body)
}

// Overlay draws the pane centered over bg.
func (m Model) Overlay(bg string) string {
	if !m.visible {
		return bg
	}
	return overlay.Place(overlay.Config{Width: m.width, Height: m.height, Position: overlay.Center}, m.View(), bg)
}

func (m Model) hints() string {
	muted := lipgloss.NewStyle().Foreground(styles.TextMutedColor)
	active := lipgloss.NewStyle().Foreground(styles.TextPrimaryColor).Bold(true)
	parts := []string{muted.Render("[c] clear")}
	for _, f := range []struct {
		label string
		level log.Level
	}{
		{"[d] debug", log.LevelDebug},
		{"[i] info", log.LevelInfo},
		{"[w] warn", log.LevelWarn},
		{"[e] error", log.LevelError},
	} {
		if f.level == m.minLevel {
			parts = append(parts, active.Render(f.label))
		} else {
			parts = append(parts, muted.Render(f.label))
		}
	}
	return strings.Join(parts, "  ")
}

// entryLevel reads the level tag written by the logger. Untagged lines
// count as errors so a filter never hides them.
func entryLevel(entry string) log.Level {
	for _, l := range []log.Level{log.LevelError, log.LevelWarn, log.LevelInfo, log.LevelDebug} {
		if strings.Contains(entry, "["+l.String()+"]") {
			return l
		}
	}
	return log.LevelError
}

func levelColor(l log.Level) lipgloss.TerminalColor {
	switch l {
	case log.LevelError:
		return styles.StatusErrorColor
	case log.LevelWarn:
		return styles.StatusWarningColor
	case log.LevelInfo:
		return styles.ToastBorderInfoColor
	default:
		return styles.TextMutedColor
	}
}
