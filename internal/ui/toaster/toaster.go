// Package toaster shows transient notifications and the busy indicator at
// the bottom of the editor.
package toaster

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/draftpad/internal/ui/overlay"
	"github.com/zjrosen/draftpad/internal/ui/styles"
)

// DefaultDismiss is how long a toast stays up.
const DefaultDismiss = 4 * time.Second

// Style determines the look of a toast.
type Style int

const (
	StyleError Style = iota
	StyleInfo
)

// DismissMsg hides the toast it was scheduled for. Toasts shown after the
// schedule are left alone.
type DismissMsg struct{ ID int }

// Model holds the toast and busy indicator state.
type Model struct {
	message string
	style   Style
	id      int

	busy    bool
	label   string
	spinner spinner.Model
}

func New() Model {
	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot))
	sp.Style = lipgloss.NewStyle().Foreground(styles.SpinnerColor)
	return Model{spinner: sp}
}

// Show displays message and returns the command that dismisses it after d.
func (m Model) Show(message string, style Style, d time.Duration) (Model, tea.Cmd) {
	m.id++
	m.message = message
	m.style = style
	id := m.id
	return m, tea.Tick(d, func(time.Time) tea.Msg { return DismissMsg{ID: id} })
}

// Hide dismisses the toast immediately.
func (m Model) Hide() Model {
	m.message = ""
	return m
}

// SetBusy starts or stops the busy indicator.
func (m Model) SetBusy(on bool, label string) (Model, tea.Cmd) {
	wasBusy := m.busy
	m.busy = on
	m.label = label
	if on && !wasBusy {
		return m, m.spinner.Tick
	}
	return m, nil
}

func (m Model) Visible() bool { return m.message != "" || m.busy }
func (m Model) Busy() bool    { return m.busy }
func (m Model) Message() string {
	return m.message
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case DismissMsg:
		if msg.ID == m.id {
			m.message = ""
		}
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the toast box, the busy line, or nothing.
func (m Model) View() string {
	box := lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder())
	switch {
	case m.message != "" && m.style == StyleError:
		return box.BorderForeground(styles.ToastBorderErrorColor).Render("❌ " + m.message)
	case m.message != "":
		return box.BorderForeground(styles.ToastBorderInfoColor).Render("ℹ️ " + m.message)
	case m.busy:
		return box.BorderForeground(styles.ToastBorderInfoColor).Render(m.spinner.View() + " " + m.label)
	}
	return ""
}

// Overlay renders the toast above the bottom edge of bg.
func (m Model) Overlay(bg string, width, height int) string {
	if !m.Visible() {
		return bg
	}
	return overlay.Place(overlay.Config{
		Width:    width,
		Height:   height,
		Position: overlay.Bottom,
		PadY:     1,
	}, m.View(), bg)
}
