// Package modal provides the confirmation dialog and the single-line prompt
// the editor asks through.
package modal

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/draftpad/internal/ui/overlay"
	"github.com/zjrosen/draftpad/internal/ui/styles"
)

// ButtonVariant controls the styling of the confirm button.
type ButtonVariant int

const (
	ButtonPrimary ButtonVariant = iota
	ButtonDanger
)

const defaultMinWidth = 40

// Config controls modal appearance. With Prompt set the modal shows a text
// input; otherwise it only asks for confirmation.
type Config struct {
	Title          string
	Message        string
	ConfirmLabel   string // default "Confirm", or "Save" for prompts
	CancelLabel    string // default "Cancel"
	Prompt         bool
	Value          string // initial input value
	Placeholder    string
	ConfirmVariant ButtonVariant
	MinWidth       int
}

// SubmitMsg is sent when the confirm button is chosen. Value holds the input
// for prompts and may be empty.
type SubmitMsg struct {
	Value string
}

// CancelMsg is sent on esc or the cancel button.
type CancelMsg struct{}

// Field identifies the focused button.
type Field int

const (
	FieldConfirm Field = iota
	FieldCancel
)

// Model is the modal state.
type Model struct {
	config       Config
	input        textinput.Model
	inputFocused bool
	focusedField Field
	width        int
	height       int
}

func New(cfg Config) Model {
	if cfg.ConfirmLabel == "" {
		cfg.ConfirmLabel = "Confirm"
		if cfg.Prompt {
			cfg.ConfirmLabel = "Save"
		}
	}
	if cfg.CancelLabel == "" {
		cfg.CancelLabel = "Cancel"
	}
	m := Model{config: cfg, focusedField: FieldConfirm}
	if cfg.Prompt {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = cfg.Placeholder
		ti.Width = m.contentWidth() - 2
		ti.SetValue(cfg.Value)
		ti.CursorEnd()
		ti.Focus()
		m.input = ti
		m.inputFocused = true
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.config.Prompt {
		return textinput.Blink
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down":
			return m.cycle(), nil
		case "shift+tab", "up":
			return m.cycle(), nil
		case "left", "right":
			if !m.inputFocused {
				m.focusedField = 1 - m.focusedField
				return m, nil
			}
		case "enter":
			if m.inputFocused || m.focusedField == FieldConfirm {
				value := m.input.Value()
				return m, func() tea.Msg { return SubmitMsg{Value: value} }
			}
			return m, func() tea.Msg { return CancelMsg{} }
		case "esc":
			return m, func() tea.Msg { return CancelMsg{} }
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	}

	if m.inputFocused {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// cycle moves focus input → confirm → cancel → input. Without an input it
// toggles between the buttons.
func (m Model) cycle() Model {
	switch {
	case m.inputFocused:
		m.inputFocused = false
		m.input.Blur()
		m.focusedField = FieldConfirm
	case m.focusedField == FieldConfirm:
		m.focusedField = FieldCancel
	case m.config.Prompt:
		m.inputFocused = true
		m.input.Focus()
	default:
		m.focusedField = FieldConfirm
	}
	return m
}

func (m Model) contentWidth() int {
	w := max(m.config.MinWidth, defaultMinWidth)
	return max(w, lipgloss.Width(m.config.Title))
}

// View renders the modal box without the background.
func (m Model) View() string {
	width := m.contentWidth()

	var body strings.Builder
	if m.config.Message != "" {
		body.WriteString(lipgloss.NewStyle().Foreground(styles.TextPrimaryColor).Width(width).Render(m.config.Message))
		body.WriteString("\n\n")
	}
	if m.config.Prompt {
		body.WriteString(styles.Section{Width: width, Focused: m.inputFocused}.Render(m.input.View()))
		body.WriteString("\n\n")
	}
	body.WriteString(m.buttons())

	var out strings.Builder
	if m.config.Title != "" {
		out.WriteString(lipgloss.NewStyle().Bold(true).Foreground(styles.OverlayTitleColor).PaddingLeft(1).Render(m.config.Title))
		out.WriteString("\n")
		out.WriteString(lipgloss.NewStyle().Foreground(styles.OverlayBorderColor).Render(strings.Repeat("─", width+2)))
		out.WriteString("\n")
	}
	out.WriteString(lipgloss.NewStyle().Padding(1, 1).Render(body.String()))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.OverlayBorderColor).
		Width(width + 2).
		Render(out.String())
}

func (m Model) buttons() string {
	onConfirm := !m.inputFocused && m.focusedField == FieldConfirm
	onCancel := !m.inputFocused && m.focusedField == FieldCancel

	confirm := styles.PrimaryButtonStyle
	switch {
	case m.config.ConfirmVariant == ButtonDanger && onConfirm:
		confirm = styles.DangerButtonFocusedStyle
	case m.config.ConfirmVariant == ButtonDanger:
		confirm = styles.DangerButtonStyle
	case onConfirm:
		confirm = styles.PrimaryButtonFocusedStyle
	}
	cancel := styles.SecondaryButtonStyle
	if onCancel {
		cancel = styles.SecondaryButtonFocusedStyle
	}
	return confirm.Render(m.config.ConfirmLabel) + "  " + cancel.Render(m.config.CancelLabel)
}

// Overlay renders the modal centered on bg.
func (m Model) Overlay(bg string) string {
	return overlay.Place(overlay.Config{
		Width:    m.width,
		Height:   m.height,
		Position: overlay.Center,
	}, m.View(), bg)
}

// SetSize records the viewport size used for centering.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Value returns the current input text.
func (m Model) Value() string { return m.input.Value() }

// InputFocused reports whether the text input has focus.
func (m Model) InputFocused() bool { return m.inputFocused }

// FocusedField returns the focused button when the input is not focused.
func (m Model) FocusedField() Field { return m.focusedField }
