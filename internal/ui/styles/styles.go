// Package styles contains Lip Gloss style definitions for the editor host.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Text hierarchy
	TextPrimaryColor     = lipgloss.AdaptiveColor{Light: "#2D3436", Dark: "#CCCCCC"}
	TextSecondaryColor   = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BBBBBB"}
	TextMutedColor       = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#696969"} // hints, status bar, footers
	TextPlaceholderColor = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#777777"}

	BorderDefaultColor        = lipgloss.AdaptiveColor{Light: "#BBBBBB", Dark: "#696969"}
	BorderHighlightFocusColor = lipgloss.AdaptiveColor{Light: "#54A0FF", Dark: "#54A0FF"}

	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	StatusWarningColor = lipgloss.AdaptiveColor{Light: "#FECA57", Dark: "#FECA57"}
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}

	// Buttons
	ButtonTextColor             = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#FFFFFF"}
	ButtonPrimaryBgColor        = lipgloss.AdaptiveColor{Light: "#1A5276", Dark: "#1A5276"}
	ButtonPrimaryFocusBgColor   = lipgloss.AdaptiveColor{Light: "#3498DB", Dark: "#3498DB"}
	ButtonSecondaryBgColor      = lipgloss.AdaptiveColor{Light: "#2D3436", Dark: "#2D3436"}
	ButtonSecondaryFocusBgColor = lipgloss.AdaptiveColor{Light: "#636E72", Dark: "#636E72"}
	ButtonDangerBgColor         = lipgloss.AdaptiveColor{Light: "#922B21", Dark: "#922B21"}
	ButtonDangerFocusBgColor    = lipgloss.AdaptiveColor{Light: "#E74C3C", Dark: "#E74C3C"}

	baseButtonStyle = lipgloss.NewStyle().Padding(0, 2).Bold(true)

	PrimaryButtonStyle = baseButtonStyle.
				Foreground(ButtonTextColor).
				Background(ButtonPrimaryBgColor)

	PrimaryButtonFocusedStyle = baseButtonStyle.
					Foreground(ButtonTextColor).
					Background(ButtonPrimaryFocusBgColor).
					Underline(true).
					UnderlineSpaces(true)

	SecondaryButtonStyle = baseButtonStyle.
				Foreground(ButtonTextColor).
				Background(ButtonSecondaryBgColor)

	SecondaryButtonFocusedStyle = baseButtonStyle.
					Foreground(ButtonTextColor).
					Background(ButtonSecondaryFocusBgColor).
					Underline(true).
					UnderlineSpaces(true)

	DangerButtonStyle = baseButtonStyle.
				Foreground(ButtonTextColor).
				Background(ButtonDangerBgColor)

	DangerButtonFocusedStyle = baseButtonStyle.
					Foreground(ButtonTextColor).
					Background(ButtonDangerFocusBgColor).
					Underline(true).
					UnderlineSpaces(true)

	// Overlays
	OverlayTitleColor  = lipgloss.AdaptiveColor{Light: "#2D3436", Dark: "#C9C9C9"}
	OverlayBorderColor = lipgloss.AdaptiveColor{Light: "#BBBBBB", Dark: "#8C8C8C"}

	// Toasts
	ToastBorderErrorColor = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}
	ToastBorderInfoColor  = lipgloss.AdaptiveColor{Light: "#54A0FF", Dark: "#54A0FF"}
	SpinnerColor          = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#FFF"}

	// Document rendering
	LinkColor       = lipgloss.AdaptiveColor{Light: "#1E66F5", Dark: "#89B4FA"}
	CodeColor       = lipgloss.AdaptiveColor{Light: "#D20F39", Dark: "#F38BA8"}
	HeaderColor     = lipgloss.AdaptiveColor{Light: "#8839EF", Dark: "#CBA6F7"}
	QuoteColor      = lipgloss.AdaptiveColor{Light: "#9CA0B0", Dark: "#6C7086"}
	EmbedColor      = lipgloss.AdaptiveColor{Light: "#179299", Dark: "#94E2D5"}
	MentionColor    = lipgloss.AdaptiveColor{Light: "#DF8E1D", Dark: "#F9E2AF"}
	CaretStyle      = lipgloss.NewStyle().Reverse(true)
	SelectionStyle  = lipgloss.NewStyle().Background(lipgloss.AdaptiveColor{Light: "#D0E4FF", Dark: "#3B4261"})
	DisabledStyle   = lipgloss.NewStyle().Foreground(TextPlaceholderColor)
	PlaceholderText = lipgloss.NewStyle().Foreground(TextPlaceholderColor).Italic(true)

	// Toolbar
	ToolbarButtonStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(TextSecondaryColor)
	ToolbarButtonActiveStyle = ToolbarButtonStyle.Foreground(BorderHighlightFocusColor).Bold(true)

	// Popup list (mentions)
	SelectionIndicatorColor = lipgloss.AdaptiveColor{Light: "#000000", Dark: "#FFFFFF"}
	SelectionIndicatorStyle = lipgloss.NewStyle().Bold(true).Foreground(SelectionIndicatorColor)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextMutedColor).
			Padding(0, 1)

	ModeBadgeStyle = lipgloss.NewStyle().
			Foreground(ButtonTextColor).
			Background(ButtonPrimaryBgColor).
			Padding(0, 1)
)

// ApplyTheme overrides the muted and error colors. Empty strings keep the
// defaults.
func ApplyTheme(muted, errorColor string) {
	if muted != "" {
		TextMutedColor = lipgloss.AdaptiveColor{Light: muted, Dark: muted}
		BorderDefaultColor = lipgloss.AdaptiveColor{Light: muted, Dark: muted}
		StatusBarStyle = StatusBarStyle.Foreground(TextMutedColor)
	}
	if errorColor != "" {
		StatusErrorColor = lipgloss.AdaptiveColor{Light: errorColor, Dark: errorColor}
		ToastBorderErrorColor = StatusErrorColor
	}
}
