// Package markdown renders the document preview with glamour.
package markdown

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
)

// flush drops glamour's document margins so the preview lines up with the
// editor pane.
const flush = `{"document": {"margin": 0, "block_prefix": "", "block_suffix": ""}}`

// Renderer renders markdown at a fixed wrap width.
type Renderer struct {
	renderer *glamour.TermRenderer
	width    int
	style    string
}

// New creates a renderer. style is "dark", "light" or "" for auto detection.
func New(width int, style string) (*Renderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	switch style {
	case "":
		opts = append(opts, glamour.WithAutoStyle())
	case styles.DarkStyle, styles.LightStyle, styles.NoTTYStyle:
		opts = append(opts, glamour.WithStandardStyle(style))
	default:
		return nil, fmt.Errorf("unknown markdown style %q", style)
	}
	opts = append(opts, glamour.WithStylesFromJSONBytes([]byte(flush)))

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating markdown renderer: %w", err)
	}
	return &Renderer{renderer: r, width: width, style: style}, nil
}

func (r *Renderer) Width() int { return r.width }

// Resize returns a renderer for width, or r itself when the width is unchanged.
func (r *Renderer) Resize(width int) (*Renderer, error) {
	if width == r.width {
		return r, nil
	}
	return New(width, r.style)
}

// Render transforms markdown into styled terminal output without trailing
// blank lines.
func (r *Renderer) Render(md string) (string, error) {
	out, err := r.renderer.Render(md)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return strings.TrimRight(out, "\n "), nil
}
