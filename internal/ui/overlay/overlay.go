// Package overlay draws popups (modals, toasts, the mention list) over the
// editor view without clearing what is underneath.
package overlay

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Position selects where the popup goes.
type Position int

const (
	Center Position = iota
	Top
	Bottom
	// Anchor places the popup's top-left corner at (X, Y), the cell below
	// the anchor line. A popup that would run off the right edge shifts
	// left; one that would run off the bottom ends on the row above the
	// anchor line (Y-2) instead.
	Anchor
)

// Config describes the viewport and placement.
type Config struct {
	Width    int
	Height   int
	Position Position
	PadY     int // distance from the edge for Top and Bottom
	X, Y     int // Anchor coordinates
}

// Place draws fg on top of bg. Both may contain ANSI styling.
func Place(cfg Config, fg, bg string) string {
	fgLines := strings.Split(fg, "\n")
	bgLines := strings.Split(bg, "\n")
	for len(bgLines) < cfg.Height {
		bgLines = append(bgLines, strings.Repeat(" ", cfg.Width))
	}

	x, y := origin(cfg, lipgloss.Width(fg), len(fgLines))
	for i, line := range fgLines {
		row := y + i
		if row >= len(bgLines) {
			break
		}
		bgLines[row] = splice(bgLines[row], line, x)
	}
	return strings.Join(bgLines, "\n")
}

// splice replaces the cells of bg starting at column x with fg.
func splice(bg, fg string, x int) string {
	left := ansi.Truncate(bg, x, "")
	if w := ansi.StringWidth(left); w < x {
		left += strings.Repeat(" ", x-w)
	}
	end := x + ansi.StringWidth(fg)
	var right string
	if end < ansi.StringWidth(bg) {
		right = ansi.TruncateLeft(bg, end, "")
	}
	return left + fg + right
}

func origin(cfg Config, w, h int) (x, y int) {
	switch cfg.Position {
	case Top:
		x, y = (cfg.Width-w)/2, cfg.PadY
	case Bottom:
		x, y = (cfg.Width-w)/2, cfg.Height-h-cfg.PadY
	case Anchor:
		x, y = cfg.X, cfg.Y
		if x+w > cfg.Width {
			x = cfg.Width - w
		}
		if y+h > cfg.Height {
			// flip above the anchor row
			y = cfg.Y - h - 1
		}
	default:
		x, y = (cfg.Width-w)/2, (cfg.Height-h)/2
	}
	return max(x, 0), max(y, 0)
}
