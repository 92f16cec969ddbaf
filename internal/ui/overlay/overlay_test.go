package overlay

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/require"
)

func grid(w, h int) string {
	return strings.TrimSuffix(strings.Repeat(strings.Repeat(".", w)+"\n", h), "\n")
}

func TestPlace_Positions(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		fg   string
		want []string
	}{
		{
			name: "center",
			cfg:  Config{Width: 6, Height: 3, Position: Center},
			fg:   "XX",
			want: []string{"......", "..XX..", "......"},
		},
		{
			name: "top with padding",
			cfg:  Config{Width: 6, Height: 3, Position: Top, PadY: 1},
			fg:   "XX",
			want: []string{"......", "..XX..", "......"},
		},
		{
			name: "bottom",
			cfg:  Config{Width: 6, Height: 3, Position: Bottom},
			fg:   "XXXX",
			want: []string{"......", "......", ".XXXX."},
		},
		{
			name: "anchor",
			cfg:  Config{Width: 6, Height: 4, Position: Anchor, X: 1, Y: 1},
			fg:   "ab\ncd",
			want: []string{"......", ".ab...", ".cd...", "......"},
		},
		{
			name: "anchor shifted left at the right edge",
			cfg:  Config{Width: 6, Height: 3, Position: Anchor, X: 5, Y: 0},
			fg:   "abc",
			want: []string{"...abc", "......", "......"},
		},
		{
			name: "anchor fits on the last row",
			cfg:  Config{Width: 6, Height: 4, Position: Anchor, X: 0, Y: 3},
			fg:   "ab",
			want: []string{"......", "......", "......", "ab...."},
		},
		{
			name: "anchor flipped above the bottom edge",
			cfg:  Config{Width: 6, Height: 4, Position: Anchor, X: 0, Y: 3},
			fg:   "ab\ncd",
			want: []string{"ab....", "cd....", "......", "......"},
		},
		{
			name: "anchor flip clamps at the top",
			cfg:  Config{Width: 6, Height: 3, Position: Anchor, X: 1, Y: 2},
			fg:   "ab\ncd",
			want: []string{".ab...", ".cd...", "......"},
		},
		{
			name: "oversized foreground clamps to origin",
			cfg:  Config{Width: 3, Height: 2, Position: Center},
			fg:   "XXXXX",
			want: []string{"XXXXX", "..."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bg := grid(tt.cfg.Width, tt.cfg.Height)
			require.Equal(t, tt.want, strings.Split(Place(tt.cfg, tt.fg, bg), "\n"))
		})
	}
}

func TestPlace_PadsShortBackground(t *testing.T) {
	out := Place(Config{Width: 4, Height: 3, Position: Bottom}, "X", "")
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	require.Equal(t, " X  ", lines[2])
}

func TestPlace_PreservesStyledBackground(t *testing.T) {
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	bg := red.Render("AAAAAAAA")
	out := Place(Config{Width: 8, Height: 1, Position: Center}, "XX", bg)

	require.Equal(t, "AAAXXAAA", ansi.Strip(out))
}
