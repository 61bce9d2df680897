package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tonegrid/grid"
	"tonegrid/theme"
)

// GridView is what the step grid widget draws
type GridView struct {
	Cells      [grid.Rows][grid.Cols]bool
	Freqs      []float64 // per row, highest first
	Playhead   int       // -1 when stopped
	CursorRow  int
	CursorCol  int
	ShowCursor bool
}

// RenderGrid draws the 8x8 grid with a frequency label per row and a
// step ruler underneath
func RenderGrid(v GridView, th *theme.Theme) string {
	sym := th.Symbols
	labelStyle := lipgloss.NewStyle().Foreground(th.Muted())
	onStyle := lipgloss.NewStyle().Foreground(th.Active())
	playStyle := lipgloss.NewStyle().Foreground(th.Success()).Bold(true)
	headStyle := lipgloss.NewStyle().Foreground(th.Muted())
	cursorStyle := lipgloss.NewStyle().Foreground(th.Cursor()).Bold(true)

	var lines []string
	for r := 0; r < grid.Rows; r++ {
		var line strings.Builder
		label := "        "
		if r < len(v.Freqs) {
			label = fmt.Sprintf("%8.2f", v.Freqs[r])
		}
		line.WriteString(labelStyle.Render(label + " Hz "))

		for c := 0; c < grid.Cols; c++ {
			on := v.Cells[r][c]
			head := c == v.Playhead
			cursor := v.ShowCursor && r == v.CursorRow && c == v.CursorCol

			var ch rune
			style := lipgloss.NewStyle()
			switch {
			case cursor && on && head:
				ch, style = sym.CursorPlayhead, cursorStyle
			case cursor && on:
				ch, style = sym.CursorOn, cursorStyle
			case cursor:
				ch, style = sym.CursorOff, cursorStyle
			case on && head:
				ch, style = sym.CellPlayhead, playStyle
			case on:
				ch, style = sym.CellOn, onStyle
			case head:
				ch, style = sym.ColPlayhead, headStyle
			default:
				ch, style = sym.CellOff, labelStyle
			}
			line.WriteString(" ")
			line.WriteString(style.Render(string(ch)))
		}
		lines = append(lines, line.String())
	}

	// step ruler
	var ruler strings.Builder
	ruler.WriteString(strings.Repeat(" ", 12))
	for c := 0; c < grid.Cols; c++ {
		ruler.WriteString(" ")
		n := fmt.Sprintf("%d", c+1)
		if c == v.Playhead {
			ruler.WriteString(playStyle.Render(n))
		} else {
			ruler.WriteString(labelStyle.Render(n))
		}
	}
	lines = append(lines, ruler.String())

	return strings.Join(lines, "\n")
}
