package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tonegrid/midi"
	"tonegrid/theme"
)

// RenderPad renders a single colored pad
func RenderPad(color [3]uint8) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Hex(color)))
	return style.Render("■")
}

// RenderLaunchpad draws lit LEDs as the controller shows them: the round
// top row first, then pad rows 7 down to 0 with the scene column on the
// right. Dark pads are drawn as empty.
func RenderLaunchpad(leds []midi.LEDUpdate, empty rune) string {
	var lit [midi.TopRow + 1][midi.SideColumn + 1]*[3]uint8
	for i := range leds {
		l := leds[i]
		if l.Row < 0 || l.Row > midi.TopRow || l.Col < 0 || l.Col > midi.SideColumn {
			continue
		}
		c := l.Color
		lit[l.Row][l.Col] = &c
	}

	dark := string(empty)
	var lines []string
	for row := midi.TopRow; row >= 0; row-- {
		var line strings.Builder
		for col := 0; col <= midi.SideColumn; col++ {
			if row == midi.TopRow && col == midi.SideColumn {
				break
			}
			if col == midi.SideColumn {
				line.WriteString(" ")
			}
			if c := lit[row][col]; c != nil && *c != ([3]uint8{}) {
				line.WriteString(RenderPad(*c))
			} else {
				line.WriteString(dark)
			}
			line.WriteString(" ")
		}
		lines = append(lines, strings.TrimRight(line.String(), " "))
		if row == midi.TopRow {
			lines = append(lines, "")
		}
	}
	return strings.Join(lines, "\n")
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
