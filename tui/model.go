package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hako/durafmt"

	"tonegrid/debug"
	"tonegrid/grid"
	"tonegrid/midi"
	"tonegrid/scale"
	"tonegrid/sequencer"
	"tonegrid/theme"
	"tonegrid/widgets"
)

const tempoStep = 5

type Model struct {
	Seq       *sequencer.Sequencer
	Surface   *sequencer.Surface  // may be nil
	DeviceMgr *midi.DeviceManager // may be nil
	Theme     *theme.Theme

	updates   <-chan struct{}
	cursorRow int
	cursorCol int
	status    string // last error, shown under the grid
	showPads  bool   // Launchpad mirror
	quitting  bool
	now       func() time.Time
}

type UpdateMsg struct{}

type DeviceEventMsg midi.DeviceEvent

type tickMsg time.Time

func NewModel(seq *sequencer.Sequencer, surface *sequencer.Surface, deviceMgr *midi.DeviceManager, th *theme.Theme) Model {
	return Model{
		Seq:       seq,
		Surface:   surface,
		DeviceMgr: deviceMgr,
		Theme:     th,
		updates:   seq.Subscribe(),
		now:       time.Now,
	}
}

func ListenForUpdates(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return UpdateMsg{}
	}
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-deviceMgr.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

// tick refreshes the play clock in the header
func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{ListenForUpdates(m.updates), tick()}
	if m.DeviceMgr != nil {
		cmds = append(cmds, ListenForDevices(m.DeviceMgr))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case UpdateMsg:
		return m, ListenForUpdates(m.updates)

	case tickMsg:
		return m, tick()

	case DeviceEventMsg:
		m.handleDevice(midi.DeviceEvent(msg))
		return m, ListenForDevices(m.DeviceMgr)
	}

	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	st := m.Seq.State()
	var err error

	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		if err := m.Seq.Stop(); err != nil {
			debug.Log("tui", "stop on quit: %v", err)
		}
		return m, tea.Quit

	case "up", "k":
		m.cursorRow = (m.cursorRow + grid.Rows - 1) % grid.Rows
	case "down", "j":
		m.cursorRow = (m.cursorRow + 1) % grid.Rows
	case "left", "h":
		m.cursorCol = (m.cursorCol + grid.Cols - 1) % grid.Cols
	case "right", "l":
		m.cursorCol = (m.cursorCol + 1) % grid.Cols

	case " ", "enter":
		m.Seq.ToggleCell(m.cursorRow, m.cursorCol)

	case "p":
		err = m.Seq.TogglePlay()
	case "c":
		err = m.Seq.Clear()
	case "r":
		m.Seq.Randomize()
	case "v":
		m.showPads = !m.showPads

	case "+", "=", "-", "_":
		if !st.ControlsEnabled() {
			return m, nil
		}
		delta := float64(tempoStep)
		if key == "-" || key == "_" {
			delta = -delta
		}
		err = m.Seq.SetTempo(st.BPM + delta)

	case "t", "T":
		if !st.ControlsEnabled() {
			return m, nil
		}
		delta := 1
		if key == "T" {
			delta = -1
		}
		err = m.Seq.SetKey(scale.Next(m.Seq.Tables().TonicNames(), st.Tonic, delta), st.Scale)

	case "s", "S":
		if !st.ControlsEnabled() {
			return m, nil
		}
		delta := 1
		if key == "S" {
			delta = -1
		}
		err = m.Seq.SetKey(st.Tonic, scale.Next(m.Seq.Tables().ScaleNames(), st.Scale, delta))

	default:
		return m, nil
	}

	m.status = ""
	if err != nil {
		debug.Log("tui", "key %q: %v", key, err)
		m.status = err.Error()
		if errors.Is(err, sequencer.ErrAudioUnavailable) {
			m.status = "no audio output: " + err.Error()
		}
	}
	return m, nil
}

func (m *Model) handleDevice(event midi.DeviceEvent) {
	switch event.Type {
	case midi.DeviceConnected:
		c := event.Controller
		switch c.Type() {
		case midi.ControllerLaunchpad:
			if m.Surface == nil {
				return
			}
			m.Surface.SetController(c)
			surface := m.Surface
			go func() {
				for pad := range c.PadEvents() {
					surface.HandlePad(pad)
				}
			}()
		case midi.ControllerKeyboard:
			if m.Surface == nil {
				return
			}
			surface := m.Surface
			go func() {
				for note := range c.NoteEvents() {
					surface.HandleNote(note)
				}
			}()
		}

	case midi.DeviceDisconnected:
		if m.Surface != nil {
			if c := m.Surface.Controller(); c != nil && c.ID() == event.ID {
				m.Surface.SetController(nil)
			}
		}
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	st := m.Seq.State()
	th := m.Theme

	headerStyle := lipgloss.NewStyle().Foreground(th.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())
	warnStyle := lipgloss.NewStyle().Foreground(th.Warning())

	playState := "STOP"
	if st.Playing {
		playState = "PLAY"
	}

	step := "--"
	if st.Playhead >= 0 {
		step = fmt.Sprintf("%02d", st.Playhead+1)
	}

	deviceStatus := ""
	if m.Surface != nil && m.Surface.Controller() != nil {
		deviceStatus = "  LP:X"
	}

	header := headerStyle.Render(fmt.Sprintf("tonegrid  %s  %3.0fbpm  %s %s  step:%s%s",
		playState, st.BPM, st.Tonic, st.Scale, step, deviceStatus))

	session := ""
	if st.Playing {
		elapsed := m.now().Sub(st.Started).Truncate(time.Second)
		session = dimStyle.Render(fmt.Sprintf("session %s  %s", shortID(st.Session), durafmt.Parse(elapsed).LimitFirstN(2)))
	}

	view := widgets.GridView{
		Cells:      m.Seq.Grid().Snapshot(),
		Freqs:      m.Seq.Frequencies(),
		Playhead:   st.Playhead,
		CursorRow:  m.cursorRow,
		CursorCol:  m.cursorCol,
		ShowCursor: true,
	}

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n")
	out.WriteString(session)
	out.WriteString("\n\n")
	out.WriteString(widgets.RenderGrid(view, th))
	out.WriteString("\n")

	if m.showPads && m.Surface != nil {
		out.WriteString("\n")
		out.WriteString(widgets.RenderLaunchpad(m.Surface.RenderLEDs(), th.Symbols.Empty))
		out.WriteString("\n")
	}

	if m.status != "" {
		out.WriteString("\n")
		out.WriteString(warnStyle.Render(m.status))
		out.WriteString("\n")
	}

	out.WriteString("\n")
	out.WriteString(dimStyle.Render(helpText(st.ControlsEnabled())))
	return out.String()
}

func helpText(controls bool) string {
	sections := []widgets.KeySection{{
		Keys: []widgets.KeyBinding{
			{Key: "hjkl/arrows", Desc: "move"},
			{Key: "space", Desc: "toggle cell"},
			{Key: "p", Desc: "play/stop"},
			{Key: "c r", Desc: "clear, randomize"},
			{Key: "v", Desc: "launchpad view"},
		},
	}}
	if controls {
		sections = append(sections, widgets.KeySection{Keys: []widgets.KeyBinding{
			{Key: "+/-", Desc: "tempo"},
			{Key: "t/T s/S", Desc: "tonic, scale"},
		}})
	} else {
		sections = append(sections, widgets.KeySection{Keys: []widgets.KeyBinding{
			{Key: "", Desc: "stop to change tempo or key"},
		}})
	}
	sections = append(sections, widgets.KeySection{Keys: []widgets.KeyBinding{{Key: "q", Desc: "quit"}}})
	return widgets.RenderKeyHelp(sections)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
