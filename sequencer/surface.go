package sequencer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tonegrid/debug"
	"tonegrid/grid"
	"tonegrid/midi"
	"tonegrid/scale"
	"tonegrid/theme"
)

const (
	ledFPS    = 30
	tempoStep = 5
)

// Top row button assignments
const (
	btnPlay = iota
	btnClear
	btnRandomize
	btnTempoDown
	btnTempoUp
	btnTonicDown
	btnTonicUp
)

// Surface mirrors the sequencer on a grid controller and routes its pads
// and keys back. Grid row 0 (highest pitch) is the top row of pads.
type Surface struct {
	seq     *Sequencer
	theme   *theme.Theme
	limiter *rate.Limiter
	kick    chan struct{}

	mu         sync.Mutex
	controller midi.Controller
	prevLEDs   map[[2]int]midi.LEDUpdate // for diffing
}

func NewSurface(seq *Sequencer, th *theme.Theme) *Surface {
	return &Surface{
		seq:      seq,
		theme:    th,
		limiter:  rate.NewLimiter(rate.Every(time.Second/ledFPS), 1),
		kick:     make(chan struct{}, 1),
		prevLEDs: make(map[[2]int]midi.LEDUpdate),
	}
}

// SetController sets the controller for LED feedback; nil detaches
func (s *Surface) SetController(c midi.Controller) {
	debug.Log("ctrl", "SetController, resetting diff state")
	s.mu.Lock()
	s.controller = c
	s.prevLEDs = make(map[[2]int]midi.LEDUpdate)
	s.mu.Unlock()
	s.markDirty()
}

// Controller returns the attached controller, or nil
func (s *Surface) Controller() midi.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller
}

func (s *Surface) markDirty() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// HandlePad routes a pad press
func (s *Surface) HandlePad(ev midi.PadEvent) {
	switch {
	case ev.Row >= 0 && ev.Row < midi.PadRows && ev.Col >= 0 && ev.Col < midi.PadCols:
		s.seq.ToggleCell(grid.Rows-1-ev.Row, ev.Col)
	case ev.Row == midi.TopRow:
		s.handleButton(ev.Col)
	case ev.Col == midi.SideColumn:
		s.selectScale(grid.Rows - 1 - ev.Row)
	}
}

func (s *Surface) handleButton(col int) {
	var err error
	st := s.seq.State()
	switch col {
	case btnPlay:
		err = s.seq.TogglePlay()
	case btnClear:
		err = s.seq.Clear()
	case btnRandomize:
		s.seq.Randomize()
	case btnTempoDown, btnTempoUp:
		if !st.ControlsEnabled() {
			return
		}
		delta := float64(tempoStep)
		if col == btnTempoDown {
			delta = -delta
		}
		err = s.seq.SetTempo(st.BPM + delta)
	case btnTonicDown, btnTonicUp:
		if !st.ControlsEnabled() {
			return
		}
		delta := 1
		if col == btnTonicDown {
			delta = -1
		}
		err = s.seq.SetKey(scale.Next(s.seq.Tables().TonicNames(), st.Tonic, delta), st.Scale)
	}
	if err != nil {
		debug.Log("ctrl", "button %d: %v", col, err)
	}
}

func (s *Surface) selectScale(idx int) {
	st := s.seq.State()
	scales := s.seq.Tables().Scales
	if !st.ControlsEnabled() || idx < 0 || idx >= len(scales) {
		return
	}
	if err := s.seq.SetKey(st.Tonic, scales[idx].Name); err != nil {
		debug.Log("ctrl", "scale %d: %v", idx, err)
	}
}

// HandleNote picks the tonic from a played key while stopped
func (s *Surface) HandleNote(ev midi.NoteEvent) {
	st := s.seq.State()
	if !st.ControlsEnabled() {
		return
	}
	tonic := s.seq.Tables().PitchClass(ev.Note)
	if err := s.seq.SetKey(tonic, st.Scale); err != nil {
		debug.Log("ctrl", "note %d: %v", ev.Note, err)
	}
}

// Run flushes LEDs whenever the sequencer changes, at most ledFPS times a
// second (blocking - run in goroutine)
func (s *Surface) Run(ctx context.Context) {
	updates := s.seq.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
		case <-s.kick:
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		s.Flush()
	}
}

// Flush sends only changed LEDs to the controller (diffing + batching)
func (s *Surface) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.controller == nil {
		return
	}

	newLEDs := s.RenderLEDs()
	newMap := make(map[[2]int]midi.LEDUpdate, len(newLEDs))

	var updates []midi.LEDUpdate
	for _, led := range newLEDs {
		key := [2]int{led.Row, led.Col}
		newMap[key] = led
		if prev, ok := s.prevLEDs[key]; !ok || prev != led {
			updates = append(updates, led)
		}
	}

	// Clear LEDs that are no longer lit
	for key := range s.prevLEDs {
		if _, ok := newMap[key]; !ok {
			updates = append(updates, midi.LEDUpdate{Row: key[0], Col: key[1]})
		}
	}

	if len(updates) > 0 {
		debug.Log("led", "flush: batch=%d prev=%d", len(updates), len(s.prevLEDs))
		if err := s.controller.SetLEDBatch(updates); err != nil {
			debug.Log("led", "flush: %v", err)
		}
	}
	s.prevLEDs = newMap
}

// RenderLEDs returns every lit LED in controller coordinates
func (s *Surface) RenderLEDs() []midi.LEDUpdate {
	st := s.seq.State()
	cells := s.seq.Grid().Snapshot()
	th := s.theme

	var leds []midi.LEDUpdate
	lit := func(row, col int, role float64, channel uint8) {
		leds = append(leds, midi.LEDUpdate{Row: row, Col: col, Color: th.RGB(role), Channel: channel})
	}

	for r := 0; r < grid.Rows; r++ {
		lpRow := grid.Rows - 1 - r
		for c := 0; c < grid.Cols; c++ {
			playhead := c == st.Playhead
			switch {
			case cells[r][c] && playhead:
				lit(lpRow, c, theme.RoleSuccess, midi.ChannelStatic)
			case cells[r][c]:
				lit(lpRow, c, theme.RoleActive, midi.ChannelStatic)
			case playhead:
				lit(lpRow, c, theme.RoleMuted, midi.ChannelStatic)
			}
		}
	}

	if st.Playing {
		lit(midi.TopRow, btnPlay, theme.RoleSuccess, midi.ChannelPulse)
	} else {
		lit(midi.TopRow, btnPlay, theme.RoleAccent, midi.ChannelStatic)
	}
	lit(midi.TopRow, btnClear, theme.RoleWarning, midi.ChannelStatic)
	lit(midi.TopRow, btnRandomize, theme.RoleCursor, midi.ChannelStatic)

	scales := s.seq.Tables().Scales
	if st.ControlsEnabled() {
		for _, col := range []int{btnTempoDown, btnTempoUp, btnTonicDown, btnTonicUp} {
			lit(midi.TopRow, col, theme.RoleFG, midi.ChannelStatic)
		}
		for i := range scales {
			if i >= grid.Rows {
				break
			}
			role := theme.RoleMuted
			if scales[i].Name == st.Scale {
				role = theme.RoleSuccess
			}
			lit(grid.Rows-1-i, midi.SideColumn, role, midi.ChannelStatic)
		}
	} else {
		// only the locked-in scale while playing
		for i := range scales {
			if i < grid.Rows && scales[i].Name == st.Scale {
				lit(grid.Rows-1-i, midi.SideColumn, theme.RoleSuccess, midi.ChannelStatic)
			}
		}
	}
	return leds
}
