package midi

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"tonegrid/debug"
)

var ledSendCount uint64

// Novation SysEx header: F0 00 20 29 02 0C ...
var sysexHeader = []byte{0x00, 0x20, 0x29, 0x02, 0x0C}

func sysex(body ...byte) gomidi.Message {
	return gomidi.SysEx(append(append([]byte{}, sysexHeader...), body...))
}

// LaunchpadController drives a Novation Launchpad X in programmer mode
type LaunchpadController struct {
	id       string
	send     func(msg gomidi.Message) error
	stopFunc func()

	closeOnce sync.Once
	mu        sync.Mutex // guards closed and the pad sends
	closed    bool
	padChan   chan PadEvent
	noteChan  chan NoteEvent
}

// NewLaunchpadController opens the ports and switches the device to
// programmer mode with external LED feedback. Either port may be nil.
func NewLaunchpadController(id string, inPort drivers.In, outPort drivers.Out) (*LaunchpadController, error) {
	var send func(gomidi.Message) error
	if outPort != nil {
		s, err := gomidi.SendTo(outPort)
		if err != nil {
			return nil, fmt.Errorf("open output: %w", err)
		}
		send = s
	}
	lp := newLaunchpad(id, send)

	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, lp.handleMessage)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		lp.stopFunc = stop
	}
	return lp, nil
}

func newLaunchpad(id string, send func(gomidi.Message) error) *LaunchpadController {
	lp := &LaunchpadController{
		id:       id,
		send:     send,
		padChan:  make(chan PadEvent, 32),
		noteChan: make(chan NoteEvent, 32),
	}
	if send != nil {
		send(sysex(0x00, 0x7F))       // programmer layout
		send(sysex(0x08, 0x7F))       // full brightness
		send(sysex(0x0A, 0x01, 0x01)) // external LED feedback
	}
	return lp
}

func (lp *LaunchpadController) handleMessage(msg gomidi.Message, timestampms int32) {
	var channel, note, velocity uint8
	var cc, value uint8

	switch {
	case msg.GetNoteOn(&channel, &note, &velocity) && velocity > 0:
		// 8x8 grid + scene buttons
		if row, col := noteToRowCol(note); row >= 0 {
			lp.emit(PadEvent{Row: row, Col: col, Velocity: velocity})
		}
	case msg.GetControlChange(&channel, &cc, &value) && value > 0:
		// top row buttons CC 91-98
		if row, col := ccToRowCol(cc); row >= 0 {
			lp.emit(PadEvent{Row: row, Col: col, Velocity: value})
		}
	}
}

func (lp *LaunchpadController) emit(ev PadEvent) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.closed {
		return
	}
	select {
	case lp.padChan <- ev:
	default:
		debug.Log("lp", "pad event dropped row=%d col=%d", ev.Row, ev.Col)
	}
}

func (lp *LaunchpadController) ID() string {
	return lp.id
}

func (lp *LaunchpadController) Type() ControllerType {
	return ControllerLaunchpad
}

func (lp *LaunchpadController) PadEvents() <-chan PadEvent {
	return lp.padChan
}

// NoteEvents never fires; the Launchpad reports pads, not notes
func (lp *LaunchpadController) NoteEvents() <-chan NoteEvent {
	return lp.noteChan
}

// SetLEDBatch sends one NoteOn per update. The caller diffs, so batches
// are usually small.
func (lp *LaunchpadController) SetLEDBatch(updates []LEDUpdate) error {
	if lp.send == nil || len(updates) == 0 {
		return nil
	}

	var errs []error
	for _, u := range updates {
		note := rowColToNote(u.Row, u.Col)
		if err := lp.send(gomidi.NoteOn(u.Channel, note, nearestPaletteColor(u.Color))); err != nil {
			errs = append(errs, err)
		}
	}

	count := atomic.AddUint64(&ledSendCount, uint64(len(updates)))
	if count%100 < uint64(len(updates)) {
		debug.Log("lp-send", "batch count=%d (this batch=%d)", count, len(updates))
	}
	return errors.Join(errs...)
}

// Close darkens every LED and stops listening
func (lp *LaunchpadController) Close() error {
	var err error
	lp.closeOnce.Do(func() {
		if lp.send != nil {
			var updates []LEDUpdate
			for row := 0; row <= TopRow; row++ {
				for col := 0; col <= SideColumn; col++ {
					if row == TopRow && col == SideColumn {
						continue // no LED in the corner
					}
					updates = append(updates, LEDUpdate{Row: row, Col: col})
				}
			}
			err = lp.SetLEDBatch(updates)
		}
		if lp.stopFunc != nil {
			lp.stopFunc()
		}
		lp.mu.Lock()
		lp.closed = true
		close(lp.padChan)
		close(lp.noteChan)
		lp.mu.Unlock()
	})
	return err
}

// Launchpad X palette, {velocity, R, G, B}
var launchpadPalette = [][4]uint8{
	{0, 0, 0, 0},         // off
	{5, 255, 0, 0},       // red
	{6, 255, 80, 80},     // bright red
	{7, 180, 60, 60},     // dim red
	{9, 255, 100, 0},     // orange
	{11, 180, 80, 40},    // dim orange
	{13, 255, 200, 0},    // yellow
	{17, 0, 180, 0},      // green
	{19, 0, 100, 0},      // dim green
	{21, 0, 255, 0},      // bright green
	{37, 0, 200, 200},    // cyan
	{43, 40, 60, 120},    // dim blue
	{45, 0, 100, 255},    // blue
	{47, 80, 150, 255},   // bright blue
	{49, 150, 0, 200},    // purple
	{53, 255, 80, 180},   // pink
	{78, 100, 100, 255},  // light blue
	{84, 255, 150, 50},   // bright orange
	{87, 150, 255, 100},  // lime
	{97, 180, 180, 60},   // dim yellow
	{119, 255, 255, 255}, // white
}

// nearestPaletteColor picks the palette velocity closest to rgb
func nearestPaletteColor(rgb [3]uint8) uint8 {
	best := uint8(0)
	bestDist := -1

	r, g, b := int(rgb[0]), int(rgb[1]), int(rgb[2])
	for _, p := range launchpadPalette {
		dr, dg, db := r-int(p[1]), g-int(p[2]), b-int(p[3])
		dist := dr*dr + dg*dg + db*db
		if bestDist < 0 || dist < bestDist {
			bestDist = dist
			best = p[0]
		}
	}
	return best
}

// Launchpad X note mapping
// 8x8 Grid:  Row 0 (bottom) = notes 11-18, Row 7 = notes 81-88
// Side col:  Col 8 = notes 19, 29, ... 89
// Top row:   Row 8 = CC 91-98 on input, notes 91-98 for LEDs

func rowColToNote(row, col int) uint8 {
	if row == TopRow {
		return uint8(91 + col)
	}
	return uint8((row+1)*10 + col + 1)
}

func noteToRowCol(note uint8) (row, col int) {
	if note >= 91 && note <= 98 {
		return TopRow, int(note - 91)
	}
	row = int(note/10) - 1
	col = int(note%10) - 1
	if row < 0 || row >= PadRows || col < 0 || col > SideColumn {
		return -1, -1
	}
	return row, col
}

func ccToRowCol(cc uint8) (row, col int) {
	if cc >= 91 && cc <= 98 {
		return TopRow, int(cc - 91)
	}
	return -1, -1
}
