package midi

import (
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
)

func TestNoteMappingRoundTrip(t *testing.T) {
	for row := 0; row < PadRows; row++ {
		for col := 0; col <= SideColumn; col++ {
			r, c := noteToRowCol(rowColToNote(row, col))
			if r != row || c != col {
				t.Errorf("(%d,%d) -> note %d -> (%d,%d)", row, col, rowColToNote(row, col), r, c)
			}
		}
	}
	if r, c := noteToRowCol(95); r != TopRow || c != 4 {
		t.Errorf("note 95 -> (%d,%d)", r, c)
	}
	if r, _ := noteToRowCol(5); r != -1 {
		t.Errorf("note 5 should be off-grid")
	}
	if r, c := ccToRowCol(91); r != TopRow || c != 0 {
		t.Errorf("cc 91 -> (%d,%d)", r, c)
	}
	if r, _ := ccToRowCol(10); r != -1 {
		t.Error("cc 10 should be ignored")
	}
}

func TestNearestPaletteColor(t *testing.T) {
	tests := []struct {
		rgb  [3]uint8
		want uint8
	}{
		{[3]uint8{0, 0, 0}, 0},
		{[3]uint8{255, 255, 255}, 119},
		{[3]uint8{250, 5, 5}, 5},
		{[3]uint8{0, 250, 10}, 21},
	}
	for _, tt := range tests {
		if got := nearestPaletteColor(tt.rgb); got != tt.want {
			t.Errorf("%v -> %d, want %d", tt.rgb, got, tt.want)
		}
	}
}

func TestLaunchpadInput(t *testing.T) {
	lp := newLaunchpad("test", nil)
	lp.handleMessage(gomidi.NoteOn(0, 11, 100), 0)
	lp.handleMessage(gomidi.NoteOn(0, 12, 0), 0) // release, ignored
	lp.handleMessage(gomidi.ControlChange(0, 93, 127), 0)

	ev := <-lp.PadEvents()
	if ev.Row != 0 || ev.Col != 0 {
		t.Errorf("first event = %+v", ev)
	}
	ev = <-lp.PadEvents()
	if ev.Row != TopRow || ev.Col != 2 {
		t.Errorf("second event = %+v", ev)
	}
	select {
	case ev := <-lp.PadEvents():
		t.Errorf("unexpected event %+v", ev)
	default:
	}
	lp.Close()
	lp.Close()
}

func TestLaunchpadLEDs(t *testing.T) {
	var sent []gomidi.Message
	lp := newLaunchpad("test", func(msg gomidi.Message) error {
		sent = append(sent, msg)
		return nil
	})
	setup := len(sent)
	if setup != 3 {
		t.Fatalf("setup sent %d messages, want 3 sysex", setup)
	}

	err := lp.SetLEDBatch([]LEDUpdate{
		{Row: 0, Col: 0, Color: [3]uint8{0, 255, 0}},
		{Row: TopRow, Col: 1, Color: [3]uint8{255, 255, 255}, Channel: ChannelPulse},
	})
	if err != nil {
		t.Fatal(err)
	}
	var ch, key, vel uint8
	if !sent[setup].GetNoteOn(&ch, &key, &vel) || key != 11 || vel != 21 || ch != 0 {
		t.Errorf("first LED = ch %d key %d vel %d", ch, key, vel)
	}
	if !sent[setup+1].GetNoteOn(&ch, &key, &vel) || key != 92 || vel != 119 || ch != ChannelPulse {
		t.Errorf("second LED = ch %d key %d vel %d", ch, key, vel)
	}

	lp.Close()
	// 9x9 minus the corner
	if got := len(sent) - setup - 2; got != 80 {
		t.Errorf("close cleared %d LEDs, want 80", got)
	}
}

func TestKeyboardInput(t *testing.T) {
	kb := newKeyboard("keys")
	kb.handleMessage(gomidi.NoteOn(2, 64, 90), 0)
	kb.handleMessage(gomidi.NoteOff(2, 64), 0)
	ev := <-kb.NoteEvents()
	if ev.Note != 64 || ev.Velocity != 90 || ev.Channel != 2 {
		t.Errorf("event = %+v", ev)
	}
	select {
	case ev := <-kb.NoteEvents():
		t.Errorf("note off produced %+v", ev)
	default:
	}
	kb.Close()
}

func TestInputAfterClose(t *testing.T) {
	kb := newKeyboard("keys")
	lp := newLaunchpad("pads", nil)
	kb.Close()
	lp.Close()

	// late driver callbacks are dropped, not sent on closed channels
	kb.handleMessage(gomidi.NoteOn(0, 60, 100), 0)
	lp.handleMessage(gomidi.NoteOn(0, 11, 100), 0)
	lp.handleMessage(gomidi.ControlChange(0, 91, 127), 0)

	if _, ok := <-kb.NoteEvents(); ok {
		t.Error("keyboard delivered a note after Close")
	}
	if _, ok := <-lp.PadEvents(); ok {
		t.Error("launchpad delivered a pad after Close")
	}
}

func TestCloseDuringInput(t *testing.T) {
	kb := newKeyboard("keys")
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			kb.handleMessage(gomidi.NoteOn(0, uint8(i%128), 100), 0)
		}
	}()
	for range kb.NoteEvents() {
		kb.Close()
	}
	<-done
}

func TestClassifyPort(t *testing.T) {
	ignore := []string{"fluidsynth"}
	tests := []struct {
		name      string
		keyboards bool
		want      ControllerType
	}{
		{"Launchpad X LPX MIDI", true, ControllerLaunchpad},
		{"Launchpad X LPX DAW", true, ControllerUnknown},
		{"Arturia KeyStep 32", true, ControllerKeyboard},
		{"Arturia KeyStep 32", false, ControllerUnknown},
		{"Midi Through Port-0", true, ControllerUnknown},
		{"FLUIDSynth virtual port", true, ControllerUnknown},
	}
	for _, tt := range tests {
		if got := classifyPort(tt.name, tt.keyboards, ignore); got != tt.want {
			t.Errorf("classifyPort(%q, %v) = %v, want %v", tt.name, tt.keyboards, got, tt.want)
		}
	}
}
