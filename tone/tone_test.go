package tone

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
)

type fakePipeline struct {
	live     int
	created  int
	failAt   int // fail the nth NewGenerator call (1-based), 0 = never
	voices   []*fakeVoice
	closeErr error
}

func (p *fakePipeline) NewGenerator(w Waveform, gain float64) (Generator, error) {
	p.created++
	if p.failAt > 0 && p.created == p.failAt {
		return nil, errors.New("device busy")
	}
	p.live++
	v := &fakeVoice{pipe: p, gain: gain}
	p.voices = append(p.voices, v)
	return v, nil
}

func (p *fakePipeline) Close() error { return p.closeErr }

type fakeVoice struct {
	pipe     *fakePipeline
	gain     float64
	hz       float64
	releases int
}

func (v *fakeVoice) SetFrequency(hz float64) error {
	v.hz = hz
	return nil
}

func (v *fakeVoice) Release() error {
	v.releases++
	v.pipe.live--
	return nil
}

func TestBankLifecycle(t *testing.T) {
	p := &fakePipeline{}
	b, err := NewBank(p, 8, Triangle, DefaultGain)
	if err != nil {
		t.Fatalf("NewBank failed: %v", err)
	}
	if p.live != 8 || b.Live() != 8 {
		t.Fatalf("live = %d/%d, want 8", p.live, b.Live())
	}
	for _, v := range p.voices {
		if v.gain != DefaultGain {
			t.Errorf("voice gain = %v", v.gain)
		}
	}

	if err := b.Retune(3, 440); err != nil {
		t.Fatalf("Retune failed: %v", err)
	}
	if p.voices[3].hz != 440 || b.Frequency(3) != 440 {
		t.Errorf("voice 3 not retuned")
	}
	if err := b.Retune(8, 440); err == nil {
		t.Error("out of range retune should fail")
	}

	if err := b.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := b.Release(); err != nil {
		t.Fatalf("second Release failed: %v", err)
	}
	if p.live != 0 || b.Live() != 0 {
		t.Fatalf("live after release = %d/%d", p.live, b.Live())
	}
	for i, v := range p.voices {
		if v.releases != 1 {
			t.Errorf("voice %d released %d times", i, v.releases)
		}
	}
	if err := b.Retune(0, 100); !errors.Is(err, ErrReleased) {
		t.Errorf("retune after release: got %v", err)
	}
}

func TestBankAllOrNothing(t *testing.T) {
	p := &fakePipeline{failAt: 5}
	b, err := NewBank(p, 8, Triangle, DefaultGain)
	if err == nil {
		t.Fatal("expected failure")
	}
	if b != nil {
		t.Fatal("bank should be nil on failure")
	}
	if p.live != 0 {
		t.Fatalf("partial bank leaked %d voices", p.live)
	}
}

func TestWaveformSample(t *testing.T) {
	tests := []struct {
		w     Waveform
		phase float64
		want  float64
	}{
		{Triangle, 0, 0},
		{Triangle, 0.25, 1},
		{Triangle, 0.5, 0},
		{Triangle, 0.75, -1},
		{Sine, 0.25, 1},
		{Square, 0.1, 1},
		{Square, 0.6, -1},
		{Sawtooth, 0, -1},
		{Sawtooth, 0.5, 0},
	}
	for _, tt := range tests {
		if got := tt.w.Sample(tt.phase); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%v(%v) = %v, want %v", tt.w, tt.phase, got, tt.want)
		}
	}
}

func TestParseWaveform(t *testing.T) {
	for _, w := range []Waveform{Triangle, Sine, Square, Sawtooth} {
		got, err := ParseWaveform(w.String())
		if err != nil || got != w {
			t.Errorf("ParseWaveform(%q) = %v, %v", w.String(), got, err)
		}
	}
	if _, err := ParseWaveform("noise"); err == nil {
		t.Error("expected error for unknown waveform")
	}
}

func TestOscillatorPhaseContinuity(t *testing.T) {
	osc := newOscillator(Triangle, 100)
	buf := make([]byte, 8*frameBytes)

	// silent voice holds still
	n, err := osc.Read(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("Read = %d, %v", n, err)
	}
	if osc.phase != 0 {
		t.Fatalf("phase moved at 0 Hz: %v", osc.phase)
	}

	osc.setFrequency(10) // 0.1 cycles per sample
	osc.Read(buf)
	if math.Abs(osc.phase-0.8) > 1e-9 {
		t.Fatalf("phase = %v, want 0.8", osc.phase)
	}

	// retune keeps the phase where it was
	osc.setFrequency(20)
	osc.Read(buf[:frameBytes])
	if math.Abs(osc.phase-0.0) > 1e-9 && math.Abs(osc.phase-1.0) > 1e-9 {
		t.Fatalf("phase = %v, want wrap to 0", osc.phase)
	}
}

// signChanges counts zero crossings on the left channel
func signChanges(buf []byte) int {
	n := 0
	prev := false
	for i := 0; i+frameBytes <= len(buf); i += frameBytes {
		pos := math.Float32frombits(binary.LittleEndian.Uint32(buf[i:])) > 0
		if i > 0 && pos != prev {
			n++
		}
		prev = pos
	}
	return n
}

func TestPlayerChunkFollowsSteps(t *testing.T) {
	// one step at 300 bpm
	const fastestStep = 100 * time.Millisecond
	if got := playerLatency(); got <= 0 || got > fastestStep/4 {
		t.Fatalf("player latency %v, want well under %v", got, fastestStep)
	}

	osc := newOscillator(Sine, SampleRate)
	buf := make([]byte, playerBufferBytes)
	steps := []struct {
		hz       float64
		min, max int
	}{
		{440, 7, 10},
		{880, 16, 19},
		{0, 0, 0},
		{440, 7, 10},
	}
	for _, st := range steps {
		osc.setFrequency(st.hz)
		if n, _ := osc.Read(buf); n != len(buf) {
			t.Fatalf("Read = %d, want %d", n, len(buf))
		}
		if got := signChanges(buf); got < st.min || got > st.max {
			t.Errorf("%v Hz chunk: %d crossings, want %d-%d", st.hz, got, st.min, st.max)
		}
	}
}

func TestOscillatorPartialFrame(t *testing.T) {
	osc := newOscillator(Sine, SampleRate)
	n, _ := osc.Read(make([]byte, frameBytes+3))
	if n != frameBytes {
		t.Errorf("Read returned %d, want %d", n, frameBytes)
	}
}

func TestMIDINote(t *testing.T) {
	tests := []struct {
		hz   float64
		note uint8
		ok   bool
	}{
		{440, 69, true},
		{261.63, 60, true},
		{523.26, 72, true},
		{0, 0, false},
		{-5, 0, false},
	}
	for _, tt := range tests {
		note, ok := MIDINote(tt.hz)
		if note != tt.note || ok != tt.ok {
			t.Errorf("MIDINote(%v) = %d, %v", tt.hz, note, ok)
		}
	}
}

func TestMIDIPipelineRetune(t *testing.T) {
	var sent []gomidi.Message
	p := NewMIDIPipeline(func(msg gomidi.Message) error {
		sent = append(sent, msg)
		return nil
	}, 0)

	g, err := p.NewGenerator(Triangle, DefaultGain)
	if err != nil {
		t.Fatal(err)
	}
	g.SetFrequency(0)
	if len(sent) != 0 {
		t.Fatalf("silence on a silent voice sent %d messages", len(sent))
	}
	g.SetFrequency(440)
	g.SetFrequency(440) // same note, no resend
	g.SetFrequency(261.63)
	g.SetFrequency(0)
	g.Release()
	g.Release()

	var ch, key, vel uint8
	wantOn := []uint8{69, 60}
	wantOff := []uint8{69, 60}
	var gotOn, gotOff []uint8
	for _, msg := range sent {
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			gotOn = append(gotOn, key)
		case msg.GetNoteEnd(&ch, &key):
			gotOff = append(gotOff, key)
		}
	}
	if len(gotOn) != len(wantOn) || len(gotOff) != len(wantOff) {
		t.Fatalf("on=%v off=%v", gotOn, gotOff)
	}
	for i := range wantOn {
		if gotOn[i] != wantOn[i] || gotOff[i] != wantOff[i] {
			t.Errorf("event %d: on=%d off=%d", i, gotOn[i], gotOff[i])
		}
	}
	if err := g.SetFrequency(440); !errors.Is(err, ErrReleased) {
		t.Errorf("retune after release: %v", err)
	}
}

func TestSilentPipeline(t *testing.T) {
	p := NewSilentPipeline()
	b, err := NewBank(p, 8, Sine, DefaultGain)
	if err != nil {
		t.Fatal(err)
	}
	if p.Live() != 8 {
		t.Fatalf("live = %d", p.Live())
	}
	b.Release()
	if p.Live() != 0 {
		t.Fatalf("live after release = %d", p.Live())
	}
}
