package tone

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// DefaultGain is the fixed output level of every voice
const DefaultGain = 0.1

var ErrReleased = errors.New("tone generator released")

// Generator is one continuously running voice. Frequency 0 is silence.
type Generator interface {
	SetFrequency(hz float64) error
	Release() error
}

// Pipeline is the platform audio capability: it hands out generators that
// start sounding (silently, at 0 Hz) as soon as they are created.
type Pipeline interface {
	NewGenerator(w Waveform, gain float64) (Generator, error)
	Close() error
}

// Waveform is the fixed shape of a voice
type Waveform int

const (
	Triangle Waveform = iota
	Sine
	Square
	Sawtooth
)

var waveformNames = map[Waveform]string{
	Triangle: "triangle",
	Sine:     "sine",
	Square:   "square",
	Sawtooth: "sawtooth",
}

func (w Waveform) String() string {
	if name, ok := waveformNames[w]; ok {
		return name
	}
	return fmt.Sprintf("Waveform(%d)", int(w))
}

// ParseWaveform maps a name like "triangle" to a Waveform
func ParseWaveform(s string) (Waveform, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for w, name := range waveformNames {
		if name == s {
			return w, nil
		}
	}
	return Triangle, fmt.Errorf("unknown waveform %q", s)
}

// Sample evaluates one period of the waveform at phase in [0, 1).
// All shapes start at 0 (sine, triangle) or their rising edge.
func (w Waveform) Sample(phase float64) float64 {
	switch w {
	case Sine:
		return math.Sin(2 * math.Pi * phase)
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case Sawtooth:
		return 2*phase - 1
	default:
		switch {
		case phase < 0.25:
			return 4 * phase
		case phase < 0.75:
			return 2 - 4*phase
		default:
			return 4*phase - 4
		}
	}
}

// MIDINote returns the nearest equal-tempered MIDI note for hz (A4 = 69).
// ok is false for silence or frequencies outside the MIDI range.
func MIDINote(hz float64) (note uint8, ok bool) {
	if hz <= 0 {
		return 0, false
	}
	n := math.Round(69 + 12*math.Log2(hz/440))
	if n < 0 || n > 127 {
		return 0, false
	}
	return uint8(n), true
}
