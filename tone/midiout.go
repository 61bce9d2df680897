package tone

import (
	"fmt"
	"strings"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// MIDIPipeline drives an external synth instead of the audio device. Each
// voice holds at most one note; a retune releases the old note and strikes
// the nearest equal-tempered one.
type MIDIPipeline struct {
	mu       sync.Mutex
	send     func(gomidi.Message) error
	channel  uint8
	velocity uint8
}

// NewMIDIPipeline wraps a sender such as the one returned by gomidi.SendTo
func NewMIDIPipeline(send func(gomidi.Message) error, channel uint8) *MIDIPipeline {
	return &MIDIPipeline{send: send, channel: channel, velocity: 100}
}

// OpenMIDIPipeline finds an output port whose name contains portName
func OpenMIDIPipeline(portName string, channel uint8) (*MIDIPipeline, error) {
	want := strings.ToLower(portName)
	for _, port := range gomidi.GetOutPorts() {
		if !strings.Contains(strings.ToLower(port.String()), want) {
			continue
		}
		send, err := gomidi.SendTo(port)
		if err != nil {
			return nil, fmt.Errorf("open output %s: %w", port.String(), err)
		}
		return NewMIDIPipeline(send, channel), nil
	}
	return nil, fmt.Errorf("no MIDI output port matching %q", portName)
}

// NewGenerator ignores waveform and gain; the receiving synth owns timbre
// and level.
func (p *MIDIPipeline) NewGenerator(w Waveform, gain float64) (Generator, error) {
	return &midiVoice{pipe: p, velocity: p.velocity}, nil
}

// Close silences every note on the channel
func (p *MIDIPipeline) Close() error {
	// CC 123: all notes off
	return p.write(gomidi.ControlChange(p.channel, 123, 0))
}

func (p *MIDIPipeline) write(msg gomidi.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.send(msg)
}

type midiVoice struct {
	pipe     *MIDIPipeline
	velocity uint8
	note     uint8
	sounding bool
	released bool
}

func (v *midiVoice) SetFrequency(hz float64) error {
	if v.released {
		return ErrReleased
	}
	note, ok := MIDINote(hz)
	if ok && v.sounding && note == v.note {
		return nil
	}
	if err := v.off(); err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := v.pipe.write(gomidi.NoteOn(v.pipe.channel, note, v.velocity)); err != nil {
		return fmt.Errorf("note on %d: %w", note, err)
	}
	v.note = note
	v.sounding = true
	return nil
}

func (v *midiVoice) off() error {
	if !v.sounding {
		return nil
	}
	v.sounding = false
	if err := v.pipe.write(gomidi.NoteOff(v.pipe.channel, v.note)); err != nil {
		return fmt.Errorf("note off %d: %w", v.note, err)
	}
	return nil
}

func (v *midiVoice) Release() error {
	if v.released {
		return nil
	}
	v.released = true
	return v.off()
}
