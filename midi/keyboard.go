package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// KeyboardController handles a standard MIDI keyboard. Played notes are
// used to pick the tonic.
type KeyboardController struct {
	id       string
	stopFunc func()

	closeOnce sync.Once
	mu        sync.Mutex // guards closed and the note sends
	closed    bool
	padChan   chan PadEvent
	noteChan  chan NoteEvent
}

// NewKeyboardController creates a keyboard controller (input only)
func NewKeyboardController(id string, inPort drivers.In) (*KeyboardController, error) {
	kb := newKeyboard(id)
	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, kb.handleMessage)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		kb.stopFunc = stop
	}
	return kb, nil
}

func newKeyboard(id string) *KeyboardController {
	return &KeyboardController{
		id:       id,
		padChan:  make(chan PadEvent, 1),
		noteChan: make(chan NoteEvent, 32),
	}
}

func (kb *KeyboardController) handleMessage(msg gomidi.Message, timestampms int32) {
	var channel, note, velocity uint8
	if !msg.GetNoteStart(&channel, &note, &velocity) {
		return
	}
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if kb.closed {
		return
	}
	select {
	case kb.noteChan <- NoteEvent{Note: note, Velocity: velocity, Channel: channel}:
	default:
	}
}

func (kb *KeyboardController) ID() string {
	return kb.id
}

func (kb *KeyboardController) Type() ControllerType {
	return ControllerKeyboard
}

func (kb *KeyboardController) PadEvents() <-chan PadEvent {
	return kb.padChan // Keyboards don't have pads
}

func (kb *KeyboardController) NoteEvents() <-chan NoteEvent {
	return kb.noteChan
}

// SetLEDBatch is a no-op for keyboards
func (kb *KeyboardController) SetLEDBatch(updates []LEDUpdate) error {
	return nil
}

// Close stops listening. A callback still in flight sees closed and
// drops its note.
func (kb *KeyboardController) Close() error {
	kb.closeOnce.Do(func() {
		if kb.stopFunc != nil {
			kb.stopFunc()
		}
		kb.mu.Lock()
		kb.closed = true
		close(kb.padChan)
		close(kb.noteChan)
		kb.mu.Unlock()
	})
	return nil
}
