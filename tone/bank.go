package tone

import (
	"errors"
	"fmt"
)

// Bank holds one generator per grid row for a single playback session.
// A bank is either fully alive or fully released; it is never reused.
type Bank struct {
	gens     []Generator
	freqs    []float64
	released bool
}

// NewBank creates voices generators from p. If any creation fails, the
// ones already created are released before the error is returned.
func NewBank(p Pipeline, voices int, w Waveform, gain float64) (*Bank, error) {
	b := &Bank{
		gens:  make([]Generator, 0, voices),
		freqs: make([]float64, voices),
	}
	for i := 0; i < voices; i++ {
		g, err := p.NewGenerator(w, gain)
		if err != nil {
			relErr := b.Release()
			return nil, errors.Join(fmt.Errorf("create voice %d: %w", i, err), relErr)
		}
		b.gens = append(b.gens, g)
	}
	return b, nil
}

// Live returns how many generators are currently held
func (b *Bank) Live() int {
	if b.released {
		return 0
	}
	return len(b.gens)
}

// Retune sets a voice's frequency. 0 silences it.
func (b *Bank) Retune(row int, hz float64) error {
	if b.released {
		return ErrReleased
	}
	if row < 0 || row >= len(b.gens) {
		return fmt.Errorf("voice %d out of range", row)
	}
	if err := b.gens[row].SetFrequency(hz); err != nil {
		return fmt.Errorf("retune voice %d: %w", row, err)
	}
	b.freqs[row] = hz
	return nil
}

// Frequency returns the last frequency set on a voice
func (b *Bank) Frequency(row int) float64 {
	if row < 0 || row >= len(b.freqs) {
		return 0
	}
	return b.freqs[row]
}

// Release stops and frees every generator exactly once. Later calls are
// no-ops.
func (b *Bank) Release() error {
	if b.released {
		return nil
	}
	b.released = true
	var errs []error
	for i, g := range b.gens {
		if err := g.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release voice %d: %w", i, err))
		}
	}
	b.gens = nil
	return errors.Join(errs...)
}
