package scale

import "math"

// Resolve returns one frequency per grid row for the given key, highest
// pitch first so row 0 (the top of the grid) sounds the top scale degree.
func (t Tables) Resolve(tonic, scaleName string) ([]float64, error) {
	tn, err := t.Tonic(tonic)
	if err != nil {
		return nil, err
	}
	sc, err := t.Scale(scaleName)
	if err != nil {
		return nil, err
	}

	n := len(sc.Offsets)
	freqs := make([]float64, n)
	for i, o := range sc.Offsets {
		// reversed: last offset lands at index 0
		freqs[n-1-i] = tn.Hz * math.Pow(2, float64(o)/12)
	}
	return freqs, nil
}

// PitchClass maps a MIDI note number onto a tonic name, e.g. 60 -> "C".
// Returns "" if the tables do not have twelve chromatic tonics.
func (t Tables) PitchClass(note uint8) string {
	if len(t.Tonics) != 12 {
		return ""
	}
	return t.Tonics[int(note)%12].Name
}
