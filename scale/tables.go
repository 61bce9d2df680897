package scale

import (
	"errors"
	"fmt"
)

// Degrees is the number of pitches a scale provides, one per grid row.
const Degrees = 8

var (
	ErrUnknownTonic = errors.New("unknown tonic")
	ErrUnknownScale = errors.New("unknown scale")
	ErrBadScale     = errors.New("malformed scale")
)

// Tonic is a root note and its base frequency in Hz
type Tonic struct {
	Name string
	Hz   float64
}

// Scale is a named list of semitone offsets from the tonic
type Scale struct {
	Name    string
	Offsets []int
}

// Tables holds the tonic and scale lookups in display order.
type Tables struct {
	Tonics []Tonic
	Scales []Scale
}

// DefaultTables returns the twelve chromatic tonics around middle C and the
// seven modal scales.
func DefaultTables() Tables {
	return Tables{
		Tonics: []Tonic{
			{"C", 261.63},
			{"C#", 277.18},
			{"D", 293.66},
			{"D#", 311.13},
			{"E", 329.63},
			{"F", 349.23},
			{"F#", 369.99},
			{"G", 392.00},
			{"G#", 415.30},
			{"A", 440.00},
			{"A#", 466.16},
			{"B", 493.88},
		},
		Scales: []Scale{
			{"Major", []int{0, 2, 4, 5, 7, 9, 11, 12}},
			{"Minor", []int{0, 2, 3, 5, 7, 8, 10, 12}},
			{"Lydian", []int{0, 2, 4, 6, 7, 9, 11, 12}},
			{"Mixolydian", []int{0, 2, 4, 5, 7, 9, 10, 12}},
			{"Dorian", []int{0, 2, 3, 5, 7, 9, 10, 12}},
			{"Phrygian", []int{0, 1, 3, 5, 7, 8, 10, 12}},
			{"Locrian", []int{0, 1, 3, 5, 6, 8, 10, 12}},
		},
	}
}

// Tonic looks up a tonic by name
func (t Tables) Tonic(name string) (Tonic, error) {
	for _, tn := range t.Tonics {
		if tn.Name == name {
			return tn, nil
		}
	}
	return Tonic{}, fmt.Errorf("%w: %q", ErrUnknownTonic, name)
}

// Scale looks up a scale by name
func (t Tables) Scale(name string) (Scale, error) {
	for _, sc := range t.Scales {
		if sc.Name == name {
			return sc, nil
		}
	}
	return Scale{}, fmt.Errorf("%w: %q", ErrUnknownScale, name)
}

// TonicNames returns tonic names in table order
func (t Tables) TonicNames() []string {
	names := make([]string, len(t.Tonics))
	for i, tn := range t.Tonics {
		names[i] = tn.Name
	}
	return names
}

// ScaleNames returns scale names in table order
func (t Tables) ScaleNames() []string {
	names := make([]string, len(t.Scales))
	for i, sc := range t.Scales {
		names[i] = sc.Name
	}
	return names
}

// Validate checks that every tonic is positive and every scale is an
// ascending run of Degrees offsets spanning exactly one octave.
func (t Tables) Validate() error {
	if len(t.Tonics) == 0 || len(t.Scales) == 0 {
		return fmt.Errorf("%w: empty tables", ErrBadScale)
	}
	for _, tn := range t.Tonics {
		if tn.Hz <= 0 {
			return fmt.Errorf("%w: tonic %s has frequency %v", ErrBadScale, tn.Name, tn.Hz)
		}
	}
	for _, sc := range t.Scales {
		if len(sc.Offsets) != Degrees {
			return fmt.Errorf("%w: %s has %d offsets, want %d", ErrBadScale, sc.Name, len(sc.Offsets), Degrees)
		}
		if sc.Offsets[0] != 0 || sc.Offsets[Degrees-1] != 12 {
			return fmt.Errorf("%w: %s does not span 0-12", ErrBadScale, sc.Name)
		}
		for i := 1; i < len(sc.Offsets); i++ {
			if sc.Offsets[i] <= sc.Offsets[i-1] {
				return fmt.Errorf("%w: %s is not ascending at %d", ErrBadScale, sc.Name, i)
			}
		}
	}
	return nil
}

// Next returns the name that follows cur in names, wrapping around.
// delta may be negative. Unknown names start from the first entry.
func Next(names []string, cur string, delta int) string {
	if len(names) == 0 {
		return cur
	}
	idx := -1
	for i, n := range names {
		if n == cur {
			idx = i
			break
		}
	}
	if idx < 0 {
		return names[0]
	}
	n := len(names)
	return names[((idx+delta)%n+n)%n]
}
