package theme

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

type RGB [3]uint8

type Palette struct {
	Name   string
	Colors []RGB
}

// DefaultPalette is a plasma-like ramp from deep purple to yellow, used
// when no GPL file is configured
func DefaultPalette() *Palette {
	return &Palette{
		Name: "plasma",
		Colors: []RGB{
			{13, 8, 135},
			{75, 3, 161},
			{125, 3, 168},
			{168, 34, 150},
			{203, 70, 121},
			{229, 107, 93},
			{248, 148, 65},
			{253, 195, 40},
			{240, 249, 33},
		},
	}
}

// Load reads a GIMP palette, or returns the default palette when path is
// empty
func Load(path string) (*Palette, error) {
	if path == "" {
		return DefaultPalette(), nil
	}
	return LoadGPL(path)
}

func LoadGPL(path string) (*Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := ParseGPL(f)
	if err != nil {
		return nil, fmt.Errorf("palette %s: %w", path, err)
	}
	return p, nil
}

// ParseGPL parses GIMP palette text. Lines that are not "R G B [name]"
// triples are skipped, so headers and comments need no special casing
// beyond the Name field.
func ParseGPL(r io.Reader) (*Palette, error) {
	p := &Palette{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if name, ok := strings.CutPrefix(line, "Name:"); ok {
			p.Name = strings.TrimSpace(name)
			continue
		}
		if c, ok := parseGPLColor(line); ok {
			p.Colors = append(p.Colors, c)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(p.Colors) == 0 {
		return nil, errors.New("no colors found")
	}
	return p, nil
}

// parseGPLColor reads the leading three channel values of a swatch line
func parseGPLColor(line string) (RGB, bool) {
	if strings.HasPrefix(line, "#") {
		return RGB{}, false
	}
	f := strings.Fields(line)
	if len(f) < 3 {
		return RGB{}, false
	}
	var c RGB
	for i := range c {
		v, err := strconv.ParseUint(f[i], 10, 8)
		if err != nil {
			return RGB{}, false
		}
		c[i] = uint8(v)
	}
	return c, true
}

// Lookup maps t in [0,1] onto the ramp, blending neighbouring swatches
func (p *Palette) Lookup(t float64) RGB {
	last := len(p.Colors) - 1
	pos := math.Max(0, math.Min(1, t)) * float64(last)
	lo := int(math.Floor(pos))
	if lo >= last {
		return p.Colors[last]
	}
	w := pos - float64(lo)
	var out RGB
	for ch := range out {
		a, b := float64(p.Colors[lo][ch]), float64(p.Colors[lo+1][ch])
		out[ch] = uint8(a + (b-a)*w)
	}
	return out
}

// Index returns color at specific index (no interpolation)
func (p *Palette) Index(i int) RGB {
	if i < 0 {
		return p.Colors[0]
	}
	if i >= len(p.Colors) {
		return p.Colors[len(p.Colors)-1]
	}
	return p.Colors[i]
}
