package theme

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleGPL = `GIMP Palette
Name: two
Columns: 2
# comment
  0   0   0	black
200 100  50	rust
not a color
`

func TestParseGPL(t *testing.T) {
	p, err := ParseGPL(strings.NewReader(sampleGPL))
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "two" {
		t.Errorf("Name = %q", p.Name)
	}
	if len(p.Colors) != 2 || p.Colors[1] != (RGB{200, 100, 50}) {
		t.Errorf("Colors = %v", p.Colors)
	}
}

func TestParseGPLEmpty(t *testing.T) {
	if _, err := ParseGPL(strings.NewReader("GIMP Palette\n")); err == nil {
		t.Error("expected error for palette without colors")
	}
}

func TestParseGPLColor(t *testing.T) {
	tests := []struct {
		line string
		want RGB
		ok   bool
	}{
		{"255 128 0\tOrange", RGB{255, 128, 0}, true},
		{"1 2 3", RGB{1, 2, 3}, true},
		{"# 1 2 3", RGB{}, false},
		{"300 0 0 too bright", RGB{}, false},
		{"-1 0 0", RGB{}, false},
		{"Columns: 16", RGB{}, false},
		{"GIMP Palette", RGB{}, false},
	}
	for _, tt := range tests {
		got, ok := parseGPLColor(tt.line)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseGPLColor(%q) = %v, %v; want %v, %v", tt.line, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLookupRamp(t *testing.T) {
	p := &Palette{Colors: []RGB{{0, 0, 0}, {100, 0, 0}, {100, 200, 0}}}
	tests := []struct {
		t    float64
		want RGB
	}{
		{0, RGB{0, 0, 0}},
		{0.25, RGB{50, 0, 0}},
		{0.5, RGB{100, 0, 0}},
		{0.75, RGB{100, 100, 0}},
		{1, RGB{100, 200, 0}},
	}
	for _, tt := range tests {
		if got := p.Lookup(tt.t); got != tt.want {
			t.Errorf("Lookup(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}

	single := &Palette{Colors: []RGB{{9, 9, 9}}}
	if got := single.Lookup(0.5); got != (RGB{9, 9, 9}) {
		t.Errorf("single-color Lookup = %v", got)
	}
}

func TestLoad(t *testing.T) {
	p, err := Load("")
	if err != nil || p.Name != "plasma" {
		t.Fatalf("Load(\"\") = %v, %v", p, err)
	}

	path := filepath.Join(t.TempDir(), "p.gpl")
	if err := os.WriteFile(path, []byte(sampleGPL), 0644); err != nil {
		t.Fatal(err)
	}
	p, err = Load(path)
	if err != nil || len(p.Colors) != 2 {
		t.Fatalf("Load(file) = %v, %v", p, err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.gpl")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLookup(t *testing.T) {
	p := &Palette{Colors: []RGB{{0, 0, 0}, {200, 100, 50}}}
	if got := p.Lookup(-1); got != (RGB{0, 0, 0}) {
		t.Errorf("Lookup(-1) = %v", got)
	}
	if got := p.Lookup(2); got != (RGB{200, 100, 50}) {
		t.Errorf("Lookup(2) = %v", got)
	}
	if got := p.Lookup(0.5); got != (RGB{100, 50, 25}) {
		t.Errorf("Lookup(0.5) = %v", got)
	}
	if got := p.Index(9); got != (RGB{200, 100, 50}) {
		t.Errorf("Index(9) = %v", got)
	}
}

func TestThemeDefaults(t *testing.T) {
	th := New(nil)
	if th.Palette == nil || len(th.Palette.Colors) == 0 {
		t.Fatal("New(nil) has no palette")
	}
	if got := Hex(RGB{255, 0, 16}); got != "#ff0010" {
		t.Errorf("Hex = %s", got)
	}
	if th.Symbols.CellOn == th.Symbols.CellOff {
		t.Error("cell symbols should differ")
	}
}
