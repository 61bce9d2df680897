package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromMissingFile(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatal(err)
	}
	if *cfg != *DefaultConfig() {
		t.Errorf("got %+v, want defaults", cfg)
	}
}

func TestLoadFromPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"tempo": 90, "audio": {"backend": "none"}}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Tempo != 90 || cfg.Audio.Backend != AudioNone {
		t.Errorf("overrides lost: %+v", cfg)
	}
	if cfg.Tonic != "C" || cfg.Audio.Waveform != "triangle" || !cfg.Controller.Launchpad {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadFromInvalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"syntax":  `{"tempo":`,
		"backend": `{"audio": {"backend": "alsa"}}`,
		"channel": `{"audio": {"channel": 16}}`,
		"density": `{"density": 2}`,
		"gain":    `{"audio": {"gain": 0}}`,
	}
	for name, body := range tests {
		path := filepath.Join(dir, name+".json")
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFrom(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Tempo = 140
	cfg.Tonic = "F#"
	cfg.Scale = "Dorian"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *cfg {
		t.Errorf("reloaded %+v, want %+v", got, cfg)
	}
}

func TestSaveSessionKeepsFileSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	onDisk := DefaultConfig()
	onDisk.Audio.Waveform = "sine"
	if err := onDisk.SaveTo(path); err != nil {
		t.Fatal(err)
	}

	// the running config carries one-off overrides
	running := *onDisk
	running.Audio.Backend = AudioNone
	running.Audio.Waveform = "square"
	running.Debug = true

	if err := SaveSession(path, 95, "A", "Minor"); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tempo != 95 || got.Tonic != "A" || got.Scale != "Minor" {
		t.Errorf("session not saved: %+v", got)
	}
	if got.Audio.Backend != AudioOto || got.Audio.Waveform != "sine" || got.Debug {
		t.Errorf("overrides leaked into file: %+v", got)
	}
	if running.Audio.Backend != AudioNone {
		t.Error("running config changed")
	}
}

func TestSaveSessionNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	if err := SaveSession(path, 140, "D", "Dorian"); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	want := DefaultConfig()
	want.Tempo, want.Tonic, want.Scale = 140, "D", "Dorian"
	if *got != *want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}
