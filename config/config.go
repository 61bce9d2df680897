package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Audio backends
const (
	AudioOto  = "oto"  // speakers
	AudioMIDI = "midi" // notes to a MIDI output port
	AudioNone = "none" // silent, for headless runs
)

// AudioConfig selects where tones go
type AudioConfig struct {
	Backend  string  `json:"backend,omitempty"`
	Waveform string  `json:"waveform,omitempty"`
	Gain     float64 `json:"gain,omitempty"`
	MIDIPort string  `json:"midiPort,omitempty"` // substring match
	Channel  int     `json:"channel,omitempty"`  // 0-15
}

// ControllerConfig stores controller preferences
type ControllerConfig struct {
	Launchpad bool `json:"launchpad"`
	Keyboards bool `json:"keyboards"` // pick the tonic from any MIDI keyboard
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette string `json:"palette,omitempty"` // GIMP .gpl file, empty for built-in
}

// Config is the main configuration structure
type Config struct {
	Tempo      float64          `json:"tempo,omitempty"`
	Tonic      string           `json:"tonic,omitempty"`
	Scale      string           `json:"scale,omitempty"`
	Density    float64          `json:"density,omitempty"`
	Audio      AudioConfig      `json:"audio"`
	Controller ControllerConfig `json:"controller"`
	UI         UIConfig         `json:"ui,omitempty"`
	Debug      bool             `json:"debug,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Tempo:   120,
		Tonic:   "C",
		Scale:   "Major",
		Density: 0.15,
		Audio: AudioConfig{
			Backend:  AudioOto,
			Waveform: "triangle",
			Gain:     0.1,
		},
		Controller: ControllerConfig{
			Launchpad: true,
			Keyboards: true,
		},
	}
}

// Validate reports settings that cannot be used
func (c *Config) Validate() error {
	switch c.Audio.Backend {
	case AudioOto, AudioMIDI, AudioNone:
	default:
		return fmt.Errorf("unknown audio backend %q", c.Audio.Backend)
	}
	if c.Audio.Channel < 0 || c.Audio.Channel > 15 {
		return fmt.Errorf("midi channel %d out of range 0-15", c.Audio.Channel)
	}
	if c.Audio.Gain <= 0 || c.Audio.Gain > 1 {
		return fmt.Errorf("gain %v out of range (0, 1]", c.Audio.Gain)
	}
	if c.Density < 0 || c.Density > 1 {
		return fmt.Errorf("density %v out of range 0-1", c.Density)
	}
	return nil
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tonegrid"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. Missing fields keep their defaults;
// a missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// SaveSession records the last tempo and key in the file at path. The rest
// of the file is written back as it was read, so command-line overrides of
// the running config never become permanent.
func SaveSession(path string, tempo float64, tonic, scale string) error {
	cfg, err := LoadFrom(path)
	if err != nil {
		return err
	}
	cfg.Tempo = tempo
	cfg.Tonic = tonic
	cfg.Scale = scale
	return cfg.SaveTo(path)
}
