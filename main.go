package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"tonegrid/config"
	"tonegrid/debug"
	"tonegrid/grid"
	"tonegrid/midi"
	"tonegrid/scale"
	"tonegrid/sequencer"
	"tonegrid/theme"
	"tonegrid/tone"
	"tonegrid/tui"
)

func main() {
	configPath := flag.String("config", "", "config file (default ~/.config/tonegrid/config.json)")
	bpm := flag.Float64("bpm", 0, "tempo in beats per minute")
	tonic := flag.String("tonic", "", "tonic, e.g. C or F#")
	scaleName := flag.String("scale", "", "scale, e.g. Major or Dorian")
	audio := flag.String("audio", "", "audio output: oto, midi or none")
	wave := flag.String("wave", "", "waveform: triangle, sine, square or sawtooth")
	debugLog := flag.Bool("debug", false, "write ~/.config/tonegrid/debug.log")
	flag.Parse()

	// Load config
	path := *configPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		path = p
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Flags override the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "bpm":
			cfg.Tempo = *bpm
		case "tonic":
			cfg.Tonic = *tonic
		case "scale":
			cfg.Scale = *scaleName
		case "audio":
			cfg.Audio.Backend = *audio
		case "wave":
			cfg.Audio.Waveform = *wave
		case "debug":
			cfg.Debug = *debugLog
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if cfg.Debug {
		if err := debug.Enable(debug.DefaultPath()); err != nil {
			fmt.Fprintf(os.Stderr, "debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	waveform, err := tone.ParseWaveform(cfg.Audio.Waveform)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Load theme
	palette, err := theme.Load(cfg.UI.Palette)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	th := theme.New(palette)

	seq, err := sequencer.New(sequencer.Options{
		Grid:        grid.New(),
		Tables:      scale.DefaultTables(),
		NewPipeline: pipelineFactory(cfg.Audio),
		Waveform:    waveform,
		Gain:        cfg.Audio.Gain,
		Density:     cfg.Density,
		BPM:         cfg.Tempo,
		Tonic:       cfg.Tonic,
		Scale:       cfg.Scale,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	debug.Log("main", "config=%s audio=%s wave=%s", path, cfg.Audio.Backend, waveform)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	surface := sequencer.NewSurface(seq, th)
	go surface.Run(ctx)

	// MIDI device manager (handles hot-plug). The tone sink's own port is
	// never treated as a keyboard.
	var deviceMgr *midi.DeviceManager
	if cfg.Controller.Launchpad || cfg.Controller.Keyboards {
		var ignore []string
		if cfg.Audio.Backend == config.AudioMIDI {
			ignore = append(ignore, cfg.Audio.MIDIPort)
		}
		if !cfg.Controller.Launchpad {
			ignore = append(ignore, "launchpad")
		}
		deviceMgr = midi.NewDeviceManager(cfg.Controller.Keyboards, ignore...)
		go deviceMgr.Run(ctx)
	}

	// Create and run TUI
	m := tui.NewModel(seq, surface, deviceMgr, th)
	p := tea.NewProgram(m, tea.WithAltScreen())

	_, runErr := p.Run()

	if err := seq.Close(); err != nil {
		debug.Log("main", "close: %v", err)
	}

	// Remember tempo and key for next time; flags stay one-off
	st := seq.State()
	if err := config.SaveSession(path, st.BPM, st.Tonic, st.Scale); err != nil {
		debug.Log("main", "save config: %v", err)
	}

	if runErr != nil {
		fmt.Printf("Error: %v\n", runErr)
		os.Exit(1)
	}
}

// pipelineFactory picks the tone output. The sequencer calls it once, on
// the first start.
func pipelineFactory(a config.AudioConfig) func() (tone.Pipeline, error) {
	switch a.Backend {
	case config.AudioMIDI:
		return func() (tone.Pipeline, error) {
			return tone.OpenMIDIPipeline(a.MIDIPort, uint8(a.Channel))
		}
	case config.AudioNone:
		return func() (tone.Pipeline, error) {
			return tone.NewSilentPipeline(), nil
		}
	default:
		return func() (tone.Pipeline, error) {
			return tone.NewOtoPipeline()
		}
	}
}
