package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"tonegrid/midi"
	"tonegrid/scale"
	"tonegrid/theme"
	"tonegrid/tone"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	var err error
	switch os.Args[1] {
	case "list":
		listPorts()
	case "scale":
		err = playScale(os.Args[2:])
	case "sweep":
		err = sweep()
	case "leds":
		err = testLEDs()
	default:
		usage()
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("tonegrid test scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                 - List all MIDI ports")
	fmt.Println("  scale <tonic> <name> - Print a frequency table and play it top to bottom")
	fmt.Println("  sweep                - Play A4 in every waveform")
	fmt.Println("  leds                 - Light the Launchpad grid diagonal")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	type result struct {
		ins  []drivers.In
		outs []drivers.Out
	}
	ch := make(chan result, 1)
	go func() {
		ch <- result{ins: gomidi.GetInPorts(), outs: gomidi.GetOutPorts()}
	}()

	select {
	case r := <-ch:
		for i, p := range r.ins {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
		fmt.Println("\n=== MIDI Output Ports ===")
		for i, p := range r.outs {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
	}
}

func playScale(args []string) error {
	tonic, name := "C", "Major"
	if len(args) > 0 {
		tonic = args[0]
	}
	if len(args) > 1 {
		name = args[1]
	}

	tables := scale.DefaultTables()
	freqs, err := tables.Resolve(tonic, name)
	if err != nil {
		return fmt.Errorf("%w (tonics: %s; scales: %s)", err,
			strings.Join(tables.TonicNames(), " "), strings.Join(tables.ScaleNames(), " "))
	}

	fmt.Printf("%s %s\n", tonic, name)
	for row, hz := range freqs {
		note, _ := tone.MIDINote(hz)
		fmt.Printf("  row %d: %8.2f Hz  (%s, note %d)\n", row, hz, tables.PitchClass(note), note)
	}

	pipe, err := tone.NewOtoPipeline()
	if err != nil {
		return err
	}
	defer pipe.Close()

	voice, err := pipe.NewGenerator(tone.Triangle, tone.DefaultGain)
	if err != nil {
		return err
	}
	defer voice.Release()

	for _, hz := range freqs {
		if err := voice.SetFrequency(hz); err != nil {
			return err
		}
		time.Sleep(300 * time.Millisecond)
	}
	return nil
}

func sweep() error {
	pipe, err := tone.NewOtoPipeline()
	if err != nil {
		return err
	}
	defer pipe.Close()

	for _, w := range []tone.Waveform{tone.Triangle, tone.Sine, tone.Square, tone.Sawtooth} {
		fmt.Printf("%s...\n", w)
		voice, err := pipe.NewGenerator(w, tone.DefaultGain)
		if err != nil {
			return err
		}
		if err := voice.SetFrequency(440); err != nil {
			voice.Release()
			return err
		}
		time.Sleep(time.Second)
		if err := voice.Release(); err != nil {
			return err
		}
	}
	return nil
}

func testLEDs() error {
	fmt.Println("Testing LED control...")

	var outPort drivers.Out
	for _, p := range gomidi.GetOutPorts() {
		name := strings.ToLower(p.String())
		if strings.Contains(name, "launchpad") && strings.Contains(name, "midi") {
			outPort = p
			break
		}
	}
	if outPort == nil {
		fmt.Println("No Launchpad found")
		return nil
	}
	fmt.Printf("Using output: %s\n", outPort.String())

	lp, err := midi.NewLaunchpadController(outPort.String(), nil, outPort)
	if err != nil {
		return err
	}
	defer lp.Close()

	th := theme.New(nil)
	fmt.Println("Lighting up diagonal...")
	for i := 0; i < midi.PadRows; i++ {
		led := midi.LEDUpdate{Row: i, Col: i, Color: th.RGB(float64(i) / float64(midi.PadRows-1))}
		if err := lp.SetLEDBatch([]midi.LEDUpdate{led}); err != nil {
			return err
		}
		time.Sleep(100 * time.Millisecond)
	}

	fmt.Println("Press Enter to clear...")
	fmt.Scanln()
	fmt.Println("Done!")
	return nil
}
