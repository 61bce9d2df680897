package sequencer

import "time"

const (
	MinBPM     = 20
	MaxBPM     = 300
	DefaultBPM = 120
)

// StepInterval converts a BPM into the delay between column advances.
// The grid runs eighth notes against a quarter-note BPM, so a column lasts
// half a beat: 120 BPM -> 250ms.
func StepInterval(bpm float64) time.Duration {
	ms := (60 / bpm) * 500
	return time.Duration(ms * float64(time.Millisecond))
}

// ClampBPM bounds a tempo to what the controls allow
func ClampBPM(bpm float64) float64 {
	if bpm < MinBPM {
		return MinBPM
	}
	if bpm > MaxBPM {
		return MaxBPM
	}
	return bpm
}
