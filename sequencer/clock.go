package sequencer

import "time"

// Timer is a pending step. Stop must be safe to call more than once.
type Timer interface {
	Stop() bool
}

// Clock schedules the re-arming step callback
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock is backed by the time package
var SystemClock Clock = systemClock{}
