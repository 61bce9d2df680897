package sequencer

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"tonegrid/debug"
	"tonegrid/grid"
	"tonegrid/scale"
	"tonegrid/tone"
)

// ErrAudioUnavailable wraps the platform error when the audio pipeline
// cannot be created. It is cached: later starts fail the same way.
var ErrAudioUnavailable = errors.New("audio pipeline unavailable")

// Options configures a Sequencer. Zero values fall back to defaults.
type Options struct {
	Grid        *grid.Grid
	Tables      scale.Tables
	NewPipeline func() (tone.Pipeline, error)
	Waveform    tone.Waveform
	Gain        float64 // 0 selects tone.DefaultGain
	Density     float64 // randomize probability
	BPM         float64
	Tonic       string
	Scale       string
	Clock       Clock
	Rand        *rand.Rand
}

// State is a snapshot of playback
type State struct {
	Playing      bool
	Column       int // next column to sound
	Playhead     int // column sounding now, -1 when stopped
	BPM          float64
	StepInterval time.Duration
	Tonic        string
	Scale        string
	Session      string // playback session id, empty when stopped
	Started      time.Time
	Voices       int // live tone generators
}

// ControlsEnabled reports whether key, scale and tempo may be edited
func (s State) ControlsEnabled() bool {
	return !s.Playing
}

// Sequencer owns the play/stop lifecycle, the column cursor and the
// re-arming step timer. It is the only thing that touches the tone bank.
type Sequencer struct {
	mu sync.Mutex

	grid        *grid.Grid
	tables      scale.Tables
	newPipeline func() (tone.Pipeline, error)
	waveform    tone.Waveform
	gain        float64
	density     float64
	clock       Clock
	rng         *rand.Rand

	pipeline    tone.Pipeline
	pipelineErr error

	bank  *tone.Bank
	timer Timer
	gen   uint64 // bumped on every start/stop; stale timers compare against it

	state        State
	freqs        []float64 // resolved for the current selection
	sessionFreqs []float64 // frozen at start

	subsMu sync.Mutex
	subs   []chan struct{}
}

// New validates the tables and initial key and returns a stopped sequencer
func New(opts Options) (*Sequencer, error) {
	if opts.Grid == nil {
		opts.Grid = grid.New()
	}
	if len(opts.Tables.Tonics) == 0 {
		opts.Tables = scale.DefaultTables()
	}
	if err := opts.Tables.Validate(); err != nil {
		return nil, err
	}
	if opts.NewPipeline == nil {
		return nil, errors.New("no audio pipeline")
	}
	if opts.Gain <= 0 {
		opts.Gain = tone.DefaultGain
	}
	if opts.Density <= 0 {
		opts.Density = grid.DefaultDensity
	}
	if opts.BPM <= 0 {
		opts.BPM = DefaultBPM
	}
	if opts.Tonic == "" {
		opts.Tonic = opts.Tables.Tonics[0].Name
	}
	if opts.Scale == "" {
		opts.Scale = opts.Tables.Scales[0].Name
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}

	freqs, err := opts.Tables.Resolve(opts.Tonic, opts.Scale)
	if err != nil {
		return nil, err
	}

	bpm := ClampBPM(opts.BPM)
	return &Sequencer{
		grid:        opts.Grid,
		tables:      opts.Tables,
		newPipeline: opts.NewPipeline,
		waveform:    opts.Waveform,
		gain:        opts.Gain,
		density:     opts.Density,
		clock:       opts.Clock,
		rng:         opts.Rand,
		freqs:       freqs,
		state: State{
			Playhead:     -1,
			BPM:          bpm,
			StepInterval: StepInterval(bpm),
			Tonic:        opts.Tonic,
			Scale:        opts.Scale,
		},
	}, nil
}

// Grid returns the grid the sequencer reads
func (s *Sequencer) Grid() *grid.Grid {
	return s.grid
}

// Tables returns the tonic/scale tables
func (s *Sequencer) Tables() scale.Tables {
	return s.tables
}

// Start begins playback from column 0. Starting while playing is a no-op.
func (s *Sequencer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked()
}

// Stop releases the tone bank and cancels the pending step. Stopping while
// stopped is a no-op.
func (s *Sequencer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

// TogglePlay starts or stops, like a play/pause button
func (s *Sequencer) TogglePlay() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Playing {
		return s.stopLocked()
	}
	return s.startLocked()
}

func (s *Sequencer) startLocked() error {
	if s.state.Playing {
		return nil
	}
	if err := s.ensurePipeline(); err != nil {
		return err
	}

	freqs, err := s.tables.Resolve(s.state.Tonic, s.state.Scale)
	if err != nil {
		return err
	}

	bank, err := tone.NewBank(s.pipeline, grid.Rows, s.waveform, s.gain)
	if err != nil {
		debug.Log("seq", "tone bank failed: %v", err)
		return fmt.Errorf("create tone bank: %w", err)
	}

	s.gen++
	s.bank = bank
	s.freqs = freqs
	s.sessionFreqs = freqs
	s.state.Playing = true
	s.state.Column = 0
	s.state.Playhead = -1
	s.state.Session = uuid.NewString()
	s.state.Started = s.clock.Now()

	debug.Log("seq", "start session=%s bpm=%.0f interval=%s key=%s %s",
		s.state.Session, s.state.BPM, s.state.StepInterval, s.state.Tonic, s.state.Scale)

	s.stepLocked(s.gen)
	return nil
}

// ensurePipeline creates the process-wide pipeline on first use. A failure
// is remembered and never retried.
func (s *Sequencer) ensurePipeline() error {
	if s.pipeline != nil {
		return nil
	}
	if s.pipelineErr != nil {
		return s.pipelineErr
	}
	p, err := s.newPipeline()
	if err != nil {
		s.pipelineErr = fmt.Errorf("%w: %w", ErrAudioUnavailable, err)
		debug.Log("seq", "%v", s.pipelineErr)
		return s.pipelineErr
	}
	s.pipeline = p
	return nil
}

func (s *Sequencer) stopLocked() error {
	if !s.state.Playing {
		return nil
	}

	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	err := s.bank.Release()
	s.bank = nil

	debug.Log("seq", "stop session=%s", s.state.Session)

	s.state.Playing = false
	s.state.Column = 0
	s.state.Playhead = -1
	s.state.Session = ""
	s.state.Started = time.Time{}
	s.sessionFreqs = nil

	// pick up a key chosen during the session
	if freqs, err := s.tables.Resolve(s.state.Tonic, s.state.Scale); err == nil {
		s.freqs = freqs
	}

	s.notify()
	if err != nil {
		return fmt.Errorf("release tone bank: %w", err)
	}
	return nil
}

func (s *Sequencer) step(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepLocked(gen)
}

// stepLocked sounds the current column and re-arms the timer. The delay
// starts after this step's work, so the achieved period is the interval
// plus processing time.
func (s *Sequencer) stepLocked(gen uint64) {
	if !s.state.Playing || gen != s.gen || s.bank == nil {
		return
	}

	col := s.state.Column
	cells := s.grid.Column(col)
	for row, on := range cells {
		hz := 0.0
		if on {
			hz = s.sessionFreqs[row]
		}
		if err := s.bank.Retune(row, hz); err != nil {
			debug.Log("seq", "session=%s col=%d: %v", s.state.Session, col, err)
		}
	}
	debug.LogEvery(32, "step", "session=%s col=%d", s.state.Session, col)

	s.state.Playhead = col
	s.state.Column = (col + 1) % grid.Cols
	s.timer = s.clock.AfterFunc(s.state.StepInterval, func() { s.step(gen) })

	s.notify()
}

// SetTempo changes the BPM. While playing, the session is restarted with a
// fresh tone bank and the cursor back at column 0.
func (s *Sequencer) SetTempo(bpm float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bpm = ClampBPM(bpm)
	s.state.BPM = bpm
	s.state.StepInterval = StepInterval(bpm)

	if !s.state.Playing {
		s.notify()
		return nil
	}

	debug.Log("seq", "tempo restart bpm=%.0f", bpm)
	stopErr := s.stopLocked()
	if err := s.startLocked(); err != nil {
		return errors.Join(stopErr, err)
	}
	return stopErr
}

// SetKey selects tonic and scale. The running session keeps the
// frequencies it started with; the change applies from the next start.
func (s *Sequencer) SetKey(tonic, scaleName string) error {
	freqs, err := s.tables.Resolve(tonic, scaleName)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Tonic = tonic
	s.state.Scale = scaleName
	if !s.state.Playing {
		s.freqs = freqs
	}
	s.notify()
	return nil
}

// Frequencies returns the row frequencies in use: the frozen session table
// while playing, the current selection while stopped.
func (s *Sequencer) Frequencies() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.freqs
	if s.state.Playing {
		src = s.sessionFreqs
	}
	out := make([]float64, len(src))
	copy(out, src)
	return out
}

// ToggleCell flips one grid cell
func (s *Sequencer) ToggleCell(row, col int) bool {
	on := s.grid.Toggle(row, col)
	s.notify()
	return on
}

// Randomize switches each cell on with the configured density
func (s *Sequencer) Randomize() {
	s.mu.Lock()
	s.grid.Randomize(s.rng, s.density)
	s.mu.Unlock()
	s.notify()
}

// Clear stops playback and switches every cell off
func (s *Sequencer) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.stopLocked()
	s.grid.Clear()
	s.notify()
	return err
}

// State returns a snapshot of playback
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if s.bank != nil {
		st.Voices = s.bank.Live()
	}
	return st
}

// Close stops playback and shuts the audio pipeline down
func (s *Sequencer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.stopLocked()
	if s.pipeline != nil {
		err = errors.Join(err, s.pipeline.Close())
		s.pipeline = nil
		s.pipelineErr = errors.New("sequencer closed")
	}
	return err
}

// Subscribe returns a channel that receives a value whenever state changes.
// Notifications coalesce; a slow reader sees at most one pending.
func (s *Sequencer) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.subsMu.Lock()
	s.subs = append(s.subs, ch)
	s.subsMu.Unlock()
	return ch
}

func (s *Sequencer) notify() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
