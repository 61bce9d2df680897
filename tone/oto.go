package tone

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
)

const (
	SampleRate   = 44100
	ChannelCount = 2

	// bytes per stereo float32 frame
	frameBytes = 4 * ChannelCount

	// device buffer
	otoBufferSize = 20 * time.Millisecond

	// each player pulls its source in chunks of this many bytes, and the
	// oscillator reads its frequency once per chunk. oto's default is half a
	// second, longer than a step.
	playerBufferBytes = frameBytes * SampleRate / 100
)

// playerLatency is how long a retune can wait before the next pull
func playerLatency() time.Duration {
	return time.Duration(playerBufferBytes/frameBytes) * time.Second / SampleRate
}

// OtoPipeline renders voices through the system audio device. oto allows a
// single context per process, so create one pipeline and keep it.
type OtoPipeline struct {
	ctx        *oto.Context
	sampleRate int
}

// NewOtoPipeline opens the audio device and waits until it is ready
func NewOtoPipeline() (*OtoPipeline, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatFloat32LE,
		BufferSize:   otoBufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoPipeline{ctx: ctx, sampleRate: SampleRate}, nil
}

// NewGenerator starts a player pulling from a free-running oscillator
func (p *OtoPipeline) NewGenerator(w Waveform, gain float64) (Generator, error) {
	if err := p.ctx.Err(); err != nil {
		return nil, fmt.Errorf("oto context failed: %w", err)
	}
	osc := newOscillator(w, float64(p.sampleRate))
	player := p.ctx.NewPlayer(osc)
	player.SetBufferSize(playerBufferBytes)
	player.SetVolume(gain)
	player.Play()
	return &otoVoice{player: player, osc: osc}, nil
}

// Close suspends the audio device
func (p *OtoPipeline) Close() error {
	if err := p.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

type otoVoice struct {
	mu       sync.Mutex
	player   *oto.Player
	osc      *oscillator
	released bool
}

func (v *otoVoice) SetFrequency(hz float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.released {
		return ErrReleased
	}
	v.osc.setFrequency(hz)
	return nil
}

func (v *otoVoice) Release() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.released {
		return nil
	}
	v.released = true
	if err := v.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}

// oscillator is an endless io.Reader of stereo float32 samples. The phase
// carries across frequency changes so a retune never restarts the wave.
type oscillator struct {
	wave       Waveform
	sampleRate float64
	freq       atomic.Uint64 // math.Float64bits
	phase      float64       // owned by the reading goroutine
}

func newOscillator(w Waveform, sampleRate float64) *oscillator {
	return &oscillator{wave: w, sampleRate: sampleRate}
}

func (o *oscillator) setFrequency(hz float64) {
	if hz < 0 {
		hz = 0
	}
	o.freq.Store(math.Float64bits(hz))
}

func (o *oscillator) frequency() float64 {
	return math.Float64frombits(o.freq.Load())
}

func (o *oscillator) Read(p []byte) (int, error) {
	frames := len(p) / frameBytes
	step := o.frequency() / o.sampleRate
	for i := 0; i < frames; i++ {
		putStereoF32(p, i, o.wave.Sample(o.phase))
		o.phase += step
		o.phase -= math.Floor(o.phase)
	}
	return frames * frameBytes, nil
}

// putStereoF32 writes a [-1,1] sample as float32 LE to both channels of frame i
func putStereoF32(buf []byte, i int, sample float64) {
	v := math.Float32bits(float32(sample))
	off := i * frameBytes
	for ch := 0; ch < ChannelCount; ch++ {
		buf[off+ch*4] = byte(v)
		buf[off+ch*4+1] = byte(v >> 8)
		buf[off+ch*4+2] = byte(v >> 16)
		buf[off+ch*4+3] = byte(v >> 24)
	}
}
