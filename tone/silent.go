package tone

import "sync"

// SilentPipeline tracks voices without producing sound. Used for headless
// runs and when audio output is set to "none".
type SilentPipeline struct {
	mu   sync.Mutex
	live int
}

func NewSilentPipeline() *SilentPipeline {
	return &SilentPipeline{}
}

func (p *SilentPipeline) NewGenerator(w Waveform, gain float64) (Generator, error) {
	p.mu.Lock()
	p.live++
	p.mu.Unlock()
	return &silentVoice{pipe: p}, nil
}

// Live returns how many voices have been created and not yet released
func (p *SilentPipeline) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

func (p *SilentPipeline) Close() error {
	return nil
}

type silentVoice struct {
	pipe     *SilentPipeline
	hz       float64
	released bool
}

func (v *silentVoice) SetFrequency(hz float64) error {
	if v.released {
		return ErrReleased
	}
	v.hz = hz
	return nil
}

func (v *silentVoice) Release() error {
	if v.released {
		return nil
	}
	v.released = true
	v.pipe.mu.Lock()
	v.pipe.live--
	v.pipe.mu.Unlock()
	return nil
}
