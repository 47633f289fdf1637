package vis

import "time"

// Playback manages replay timing in ticks. Time is continuous so agents
// glide between cells; the integer part selects the frame.
type Playback struct {
	Current float64 // current position in ticks
	Max     float64 // last tick of the replay
	Speed   float64 // ticks per second
	Playing bool

	lastUpdate time.Time
}

func NewPlayback(maxTick int) *Playback {
	return &Playback{
		Max:        float64(maxTick),
		Speed:      4,
		lastUpdate: time.Now(),
	}
}

func (p *Playback) TogglePlay() {
	p.Playing = !p.Playing
	if p.Playing {
		p.lastUpdate = time.Now()
		if p.Current >= p.Max {
			p.Current = 0
		}
	}
}

func (p *Playback) Pause() { p.Playing = false }

func (p *Playback) Reset() {
	p.Current = 0
	p.Playing = false
}

// Advance moves the playhead by wall-clock time since the last call.
func (p *Playback) Advance() {
	if !p.Playing {
		return
	}
	now := time.Now()
	p.Current += now.Sub(p.lastUpdate).Seconds() * p.Speed
	p.lastUpdate = now
	if p.Current >= p.Max {
		p.Current = p.Max
		p.Playing = false
	}
}

func (p *Playback) Seek(t float64) {
	if t < 0 {
		t = 0
	}
	if t > p.Max {
		t = p.Max
	}
	p.Current = t
}

func (p *Playback) StepForward() {
	p.Pause()
	p.Seek(float64(p.Tick() + 1))
}

func (p *Playback) StepBack() {
	p.Pause()
	p.Seek(float64(p.Tick() - 1))
}

func (p *Playback) SetSpeed(s float64) {
	if s < 0.5 {
		s = 0.5
	}
	if s > 64 {
		s = 64
	}
	p.Speed = s
}

// Tick is the frame index under the playhead.
func (p *Playback) Tick() int { return int(p.Current) }

// Progress is the playhead position as 0..1.
func (p *Playback) Progress() float64 {
	if p.Max <= 0 {
		return 0
	}
	return p.Current / p.Max
}
