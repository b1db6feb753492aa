// Package sound provides audible key feedback: a short tick per
// accepted count and a low buzz at the arithmetic boundary.
package sound

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

const (
	tickFreq = 880.0
	buzzFreq = 220.0

	tickDuration = 40 * time.Millisecond
	buzzDuration = 120 * time.Millisecond
)

// Player synthesizes feedback tones through the system speaker.
// A Player that failed to initialize, or a nil Player, is silent;
// audio is never required for the counter to work.
type Player struct {
	ready bool
}

// NewPlayer initializes the speaker. Initialization failure is not an
// error: the returned Player is silent.
func NewPlayer(silent bool) *Player {
	p := &Player{}
	if silent {
		return p
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return p
	}
	p.ready = true
	return p
}

// Tick plays the short confirmation tone.
func (p *Player) Tick() {
	p.play(tickFreq, tickDuration)
}

// Buzz plays the low boundary-condition tone.
func (p *Player) Buzz() {
	p.play(buzzFreq, buzzDuration)
}

func (p *Player) play(freq float64, d time.Duration) {
	if p == nil || !p.ready {
		return
	}
	tone, err := generators.SineTone(sampleRate, freq)
	if err != nil {
		return
	}
	speaker.Play(beep.Take(sampleRate.N(d), tone))
}

// Close shuts the speaker down.
func (p *Player) Close() {
	if p == nil || !p.ready {
		return
	}
	speaker.Close()
}
