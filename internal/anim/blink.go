package anim

import (
	"math/rand"
	"sync"
)

// BlinkPhase is one leg of the eyelid cycle.
type BlinkPhase int

const (
	BlinkIdle BlinkPhase = iota
	BlinkClosing
	BlinkOpening
)

// Blink runs the periodic eyelid cycle idle -> closing -> opening -> idle.
// It is fully independent of speech and expression state and always runs.
type Blink struct {
	mu sync.Mutex

	phase    BlinkPhase
	progress float32
	weight   float32

	countdown float32
	minGap    float32
	maxGap    float32
	closeDur  float32
	openDur   float32

	rng *rand.Rand
}

// NewBlink creates a blink machine. Gaps between blinks are re-randomized in
// [minGap, maxGap] after every completed cycle so the rhythm never reads as
// mechanical. Durations are in seconds.
func NewBlink(minGap, maxGap, closeDur, openDur float32) *Blink {
	b := &Blink{
		minGap:   minGap,
		maxGap:   maxGap,
		closeDur: closeDur,
		openDur:  openDur,
		rng:      rand.New(rand.NewSource(rand.Int63())),
	}
	b.countdown = b.nextGap()
	return b
}

// Tick advances the cycle and returns the eyelid weight for this frame.
func (b *Blink) Tick(dt float32) float32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.phase {
	case BlinkIdle:
		b.weight = 0
		b.countdown -= dt
		if b.countdown <= 0 {
			b.phase = BlinkClosing
			b.progress = 0
		}

	case BlinkClosing:
		b.progress += dt / b.closeDur
		if b.progress >= 1 {
			b.progress = 1
			b.phase = BlinkOpening
		}
		b.weight = b.progress

	case BlinkOpening:
		b.progress -= dt / b.openDur
		if b.progress <= 0 {
			b.progress = 0
			b.phase = BlinkIdle
			b.countdown = b.nextGap()
		}
		b.weight = b.progress
	}

	return b.weight
}

// Weight returns the current eyelid weight without advancing the cycle.
func (b *Blink) Weight() float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.weight
}

// Phase returns the current cycle phase.
func (b *Blink) Phase() BlinkPhase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase
}

// Reset returns the eyelids to open and re-arms the countdown.
func (b *Blink) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.phase = BlinkIdle
	b.progress = 0
	b.weight = 0
	b.countdown = b.nextGap()
}

func (b *Blink) nextGap() float32 {
	return b.minGap + b.rng.Float32()*(b.maxGap-b.minGap)
}
