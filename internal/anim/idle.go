package anim

import (
	"math"
	"math/rand"
	"sync"
)

// BodyPose is the procedural idle contribution for one frame. The rig applies
// it after the face layers; while an action clip is active the pose is zero
// because the clip fully overrides this layer.
type BodyPose struct {
	Breath float32 // chest expansion, 0..amplitude
	SwayX  float32 // lateral lean, radians
	SwayZ  float32 // fore-aft lean, radians
}

// BodyLayer produces continuous idle motion: breathing plus a slow
// multi-frequency sway. Suppressed entirely while a one-shot action plays.
type BodyLayer struct {
	mu sync.Mutex

	suppressed bool
	time       float32

	breathRate      float32
	breathAmplitude float32
	swayRate        float32
	swayAmplitude   float32

	phaseOffsets [4]float32
}

// NewBodyLayer creates the idle layer with randomized phase offsets so two
// characters never breathe in lockstep.
func NewBodyLayer(breathRate, breathAmplitude, swayRate, swayAmplitude float32) *BodyLayer {
	bl := &BodyLayer{
		breathRate:      breathRate,
		breathAmplitude: breathAmplitude,
		swayRate:        swayRate,
		swayAmplitude:   swayAmplitude,
	}
	for i := range bl.phaseOffsets {
		bl.phaseOffsets[i] = rand.Float32() * 100
	}
	return bl
}

// SetSuppressed disables idle motion while an action clip owns the body.
func (bl *BodyLayer) SetSuppressed(suppressed bool) {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	bl.suppressed = suppressed
}

// Suppressed reports whether the layer is currently overridden.
func (bl *BodyLayer) Suppressed() bool {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	return bl.suppressed
}

// Tick advances the oscillators and returns this frame's pose. Time keeps
// accumulating while suppressed so motion resumes mid-phase without a pop.
func (bl *BodyLayer) Tick(dt float32) BodyPose {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	bl.time += dt
	if bl.suppressed {
		return BodyPose{}
	}

	breathPhase := float64(bl.time*bl.breathRate*2*math.Pi + bl.phaseOffsets[0])
	breath := (float32(math.Sin(breathPhase))*0.5 + 0.5) * bl.breathAmplitude

	t := float64(bl.time * bl.swayRate)
	swayX := float32(math.Sin(t+float64(bl.phaseOffsets[1]))+0.4*math.Sin(t*2.7+float64(bl.phaseOffsets[2]))) * bl.swayAmplitude
	swayZ := float32(math.Sin(t*0.8+float64(bl.phaseOffsets[3]))) * bl.swayAmplitude * 0.5

	return BodyPose{Breath: breath, SwayX: swayX, SwayZ: swayZ}
}

// Reset rewinds the oscillators.
func (bl *BodyLayer) Reset() {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	bl.time = 0
	bl.suppressed = false
}
