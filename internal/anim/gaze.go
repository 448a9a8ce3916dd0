package anim

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// GazeMode distinguishes idle drift from an externally directed target.
type GazeMode int

const (
	GazeIdle GazeMode = iota
	GazeDirected
)

// Gaze maintains a damped look-at focal point. External rig-binding code
// calls Tick every frame and aims the eyes and neck at the returned point;
// there is no base-class hierarchy to override, only this component.
type Gaze struct {
	mu sync.Mutex

	mode     GazeMode
	base     mgl32.Vec3
	directed mgl32.Vec3
	position mgl32.Vec3
	speaking bool

	idleRate     float32
	directedRate float32

	driftAmplitude    float32
	speakingDampening float32
	time              float32

	maxYaw   float32 // radians
	maxPitch float32 // radians
}

// GazeConfig holds the tunable gaze constants.
type GazeConfig struct {
	RestPoint         mgl32.Vec3
	IdleRate          float32 // smoothing constant while drifting
	DirectedRate      float32 // smoothing constant while a target is active
	DriftAmplitude    float32
	SpeakingDampening float32 // drift multiplier while speaking, 0..1
	MaxYaw            float32 // radians
	MaxPitch          float32 // radians
}

// NewGaze creates a gaze component looking at the rest point.
func NewGaze(cfg GazeConfig) *Gaze {
	return &Gaze{
		base:              cfg.RestPoint,
		position:          cfg.RestPoint,
		idleRate:          cfg.IdleRate,
		directedRate:      cfg.DirectedRate,
		driftAmplitude:    cfg.DriftAmplitude,
		speakingDampening: cfg.SpeakingDampening,
		maxYaw:            cfg.MaxYaw,
		maxPitch:          cfg.MaxPitch,
	}
}

// SetDirected overrides idle drift with an explicit focal point, e.g. the
// pointer position projected into the scene.
func (g *Gaze) SetDirected(p mgl32.Vec3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.directed = p
	g.mode = GazeDirected
}

// ClearDirected returns the gaze to idle drift.
func (g *Gaze) ClearDirected() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mode = GazeIdle
}

// SetSpeaking reduces drift amplitude while the character talks, so she looks
// attentive without holding a dead stare.
func (g *Gaze) SetSpeaking(speaking bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.speaking = speaking
}

// Mode returns the current gaze mode.
func (g *Gaze) Mode() GazeMode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// Tick advances the damped focal point and returns it. The smoothing is
// position += (target - position) * (1 - e^(-k*dt)) with a larger k while a
// directed target is active.
func (g *Gaze) Tick(dt float32) mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.time += dt

	target := g.instantTarget()
	rate := g.idleRate
	if g.mode == GazeDirected {
		rate = g.directedRate
	}

	factor := 1 - float32(math.Exp(float64(-rate*dt)))
	g.position = g.position.Add(target.Sub(g.position).Mul(factor))
	return g.position
}

// Position returns the smoothed focal point without advancing it.
func (g *Gaze) Position() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position
}

// AimAngles converts the focal point to yaw/pitch for the rig, measured from
// the given eye origin looking down -Z. When either angle exceeds its limit
// the underlying aim recenters to the rest point instead of clamping at the
// boundary, so an out-of-range target cannot hold an extreme pose.
func (g *Gaze) AimAngles(origin mgl32.Vec3) (yaw, pitch float32) {
	g.mu.Lock()
	defer g.mu.Unlock()

	dir := g.position.Sub(origin)
	yaw = float32(math.Atan2(float64(dir.X()), float64(-dir.Z())))
	horiz := float32(math.Hypot(float64(dir.X()), float64(dir.Z())))
	pitch = float32(math.Atan2(float64(dir.Y()), float64(horiz)))

	if abs32(yaw) > g.maxYaw || abs32(pitch) > g.maxPitch {
		g.position = g.base
		if g.mode == GazeDirected {
			g.mode = GazeIdle
		}
		return 0, 0
	}
	return yaw, pitch
}

// Reset snaps the focal point back to the rest position.
func (g *Gaze) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mode = GazeIdle
	g.position = g.base
	g.time = 0
}

// instantTarget computes this frame's raw target before damping. Idle drift
// layers three incommensurate sine frequencies so the pattern never visibly
// repeats.
func (g *Gaze) instantTarget() mgl32.Vec3 {
	if g.mode == GazeDirected {
		return g.directed
	}

	amp := g.driftAmplitude
	if g.speaking {
		amp *= g.speakingDampening
	}

	t := float64(g.time)
	dx := float32(math.Sin(t*0.7)+0.5*math.Sin(t*1.9+1.3)) * amp
	dy := float32(math.Sin(t*0.9+0.6)+0.5*math.Sin(t*2.3+2.1)) * amp * 0.6
	return g.base.Add(mgl32.Vec3{dx, dy, 0})
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
