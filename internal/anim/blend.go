// Package anim contains the facial and body animation layers: weighted
// blendshape controllers, the blink cycle, gaze damping, procedural idle
// motion and one-shot action playback. All layers are advanced once per
// render tick by the character controller; async callbacks only stage
// targets, never run blending math.
package anim

import "sync"

const weightEpsilon = 0.001

type shapeState struct {
	current float32
	target  float32
	emitted bool
}

// BlendController moves a set of named blendshape weights toward their
// targets with an exponential approach. Two instances exist: a slow one for
// expressions and a fast one for lip shapes.
type BlendController struct {
	mu     sync.Mutex
	rate   float32
	shapes map[string]*shapeState
	active string
}

// NewBlendController creates a controller whose weights complete roughly
// 1/rate seconds of a transition per unit step.
func NewBlendController(rate float32) *BlendController {
	return &BlendController{
		rate:   rate,
		shapes: make(map[string]*shapeState),
	}
}

// SetTarget stages a target weight for one shape. Safe to call from async
// callbacks; the next Tick observes it.
func (b *BlendController) SetTarget(name string, weight float32) {
	if name == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shape(name).target = clamp01(weight)
}

// SetActive makes name the single fully-weighted shape: its target becomes 1
// and every other tracked shape decays to 0. Blending between the outgoing
// and incoming shape happens implicitly through the per-shape approach
// curves. An empty name releases all shapes.
func (b *BlendController) SetActive(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.shapes {
		s.target = 0
	}
	if name != "" {
		b.shape(name).target = 1
	}
	b.active = name
}

// Active returns the currently selected exclusive shape, if any.
func (b *BlendController) Active() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Tick advances every weight toward its target. The update is a convex
// combination, so current never overshoots and stays in [0,1].
func (b *BlendController) Tick(dt float32) {
	if dt <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	step := dt * b.rate
	if step > 1 {
		step = 1
	}
	for name, s := range b.shapes {
		s.current += (s.target - s.current) * step
		if s.current < weightEpsilon && s.target == 0 && !s.emitted {
			// Fully decayed and already flushed as zero: stop tracking.
			delete(b.shapes, name)
		}
	}
}

// Weights returns the shapes worth writing this frame: everything above
// epsilon, plus shapes emitted last frame that have since decayed (so the rig
// sees one final zero instead of a stuck small weight).
func (b *BlendController) Weights() map[string]float32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]float32, len(b.shapes))
	for name, s := range b.shapes {
		if s.current >= weightEpsilon {
			out[name] = clamp01(s.current)
			s.emitted = true
		} else if s.emitted {
			out[name] = 0
			s.emitted = false
		}
	}
	return out
}

// Current returns one shape's present weight.
func (b *BlendController) Current(name string) float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.shapes[name]; ok {
		return s.current
	}
	return 0
}

// Reset drops every tracked shape and clears the active selection. Used when
// the avatar is hot-swapped.
func (b *BlendController) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shapes = make(map[string]*shapeState)
	b.active = ""
}

func (b *BlendController) shape(name string) *shapeState {
	s, ok := b.shapes[name]
	if !ok {
		s = &shapeState{}
		b.shapes[name] = s
	}
	return s
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
