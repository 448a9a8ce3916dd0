package anim

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ActionState tracks the lifecycle of the current one-shot action.
type ActionState int

const (
	ActionIdle ActionState = iota
	ActionLoading
	ActionPlaying
	ActionFinishing
)

func (s ActionState) String() string {
	switch s {
	case ActionLoading:
		return "loading"
	case ActionPlaying:
		return "playing"
	case ActionFinishing:
		return "finishing"
	default:
		return "idle"
	}
}

// Clip describes a loaded body animation. Parsing animation file formats is
// external; the loader hands back only what playback needs.
type Clip struct {
	ID       string
	Duration float64 // seconds
	Loop     bool
}

// ClipLoader resolves an action identifier to a playable clip. Load may block
// on I/O; the player always calls it off the animation thread.
type ClipLoader interface {
	Load(id string) (Clip, error)
}

type actionInstance struct {
	handle   uuid.UUID
	clip     Clip
	weight   float32
	playhead float64
}

// ActionPlayer plays one-shot body clips over the procedural idle layer.
// At most one action is current; triggering a new one crossfades from the old
// and discards it when the fade completes. A clip that reaches its natural
// end clamps its last pose and fades out rather than snapping to bind pose.
type ActionPlayer struct {
	mu sync.Mutex

	loader ClipLoader
	logger zerolog.Logger

	crossfade float64 // seconds, preemption handoff
	fadeOut   float64 // seconds, return to idle after natural end

	state    ActionState
	current  *actionInstance
	outgoing *actionInstance

	loadToken   uuid.UUID
	pendingClip *Clip
	pendingErr  error
}

// NewActionPlayer creates a player. crossfade covers preemption handoffs,
// fadeOut the return to idle after a clip's natural end.
func NewActionPlayer(loader ClipLoader, crossfade, fadeOut float64, logger zerolog.Logger) *ActionPlayer {
	return &ActionPlayer{
		loader:    loader,
		logger:    logger.With().Str("component", "action-player").Logger(),
		crossfade: crossfade,
		fadeOut:   fadeOut,
	}
}

// Trigger requests playback of an action clip. Loading happens off-thread;
// the staged result is picked up by the next Tick. Triggering while a clip is
// playing preempts it once the new clip is ready. Idempotent and safe to call
// at any time.
func (p *ActionPlayer) Trigger(clipID string) {
	if clipID == "" {
		return
	}

	p.mu.Lock()
	token := uuid.New()
	p.loadToken = token
	p.pendingClip = nil
	p.pendingErr = nil
	if p.state == ActionIdle {
		p.state = ActionLoading
	}
	p.mu.Unlock()

	go func() {
		clip, err := p.loader.Load(clipID)

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.loadToken != token {
			// A newer trigger superseded this load.
			return
		}
		if err != nil {
			p.pendingErr = err
			return
		}
		p.pendingClip = &clip
	}()
}

// Tick advances the state machine one frame.
func (p *ActionPlayer) Tick(dt float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.applyStaged()

	if p.outgoing != nil {
		p.outgoing.weight -= float32(dt / p.crossfade)
		if p.outgoing.weight <= 0 {
			p.outgoing = nil
		}
	}

	switch p.state {
	case ActionPlaying:
		cur := p.current
		cur.weight += float32(dt / p.crossfade)
		if cur.weight > 1 {
			cur.weight = 1
		}
		cur.playhead += dt
		if cur.playhead >= cur.clip.Duration {
			if cur.clip.Loop {
				cur.playhead -= cur.clip.Duration
				break
			}
			// Clamp the last pose; the fade-out hides the return to idle.
			cur.playhead = cur.clip.Duration
			p.state = ActionFinishing
			p.logger.Debug().Str("clip", cur.clip.ID).Msg("action reached natural end")
		}

	case ActionFinishing:
		p.current.weight -= float32(dt / p.fadeOut)
		if p.current.weight <= 0 {
			p.logger.Debug().Str("clip", p.current.clip.ID).Msg("action faded out")
			p.current = nil
			p.state = ActionIdle
		}
	}
}

// applyStaged consumes load results posted by the loader goroutine.
func (p *ActionPlayer) applyStaged() {
	if p.pendingErr != nil {
		p.logger.Warn().Err(p.pendingErr).Msg("action clip failed to load")
		p.pendingErr = nil
		if p.current == nil {
			p.state = ActionIdle
		} else if p.state == ActionFinishing {
			// Keep fading the clip that was about to be replaced.
		} else {
			p.state = ActionPlaying
		}
		return
	}

	if p.pendingClip == nil {
		return
	}

	clip := *p.pendingClip
	p.pendingClip = nil

	if p.current != nil {
		p.outgoing = p.current
	}
	p.current = &actionInstance{
		handle: uuid.New(),
		clip:   clip,
	}
	p.state = ActionPlaying
	p.logger.Info().Str("clip", clip.ID).Float64("duration", clip.Duration).Msg("action started")
}

// Active reports whether an action currently owns the body, i.e. the
// procedural idle layer must stay suppressed.
func (p *ActionPlayer) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == ActionPlaying || p.state == ActionFinishing
}

// State returns the current lifecycle state.
func (p *ActionPlayer) State() ActionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ActionSnapshot is the per-frame playback state handed to the rig.
type ActionSnapshot struct {
	State          ActionState
	ClipID         string
	Weight         float32
	ClipTime       float64
	OutgoingClipID string
	OutgoingWeight float32
}

// Snapshot returns the blend weights and playheads for this frame.
func (p *ActionPlayer) Snapshot() ActionSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := ActionSnapshot{State: p.state}
	if p.current != nil {
		snap.ClipID = p.current.clip.ID
		snap.Weight = clamp01(p.current.weight)
		snap.ClipTime = p.current.playhead
	}
	if p.outgoing != nil {
		snap.OutgoingClipID = p.outgoing.clip.ID
		snap.OutgoingWeight = clamp01(p.outgoing.weight)
	}
	return snap
}

// Reset discards any current action and returns to idle immediately.
func (p *ActionPlayer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loadToken = uuid.New()
	p.pendingClip = nil
	p.pendingErr = nil
	p.current = nil
	p.outgoing = nil
	p.state = ActionIdle
}
