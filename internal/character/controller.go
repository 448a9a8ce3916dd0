// Package character owns every animation layer of the virtual performer and
// advances them in a fixed order once per render tick. It replaces the
// original design's module-level singletons with one explicit context object:
// construct a Controller, hand it the tick, feed it messages.
package character

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"

	"github.com/gsgaurav0/AI-Girlfriend/internal/anim"
	"github.com/gsgaurav0/AI-Girlfriend/internal/audio"
	"github.com/gsgaurav0/AI-Girlfriend/internal/bus"
	"github.com/gsgaurav0/AI-Girlfriend/internal/config"
	"github.com/gsgaurav0/AI-Girlfriend/internal/emotion"
	"github.com/gsgaurav0/AI-Girlfriend/internal/phoneme"
	"github.com/gsgaurav0/AI-Girlfriend/internal/protocol"
)

// BlinkShape is the eyelid blendshape written by the blink layer.
const BlinkShape = "blink"

// Sink receives the flushed frame state. The scene/rig binding lives outside
// this core; it applies face weights to the model's blendshapes, aims the
// eyes and neck at the gaze point, and poses the body.
type Sink interface {
	ApplyFace(weights map[string]float32)
	ApplyGaze(point mgl32.Vec3)
	ApplyBody(pose anim.BodyPose, action anim.ActionSnapshot)
}

// Sender pushes user input to the dialogue channel. *protocol.Client
// satisfies it.
type Sender interface {
	Send(text string) error
}

// lipTrack is the active lip-sync schedule. It advances strictly
// front-to-back and is owned exclusively by the current utterance.
type lipTrack struct {
	events    []phoneme.Event
	idx       int
	remaining float64
	active    bool
}

// Controller wires the expression, lip, blink, gaze, body and action layers
// to the audio queue and the dialogue channel. All blending math runs on the
// tick goroutine; message and playback callbacks only stage targets.
type Controller struct {
	cfg    *config.Config
	logger zerolog.Logger
	events *bus.EventBus
	sink   Sink
	sender Sender

	expression *anim.BlendController
	lips       *anim.BlendController
	blink      *anim.Blink
	gaze       *anim.Gaze
	body       *anim.BodyLayer
	actions    *anim.ActionPlayer
	queue      *audio.Queue

	mu           sync.Mutex
	lip          lipTrack
	blinkFlushed bool
	loaded       bool
}

// New builds a controller. playback and loader are the injectable device
// boundaries; sink receives each flushed frame.
func New(cfg *config.Config, playback audio.Playback, loader anim.ClipLoader, sink Sink, events *bus.EventBus, logger zerolog.Logger) *Controller {
	a := cfg.Animation
	c := &Controller{
		cfg:        cfg,
		logger:     logger.With().Str("component", "character").Logger(),
		events:     events,
		sink:       sink,
		expression: anim.NewBlendController(a.ExpressionRate),
		lips:       anim.NewBlendController(a.LipRate),
		blink:      anim.NewBlink(a.BlinkMinGap, a.BlinkMaxGap, a.BlinkCloseDur, a.BlinkOpenDur),
		gaze: anim.NewGaze(anim.GazeConfig{
			RestPoint:         mgl32.Vec3{0, cfg.Avatar.EyeHeight, -1},
			IdleRate:          a.GazeIdleRate,
			DirectedRate:      a.GazeDirectedRate,
			DriftAmplitude:    a.GazeDrift,
			SpeakingDampening: a.SpeakingDampening,
			MaxYaw:            mgl32.DegToRad(a.MaxYawDeg),
			MaxPitch:          mgl32.DegToRad(a.MaxPitchDeg),
		}),
		body:    anim.NewBodyLayer(a.BreathRate, a.BreathAmplitude, a.SwayRate, a.SwayAmplitude),
		actions: anim.NewActionPlayer(loader, a.ActionCrossfade, a.ActionFadeOut, logger),
	}
	c.queue = audio.NewQueue(playback, c, a.NeutralGrace, logger)
	return c
}

// SetSender attaches the outbound channel once the protocol client exists.
func (c *Controller) SetSender(s Sender) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sender = s
}

// Queue exposes the audio queue, mainly for preemption from the UI layer.
func (c *Controller) Queue() *audio.Queue {
	return c.queue
}

// LoadAvatar resets every layer to neutral defaults for a freshly loaded
// model.
func (c *Controller) LoadAvatar() {
	c.resetLayers()
	c.mu.Lock()
	c.loaded = true
	c.mu.Unlock()
	c.events.Publish(bus.Event{Type: bus.EventTypeAvatarLoaded})
	c.logger.Info().Msg("avatar loaded, layers reset")
}

// UnloadAvatar aborts playback and returns every layer to neutral.
func (c *Controller) UnloadAvatar() {
	c.queue.Clear()
	c.resetLayers()
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()
	c.events.Publish(bus.Event{Type: bus.EventTypeAvatarUnloaded})
	c.logger.Info().Msg("avatar unloaded")
}

func (c *Controller) resetLayers() {
	c.expression.Reset()
	c.lips.Reset()
	c.blink.Reset()
	c.gaze.Reset()
	c.body.Reset()
	c.actions.Reset()

	c.mu.Lock()
	c.lip = lipTrack{}
	c.mu.Unlock()
}

// OnDialogueMessage dispatches one inbound animation command. With audio the
// emotion rides along on the queue item and is applied when that item starts
// producing sound; without audio it applies on the next tick. An action
// triggers independently, so a gesture and a spoken line may co-occur.
func (c *Controller) OnDialogueMessage(msg protocol.DialogueMessage) {
	tag := msg.Emotion
	if tag == "" && msg.Text != "" {
		tag = emotion.Analyze(msg.Text)
	}
	if !anim.KnownEmotion(tag) {
		tag = "neutral"
	}

	action := msg.Action
	if action == "" && c.cfg.Animation.EnableGestures {
		if g := emotion.GestureFor(tag); g != emotion.GestureIdle {
			action = g
		}
	}

	if len(msg.Audio) > 0 {
		c.queue.Enqueue(audio.NewItem(msg.Audio, msg.Text, tag))
	} else if tag != "" {
		c.expression.SetActive(anim.ExpressionForEmotion(tag))
		c.events.Publish(bus.Event{Type: bus.EventTypeEmotionChanged, Data: map[string]any{"emotion": tag}})
	}

	if action != "" {
		c.actions.Trigger(action)
		c.events.Publish(bus.Event{Type: bus.EventTypeActionTriggered, Data: map[string]any{"action": action}})
	}
}

// OnUserSubmit preempts any in-flight response and sends the user's line.
func (c *Controller) OnUserSubmit(text string) error {
	c.queue.Clear()

	c.mu.Lock()
	sender := c.sender
	c.mu.Unlock()
	if sender == nil {
		return fmt.Errorf("no dialogue channel attached")
	}
	return sender.Send(text)
}

// OnConnectionStatus surfaces channel status; the only error category shown
// to the user.
func (c *Controller) OnConnectionStatus(s protocol.Status) {
	evt := bus.EventTypeDisconnected
	if s == protocol.StatusConnected {
		evt = bus.EventTypeConnected
	}
	c.events.Publish(bus.Event{Type: evt, Data: map[string]any{"status": s.String()}})
}

// OnPointerMove directs the gaze from a pointer position in normalized
// screen coordinates (-1..1, +y up), projected onto a plane one unit in
// front of the eyes.
func (c *Controller) OnPointerMove(x, y float32) {
	c.gaze.SetDirected(mgl32.Vec3{x * 0.6, c.cfg.Avatar.EyeHeight + y*0.4, -1})
}

// OnPointerTarget directs the gaze at an explicit scene-space focal point.
func (c *Controller) OnPointerTarget(p mgl32.Vec3) {
	c.gaze.SetDirected(p)
}

// OnPointerLeave releases the directed gaze back to idle drift.
func (c *Controller) OnPointerLeave() {
	c.gaze.ClearDirected()
}

// BeginUtterance implements audio.Sink. It runs when a payload is about to
// produce sound, the only moment the true duration is known, and stages the
// lip schedule and expression for the next tick.
func (c *Controller) BeginUtterance(item audio.Item, duration float64) {
	events := phoneme.Parse(item.Text, duration)

	c.mu.Lock()
	c.lip = lipTrack{events: events, active: len(events) > 0}
	if c.lip.active {
		c.lip.remaining = events[0].Duration
	}
	c.mu.Unlock()

	c.expression.SetActive(anim.ExpressionForEmotion(item.Emotion))
	c.gaze.SetSpeaking(true)
	c.events.Publish(bus.Event{Type: bus.EventTypeSpeakingStarted, Data: map[string]any{
		"text": item.Text, "duration": duration,
	}})
	c.events.Publish(bus.Event{Type: bus.EventTypeEmotionChanged, Data: map[string]any{"emotion": item.Emotion}})
}

// EndSpeech implements audio.Sink: the queue drained, close the mouth.
func (c *Controller) EndSpeech() {
	c.mu.Lock()
	c.lip = lipTrack{}
	c.mu.Unlock()

	c.lips.SetActive("")
	c.gaze.SetSpeaking(false)
	c.events.Publish(bus.Event{Type: bus.EventTypeSpeakingStopped})
}

// ReturnToNeutral implements audio.Sink: the grace delay passed without new
// speech.
func (c *Controller) ReturnToNeutral() {
	c.expression.SetActive(anim.ExpressionNeutral)
}

// Tick advances all layers with one consistent delta and flushes the frame.
// Order is fixed: expression, lip, blink, gaze, body/action, flush. The body
// layer is defined to be fully overridden by an active action, never mixed.
func (c *Controller) Tick(dt float32) {
	c.expression.Tick(dt)

	c.advanceLip(float64(dt))
	c.lips.Tick(dt)

	blinkWeight := c.blink.Tick(dt)
	gazePoint := c.gaze.Tick(dt)

	c.actions.Tick(float64(dt))
	c.body.SetSuppressed(c.actions.Active())
	pose := c.body.Tick(dt)

	c.flush(blinkWeight, gazePoint, pose)
}

// advanceLip consumes the phoneme schedule front-to-back, retargeting the
// lip controller at every event boundary.
func (c *Controller) advanceLip(dt float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lip.active {
		return
	}

	// Apply the current event's target before advancing; staging may have
	// installed a fresh track since the last tick.
	c.applyLipEventLocked()

	c.lip.remaining -= dt
	for c.lip.remaining <= 0 {
		c.lip.idx++
		if c.lip.idx >= len(c.lip.events) {
			c.lip = lipTrack{}
			c.lips.SetActive("")
			return
		}
		c.lip.remaining += c.lip.events[c.lip.idx].Duration
		c.applyLipEventLocked()
	}
}

func (c *Controller) applyLipEventLocked() {
	ev := c.lip.events[c.lip.idx]
	c.lips.SetActive("")
	if ev.Shape != phoneme.ShapeNone {
		c.lips.SetTarget(ev.Shape.Name(), ev.Weight)
	}
}

// flush hands the frame to the rig. Face weights merge the expression and
// lip layers plus the eyelid; shapes that have decayed are already skipped
// by the blend controllers, and the eyelid gets one trailing zero after a
// blink so the rig never holds a stale weight.
func (c *Controller) flush(blinkWeight float32, gazePoint mgl32.Vec3, pose anim.BodyPose) {
	if c.sink == nil {
		return
	}

	face := c.expression.Weights()
	for name, w := range c.lips.Weights() {
		face[name] = w
	}

	c.mu.Lock()
	if blinkWeight > 0 {
		face[BlinkShape] = blinkWeight
		c.blinkFlushed = true
	} else if c.blinkFlushed {
		face[BlinkShape] = 0
		c.blinkFlushed = false
	}
	c.mu.Unlock()

	c.sink.ApplyFace(face)
	c.sink.ApplyGaze(gazePoint)
	c.sink.ApplyBody(pose, c.actions.Snapshot())
}

// Speaking reports whether a lip schedule is currently being consumed.
func (c *Controller) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lip.active
}

// Loaded reports whether an avatar is currently loaded.
func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}
