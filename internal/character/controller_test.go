package character

import (
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsgaurav0/AI-Girlfriend/internal/anim"
	"github.com/gsgaurav0/AI-Girlfriend/internal/audio"
	"github.com/gsgaurav0/AI-Girlfriend/internal/bus"
	"github.com/gsgaurav0/AI-Girlfriend/internal/config"
	"github.com/gsgaurav0/AI-Girlfriend/internal/protocol"
)

// fakePlayback records Start calls and lets the test drive the lifecycle
// callbacks by hand.
type fakePlayback struct {
	mu      sync.Mutex
	starts  []audio.PlaybackCallbacks
	stopped int
}

func (f *fakePlayback) Start(payload []byte, cb audio.PlaybackCallbacks) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, cb)
	return nil
}

func (f *fakePlayback) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
}

func (f *fakePlayback) State() audio.PlaybackState { return audio.PlaybackIdle }

func (f *fakePlayback) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

func (f *fakePlayback) firePlaying(i int, duration float64) {
	f.mu.Lock()
	cb := f.starts[i]
	f.mu.Unlock()
	cb.OnPlaying(duration)
}

func (f *fakePlayback) fireFinished(i int, err error) {
	f.mu.Lock()
	cb := f.starts[i]
	f.mu.Unlock()
	cb.OnFinished(err)
}

type stubLoader struct{}

func (stubLoader) Load(id string) (anim.Clip, error) {
	return anim.Clip{ID: id, Duration: 1.0}, nil
}

type frame struct {
	face   map[string]float32
	gaze   mgl32.Vec3
	pose   anim.BodyPose
	action anim.ActionSnapshot
}

// recordingRig captures every flushed frame.
type recordingRig struct {
	mu     sync.Mutex
	frames []frame
}

func (r *recordingRig) ApplyFace(weights map[string]float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame{face: weights})
}

func (r *recordingRig) ApplyGaze(point mgl32.Vec3) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames[len(r.frames)-1].gaze = point
}

func (r *recordingRig) ApplyBody(pose anim.BodyPose, action anim.ActionSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames[len(r.frames)-1].pose = pose
	r.frames[len(r.frames)-1].action = action
}

func (r *recordingRig) last() frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[len(r.frames)-1]
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (s *fakeSender) Send(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, text)
	return s.err
}

func newTestController(t *testing.T) (*Controller, *fakePlayback, *recordingRig) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Animation.NeutralGrace = 30 * time.Millisecond
	playback := &fakePlayback{}
	rig := &recordingRig{}
	c := New(cfg, playback, stubLoader{}, rig, bus.NewEventBus(), zerolog.Nop())
	c.LoadAvatar()
	return c, playback, rig
}

// tick pumps n frames of dt seconds each.
func tick(c *Controller, n int, dt float32) {
	for i := 0; i < n; i++ {
		c.Tick(dt)
	}
}

func TestController_AudioMessageDrivesLipsAndExpression(t *testing.T) {
	c, playback, rig := newTestController(t)

	c.OnDialogueMessage(protocol.DialogueMessage{
		Type:    protocol.TypeDialogue,
		Text:    "Hello there",
		Emotion: "happy",
		Audio:   []byte{0xff, 0xf3},
	})
	require.Equal(t, 1, playback.startCount())
	assert.False(t, c.Speaking(), "lips start only once sound does")

	playback.firePlaying(0, 1.5)
	assert.True(t, c.Speaking())

	tick(c, 10, 0.016)
	face := rig.last().face
	assert.Positive(t, face["happy"], "expression rises with the utterance")

	sawViseme := false
	rig.mu.Lock()
	for _, f := range rig.frames {
		for _, shape := range []string{"aa", "ee", "ih", "oh", "ou"} {
			if f.face[shape] > 0.05 {
				sawViseme = true
			}
		}
	}
	rig.mu.Unlock()
	assert.True(t, sawViseme, "lip shapes move while speaking")
}

func TestController_LipTrackEndsWithUtterance(t *testing.T) {
	c, playback, _ := newTestController(t)

	c.OnDialogueMessage(protocol.DialogueMessage{Text: "Hi", Emotion: "happy", Audio: []byte{1}})
	playback.firePlaying(0, 0.3)
	require.True(t, c.Speaking())

	// Consume the whole 0.3s schedule.
	tick(c, 40, 0.016)
	assert.False(t, c.Speaking())
}

func TestController_EmotionOnlyMessageAppliesImmediately(t *testing.T) {
	c, playback, rig := newTestController(t)

	c.OnDialogueMessage(protocol.DialogueMessage{Text: "I missed you so much", Emotion: "sad"})
	assert.Zero(t, playback.startCount())

	tick(c, 20, 0.016)
	assert.Positive(t, rig.last().face["sad"])
}

func TestController_MissingEmotionFallsBackToAnalyzer(t *testing.T) {
	c, _, rig := newTestController(t)

	c.OnDialogueMessage(protocol.DialogueMessage{Text: "I love you"})
	tick(c, 20, 0.016)
	// "love" maps onto the happy expression.
	assert.Positive(t, rig.last().face["happy"])
}

func TestController_UnknownEmotionTagTreatedAsNeutral(t *testing.T) {
	c, _, rig := newTestController(t)

	c.OnDialogueMessage(protocol.DialogueMessage{Text: "zzz", Emotion: "bamboozled"})
	tick(c, 20, 0.016)
	face := rig.last().face
	for _, shape := range []string{"happy", "sad", "angry", "surprised", "relaxed"} {
		assert.Zero(t, face[shape], "unknown tag must not light up %q", shape)
	}
}

func TestController_GestureDefaultsFromEmotion(t *testing.T) {
	c, _, rig := newTestController(t)

	// happy defaults to the nod gesture when no action is named.
	c.OnDialogueMessage(protocol.DialogueMessage{Text: "hello!", Emotion: "happy"})

	require.Eventually(t, func() bool {
		tick(c, 1, 0.016)
		return rig.last().action.ClipID == "nod"
	}, 2*time.Second, time.Millisecond)
}

func TestController_ExplicitActionWinsOverGesture(t *testing.T) {
	c, _, rig := newTestController(t)

	c.OnDialogueMessage(protocol.DialogueMessage{Text: "hello!", Emotion: "happy", Action: "dance"})

	require.Eventually(t, func() bool {
		tick(c, 1, 0.016)
		return rig.last().action.ClipID == "dance"
	}, 2*time.Second, time.Millisecond)
}

func TestController_GesturesDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Animation.EnableGestures = false
	rig := &recordingRig{}
	c := New(cfg, &fakePlayback{}, stubLoader{}, rig, bus.NewEventBus(), zerolog.Nop())
	c.LoadAvatar()

	c.OnDialogueMessage(protocol.DialogueMessage{Text: "hello!", Emotion: "happy"})
	tick(c, 30, 0.016)
	assert.Equal(t, anim.ActionIdle, rig.last().action.State)
}

func TestController_ActionSuppressesIdleBody(t *testing.T) {
	c, _, rig := newTestController(t)

	c.OnDialogueMessage(protocol.DialogueMessage{Action: "dance"})
	require.Eventually(t, func() bool {
		tick(c, 1, 0.016)
		return rig.last().action.State == anim.ActionPlaying
	}, 2*time.Second, time.Millisecond)

	tick(c, 5, 0.016)
	f := rig.last()
	assert.Zero(t, f.pose.Breath, "procedural idle fully overridden during an action")
	assert.Zero(t, f.pose.SwayX)
}

func TestController_UserSubmitPreemptsAndSends(t *testing.T) {
	c, playback, _ := newTestController(t)
	sender := &fakeSender{}
	c.SetSender(sender)

	c.OnDialogueMessage(protocol.DialogueMessage{Text: "Hi", Emotion: "happy", Audio: []byte{1}})
	playback.firePlaying(0, 2.0)
	require.True(t, c.Speaking())

	require.NoError(t, c.OnUserSubmit("wait, stop"))
	assert.False(t, c.Speaking())
	assert.Equal(t, 1, playback.stopped)
	assert.Equal(t, []string{"wait, stop"}, sender.sent)
}

func TestController_UserSubmitWithoutSender(t *testing.T) {
	c, _, _ := newTestController(t)
	assert.Error(t, c.OnUserSubmit("hello"))
}

func TestController_NeutralAfterGrace(t *testing.T) {
	c, playback, rig := newTestController(t)

	c.OnDialogueMessage(protocol.DialogueMessage{Text: "Hi", Emotion: "happy", Audio: []byte{1}})
	playback.firePlaying(0, 0.5)
	playback.fireFinished(0, nil)

	require.Eventually(t, func() bool {
		tick(c, 1, 0.016)
		return rig.last().face["happy"] == 0
	}, 2*time.Second, time.Millisecond, "expression relaxes after the grace delay")
}

func TestController_PointerDirectsGaze(t *testing.T) {
	c, _, rig := newTestController(t)

	target := mgl32.Vec3{0.4, 1.5, -1}
	c.OnPointerTarget(target)
	tick(c, 200, 0.016)

	g := rig.last().gaze
	assert.InDelta(t, target.X(), g.X(), 0.05)
	assert.InDelta(t, target.Y(), g.Y(), 0.05)

	c.OnPointerLeave()
	tick(c, 400, 0.016)
	rest := rig.last().gaze
	assert.InDelta(t, 0, rest.X(), 0.15, "gaze drifts back near rest")
}

func TestController_PointerMoveMapsScreenCoords(t *testing.T) {
	c, _, rig := newTestController(t)

	c.OnPointerMove(1, 0)
	tick(c, 300, 0.016)
	assert.Positive(t, rig.last().gaze.X(), "pointer right pulls gaze right")

	c.OnPointerMove(-1, 0)
	tick(c, 300, 0.016)
	assert.Negative(t, rig.last().gaze.X(), "pointer left pulls gaze left")
}

func TestController_BlinkEmitsTrailingZero(t *testing.T) {
	c, _, rig := newTestController(t)

	// Six simulated seconds guarantees at least one full blink cycle.
	tick(c, 600, 0.01)

	rig.mu.Lock()
	defer rig.mu.Unlock()
	sawBlink := false
	sawRelease := false
	for _, f := range rig.frames {
		w, present := f.face[BlinkShape]
		if !present {
			continue
		}
		if w > 0 {
			sawBlink = true
		} else if sawBlink {
			sawRelease = true
		}
	}
	assert.True(t, sawBlink, "eyelid closed at least once")
	assert.True(t, sawRelease, "eyelid weight released with an explicit zero")
}

func TestController_UnloadResetsEverything(t *testing.T) {
	c, playback, rig := newTestController(t)

	c.OnDialogueMessage(protocol.DialogueMessage{Text: "Hi there", Emotion: "happy", Audio: []byte{1}})
	playback.firePlaying(0, 2.0)
	tick(c, 10, 0.016)
	require.True(t, c.Speaking())

	c.UnloadAvatar()
	assert.False(t, c.Speaking())
	assert.False(t, c.Loaded())

	tick(c, 1, 0.016)
	f := rig.last()
	assert.Empty(t, f.face)
	assert.Equal(t, anim.ActionIdle, f.action.State)
}

func TestController_ConnectionStatusPublished(t *testing.T) {
	cfg := config.DefaultConfig()
	events := bus.NewEventBus()
	c := New(cfg, &fakePlayback{}, stubLoader{}, &recordingRig{}, events, zerolog.Nop())

	var mu sync.Mutex
	var seen []bus.EventType
	events.SubscribeMultiple([]bus.EventType{bus.EventTypeConnected, bus.EventTypeDisconnected}, func(e bus.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Type)
	})

	c.OnConnectionStatus(protocol.StatusConnected)
	c.OnConnectionStatus(protocol.StatusDisconnected)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, 2*time.Second, time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, bus.EventTypeConnected)
	assert.Contains(t, seen, bus.EventTypeDisconnected)
}
