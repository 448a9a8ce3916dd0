package audio

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Item is one queued utterance: synthesized speech plus the text and emotion
// that accompany it. Items are destroyed after playback or on error.
type Item struct {
	ID      uuid.UUID
	Payload []byte
	Text    string
	Emotion string
}

// NewItem builds a queue item with a fresh identity.
func NewItem(payload []byte, text, emotion string) Item {
	return Item{ID: uuid.New(), Payload: payload, Text: text, Emotion: emotion}
}

// Sink receives the queue's speech lifecycle. BeginUtterance fires when a
// payload is about to produce sound, with the measured duration; the
// character controller uses it to apply the emotion and schedule lip-sync.
// EndSpeech fires when the queue drains; ReturnToNeutral follows after the
// grace delay unless new speech arrived in the meantime.
type Sink interface {
	BeginUtterance(item Item, duration float64)
	EndSpeech()
	ReturnToNeutral()
}

// Queue plays speech items strictly in FIFO order, one at a time. The next
// item starts only after the current one ends or fails; errors advance the
// queue exactly like natural completion.
type Queue struct {
	mu sync.Mutex

	playback Playback
	sink     Sink
	logger   zerolog.Logger

	items   []Item
	current *Item
	// generation invalidates stale playback callbacks after Clear.
	generation uint64

	graceDelay  time.Duration
	neutralTick *time.Timer
}

// NewQueue creates a queue over the given playback primitive. graceDelay is
// the pause between the queue draining and the expression returning to
// neutral, so consecutive short utterances do not flicker through neutral.
func NewQueue(playback Playback, sink Sink, graceDelay time.Duration, logger zerolog.Logger) *Queue {
	return &Queue{
		playback:   playback,
		sink:       sink,
		logger:     logger.With().Str("component", "audio-queue").Logger(),
		graceDelay: graceDelay,
	}
}

// Enqueue appends an item and starts playback immediately if the queue was
// idle.
func (q *Queue) Enqueue(item Item) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.cancelNeutralLocked()
	q.items = append(q.items, item)
	q.logger.Debug().Str("item", item.ID.String()).Int("queued", len(q.items)).Msg("utterance enqueued")

	if q.current == nil {
		q.playNextLocked()
	}
}

// Len returns the number of items waiting, excluding the one playing.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Playing reports whether an item is currently active.
func (q *Queue) Playing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current != nil
}

// Clear aborts the current payload, discards every queued item and resets
// the lip and expression layers. Idempotent; used when new user input
// preempts an in-flight response.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.generation++
	q.items = nil
	wasActive := q.current != nil
	q.current = nil
	q.cancelNeutralLocked()
	q.mu.Unlock()

	q.playback.Stop()

	q.sink.EndSpeech()
	q.sink.ReturnToNeutral()
	if wasActive {
		q.logger.Info().Msg("queue cleared mid-playback")
	}
}

// playNextLocked pops the head item and hands it to the playback primitive.
// Caller holds q.mu.
func (q *Queue) playNextLocked() {
	if len(q.items) == 0 {
		q.current = nil
		q.sink.EndSpeech()
		q.scheduleNeutralLocked()
		return
	}

	item := q.items[0]
	q.items = q.items[1:]
	q.current = &item
	generation := q.generation

	cb := PlaybackCallbacks{
		OnPlaying: func(duration float64) {
			// Staleness check and sink call under one lock, so a Clear
			// cannot slip between them and have a discarded item's lip
			// schedule applied after the reset.
			q.mu.Lock()
			defer q.mu.Unlock()
			if generation != q.generation {
				return
			}
			q.logger.Debug().
				Str("item", item.ID.String()).
				Float64("duration", duration).
				Msg("utterance playing")
			q.sink.BeginUtterance(item, duration)
		},
		OnFinished: func(err error) {
			q.mu.Lock()
			defer q.mu.Unlock()
			if generation != q.generation {
				return
			}
			if err != nil {
				// Treated identically to natural completion: advance,
				// never retry the same item.
				q.logger.Warn().Err(err).Str("item", item.ID.String()).Msg("playback failed, skipping item")
			}
			q.current = nil
			q.playNextLocked()
		},
	}

	if err := q.playback.Start(item.Payload, cb); err != nil {
		q.logger.Warn().Err(err).Str("item", item.ID.String()).Msg("playback rejected item")
		q.current = nil
		q.playNextLocked()
	}
}

// scheduleNeutralLocked arms the grace timer that relaxes the expression
// layer after the queue drains. Caller holds q.mu.
func (q *Queue) scheduleNeutralLocked() {
	q.cancelNeutralLocked()
	generation := q.generation
	q.neutralTick = time.AfterFunc(q.graceDelay, func() {
		q.mu.Lock()
		fire := generation == q.generation && q.current == nil && len(q.items) == 0
		q.mu.Unlock()
		if fire {
			q.sink.ReturnToNeutral()
		}
	})
}

func (q *Queue) cancelNeutralLocked() {
	if q.neutralTick != nil {
		q.neutralTick.Stop()
		q.neutralTick = nil
	}
}
