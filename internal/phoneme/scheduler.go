// Package phoneme converts dialogue text into a timed mouth-shape schedule
// for lip-sync playback. Timing is approximate by design: when the real audio
// duration is known the whole schedule is rescaled to span it exactly.
package phoneme

import (
	"math"
	"strings"
	"unicode"
)

// Shape identifies one of the five canonical VRM mouth shapes.
// ShapeNone marks silence (mouth closed).
type Shape int

const (
	ShapeNone Shape = iota
	ShapeAA
	ShapeEE
	ShapeIH
	ShapeOH
	ShapeOU
)

// ShapeNames maps shapes to the VRM viseme blendshape names the face rig uses.
var ShapeNames = map[Shape]string{
	ShapeAA: "aa",
	ShapeEE: "ee",
	ShapeIH: "ih",
	ShapeOH: "oh",
	ShapeOU: "ou",
}

// Name returns the blendshape name for the shape, or "" for silence.
func (s Shape) Name() string {
	return ShapeNames[s]
}

// Event is one beat of a lip-sync timeline. Events are consumed strictly
// front-to-back and never mutated after creation.
type Event struct {
	Shape    Shape
	Weight   float32 // 0..1
	Duration float64 // seconds, always > 0
}

// Nominal per-event durations in seconds, tuned for a natural speech rate of
// roughly 8-10 events per second before rescaling.
const (
	durVowel       = 0.09
	durMicroClose  = 0.03
	durWordGap     = 0.06
	durWeakPause   = 0.10
	durStrongPause = 0.22
	durNoVowel     = 0.08
	durDecorative  = 0.04
)

var vowelShapes = map[rune]Shape{
	'a': ShapeAA,
	'e': ShapeEE,
	'i': ShapeIH,
	'o': ShapeOH,
	'u': ShapeOU,
	'y': ShapeIH,
}

// Parse converts text into an ordered mouth-shape timeline. If targetDuration
// is positive and finite every event is scaled so the schedule spans it
// exactly; otherwise the nominal durations are kept. Parse is pure: identical
// inputs yield identical schedules.
func Parse(text string, targetDuration float64) []Event {
	events := make([]Event, 0, len(text))

	var word []rune
	flushWord := func() {
		if len(word) == 0 {
			return
		}
		events = append(events, wordEvents(word)...)
		events = append(events, Event{Shape: ShapeNone, Weight: 0, Duration: durWordGap})
		word = word[:0]
	}

	for _, r := range text {
		switch {
		case r > unicode.MaxASCII:
			// Emoji and other decoration: brief neutral beat, never an error.
			flushWord()
			events = append(events, Event{Shape: ShapeNone, Weight: 0.1, Duration: durDecorative})
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			word = append(word, unicode.ToLower(r))
		case isStrongPunct(r):
			flushWord()
			events = append(events, Event{Shape: ShapeNone, Weight: 0, Duration: durStrongPause})
		case unicode.IsSpace(r):
			flushWord()
		default:
			// Commas, dashes and other weak punctuation.
			flushWord()
			events = append(events, Event{Shape: ShapeNone, Weight: 0, Duration: durWeakPause})
		}
	}
	flushWord()

	if len(events) == 0 {
		return nil
	}

	// The schedule always settles into silence.
	if last := events[len(events)-1]; last.Shape != ShapeNone {
		events = append(events, Event{Shape: ShapeNone, Weight: 0, Duration: durWordGap})
	}

	if targetDuration > 0 && !math.IsInf(targetDuration, 1) {
		rescale(events, targetDuration)
	}

	return events
}

// wordEvents emits one open-mouth event per vowel, each followed by a
// micro-close so consecutive syllables read as distinct beats instead of one
// held-open mouth. A vowelless word still moves the mouth once.
func wordEvents(word []rune) []Event {
	var out []Event
	for _, r := range word {
		shape, ok := vowelShapes[r]
		if !ok {
			continue
		}
		out = append(out,
			Event{Shape: shape, Weight: 1.0, Duration: durVowel},
			Event{Shape: shape, Weight: 0.1, Duration: durMicroClose},
		)
	}
	if len(out) == 0 {
		out = append(out, Event{Shape: ShapeAA, Weight: 0.4, Duration: durNoVowel})
	}
	return out
}

func rescale(events []Event, target float64) {
	var total float64
	for i := range events {
		total += events[i].Duration
	}
	if total <= 0 {
		return
	}
	factor := target / total
	for i := range events {
		events[i].Duration *= factor
	}
}

func isStrongPunct(r rune) bool {
	return strings.ContainsRune(".!?", r)
}

// TotalDuration returns the summed duration of a schedule in seconds.
func TotalDuration(events []Event) float64 {
	var total float64
	for i := range events {
		total += events[i].Duration
	}
	return total
}
