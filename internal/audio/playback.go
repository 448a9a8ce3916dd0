// Package audio provides the sequential speech playback queue and the
// playback primitives behind it. The queue never touches the audio device
// directly; it drives a Playback implementation through a small named state
// machine so tests can substitute a fake.
package audio

// PlaybackState names the lifecycle of one payload inside a Playback.
type PlaybackState int

const (
	PlaybackIdle PlaybackState = iota
	PlaybackLoading
	PlaybackPlaying
	PlaybackEnded
	PlaybackError
)

func (s PlaybackState) String() string {
	switch s {
	case PlaybackLoading:
		return "loading"
	case PlaybackPlaying:
		return "playing"
	case PlaybackEnded:
		return "ended"
	case PlaybackError:
		return "error"
	default:
		return "idle"
	}
}

// PlaybackCallbacks receive the primitive's lifecycle notifications.
// OnPlaying fires when the primitive is about to produce sound and carries
// the measured duration in seconds; only then is the real audio length known,
// which is why lip-sync scheduling is deferred to this point. OnFinished
// fires exactly once per Start, on natural end, error, or Stop.
type PlaybackCallbacks struct {
	OnPlaying  func(duration float64)
	OnFinished func(err error)
}

// Playback is the injectable playback primitive. Start begins asynchronous
// decode and playback of one opaque payload; implementations move through
// idle -> loading -> playing -> ended|error and report transitions via the
// callbacks. Stop aborts the current payload, is idempotent, and safe to
// call when nothing is playing.
type Playback interface {
	Start(payload []byte, cb PlaybackCallbacks) error
	Stop()
	State() PlaybackState
}
