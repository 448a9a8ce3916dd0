package anim

import "fmt"

// ClipLibrary is a manifest-backed ClipLoader. Clip data itself lives with
// the rig; the library only knows identity, length and looping so the player
// can schedule playback.
type ClipLibrary struct {
	clips map[string]Clip
}

// DefaultClips covers the gestures the dialogue backend emits.
var DefaultClips = map[string]Clip{
	"nod":     {ID: "nod", Duration: 1.2},
	"wave":    {ID: "wave", Duration: 1.8},
	"excited": {ID: "excited", Duration: 2.2},
	"think":   {ID: "think", Duration: 2.6},
	"dance":   {ID: "dance", Duration: 4.5, Loop: true},
}

// NewClipLibrary builds a library from a manifest. A nil manifest uses
// DefaultClips.
func NewClipLibrary(clips map[string]Clip) *ClipLibrary {
	if clips == nil {
		clips = DefaultClips
	}
	return &ClipLibrary{clips: clips}
}

// Load implements ClipLoader.
func (l *ClipLibrary) Load(id string) (Clip, error) {
	clip, ok := l.clips[id]
	if !ok {
		return Clip{}, fmt.Errorf("unknown action clip %q", id)
	}
	return clip, nil
}
