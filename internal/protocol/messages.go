package protocol

import "encoding/json"

// Message type discriminators on the dialogue channel.
const (
	TypeDialogue    = "dialogue"
	TypeUserMessage = "user_message"
)

// DialogueMessage is an inbound animation command. Text arrives already
// stripped of action/emotion markup; Action is the resolved action
// identifier (fuzzy matching happens upstream). Audio is an opaque
// synthesized-speech payload, base64 on the wire; its absence means an
// emotion-only update. Streaming/First are subtitle-display hints the
// animation core ignores.
type DialogueMessage struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Emotion   string `json:"emotion,omitempty"`
	Audio     []byte `json:"audio,omitempty"`
	Action    string `json:"action,omitempty"`
	Streaming bool   `json:"streaming,omitempty"`
	First     bool   `json:"first,omitempty"`
}

// UnmarshalJSON accepts `gesture` as an alias for `action`; older backends
// emit the action identifier under that key. An explicit `action` wins when
// both are present.
func (m *DialogueMessage) UnmarshalJSON(data []byte) error {
	type plain DialogueMessage
	aux := struct {
		*plain
		Gesture string `json:"gesture"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if m.Action == "" {
		m.Action = aux.Gesture
	}
	return nil
}

// UserMessage is the outbound user input.
type UserMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
