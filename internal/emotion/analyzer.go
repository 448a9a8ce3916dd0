// Package emotion provides keyword-based emotion analysis for dialogue lines
// that arrive without an emotion tag, and the default gesture each emotion
// implies when a message names no action.
package emotion

import "strings"

// rule pairs a keyword list with the emotion it signals. Rules are checked
// in order; the first hit wins.
type rule struct {
	keywords []string
	emotion  string
}

var rules = []rule{
	{[]string{"love", "i love", "adore", "crush", "heart", "darling", "sweetheart", "miss you"}, "love"},
	{[]string{"happy", "glad", "wonderful", "awesome", "great", "amazing", "yay", "woohoo",
		"haha", "lol", "hehe", "fun", "enjoy", "laugh"}, "happy"},
	{[]string{"excited", "wow", "omg", "oh my", "incredible", "can't wait", "so cool",
		"fantastic", "brilliant"}, "excited"},
	{[]string{"sad", "unhappy", "depressed", "cry", "tears", "miss", "lonely", "alone",
		"heartbreak", "broke", "hurts", "pain"}, "sad"},
	{[]string{"angry", "mad", "furious", "hate", "annoyed", "irritated", "frustrated",
		"upset", "rage", "stop it"}, "angry"},
	{[]string{"scared", "afraid", "worried", "anxious", "nervous", "fear", "terrified",
		"oh no", "please"}, "worried"},
	{[]string{"surprise", "what", "really", "no way", "seriously", "unbelievable",
		"unexpected", "shocked", "wait"}, "surprised"},
	{[]string{"think", "hmm", "maybe", "consider", "wonder", "curious", "question",
		"not sure", "perhaps", "let me", "i wonder"}, "thinking"},
	{[]string{"hello", "hi", "hey", "howdy", "greet", "good morning", "good evening",
		"how are you", "what's up", "yo"}, "happy"},
	{[]string{"sorry", "apologize", "forgive", "my bad", "mistake", "oops", "i'm sorry"}, "sad"},
}

// gestureForEmotion is the default one-shot action per emotion, applied only
// when a dialogue message carries no explicit action.
var gestureForEmotion = map[string]string{
	"happy":     "nod",
	"excited":   "excited",
	"love":      "wave",
	"sad":       "idle",
	"angry":     "idle",
	"worried":   "think",
	"surprised": "nod",
	"thinking":  "think",
	"neutral":   "idle",
}

// Analyze returns the emotion tag the text suggests, or "neutral".
func Analyze(text string) string {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.emotion
			}
		}
	}
	return "neutral"
}

// GestureFor returns the default gesture for an emotion tag. The "idle"
// gesture means no action should be triggered.
func GestureFor(emotion string) string {
	if g, ok := gestureForEmotion[strings.ToLower(emotion)]; ok {
		return g
	}
	return "idle"
}

// GestureIdle is the sentinel gesture meaning "stay on procedural idle".
const GestureIdle = "idle"
