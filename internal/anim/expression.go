package anim

import "strings"

// ExpressionNeutral is the rest expression every layer returns to.
const ExpressionNeutral = "neutral"

// emotionExpressions maps dialogue emotion tags onto the VRM expression
// presets the model actually carries. Several tags share a preset; unknown
// tags fall back to neutral.
var emotionExpressions = map[string]string{
	"neutral":   ExpressionNeutral,
	"happy":     "happy",
	"excited":   "happy",
	"love":      "happy",
	"sad":       "sad",
	"worried":   "sad",
	"angry":     "angry",
	"surprised": "surprised",
	"thinking":  "relaxed",
}

// ExpressionForEmotion resolves an emotion tag to a VRM expression name.
func ExpressionForEmotion(tag string) string {
	if expr, ok := emotionExpressions[strings.ToLower(strings.TrimSpace(tag))]; ok {
		return expr
	}
	return ExpressionNeutral
}

// KnownEmotion reports whether the tag belongs to the fixed emotion set.
func KnownEmotion(tag string) bool {
	_, ok := emotionExpressions[strings.ToLower(strings.TrimSpace(tag))]
	return ok
}
