package types

import "strings"

// Frame is a single captured image, JPEG encoded, consumed once by a classifier.
type Frame struct {
	Index int
	Data  []byte
}

// Emotion is a dominant-emotion label as reported by a classifier.
type Emotion string

const (
	Happy    Emotion = "happy"
	Neutral  Emotion = "neutral"
	Sad      Emotion = "sad"
	Angry    Emotion = "angry"
	Surprise Emotion = "surprise"
	Fear     Emotion = "fear"
	Disgust  Emotion = "disgust"

	// Unknown is printed when no label could be produced at all.
	Unknown Emotion = "unknown"
)

// NormalizeEmotion lower-cases and trims a raw classifier label.
func NormalizeEmotion(s string) Emotion {
	return Emotion(strings.ToLower(strings.TrimSpace(s)))
}

// Outcome is the per-frame result of a classification attempt.
// Exactly one of Emotion or Skipped is set.
type Outcome struct {
	Index   int
	Emotion Emotion
	Skipped string // reason, empty on success
}

// OK reports whether the frame produced a label.
func (o Outcome) OK() bool { return o.Skipped == "" }

// Result is the outcome of one sampling session.
type Result struct {
	Dominant      Emotion   `json:"dominant_emotion" yaml:"dominant_emotion"`
	Count         int       `json:"count" yaml:"count"`
	Log           []Emotion `json:"log" yaml:"log"`
	FramesRead    int       `json:"-" yaml:"-"`
	FramesSkipped int       `json:"-" yaml:"-"`
}

// Empty reports whether no frame was classified.
func (r Result) Empty() bool { return len(r.Log) == 0 }

// PresenceResult is the outcome of the face-presence heuristic.
type PresenceResult struct {
	Emotion Emotion
	Frames  int
	Faces   int
}

// EmotionResponse matches the JSON returned by the DeepFace worker and the HTTP service.
type EmotionResponse struct {
	DominantEmotion string             `json:"dominant_emotion"`
	Emotion         map[string]float64 `json:"emotion,omitempty"`
	Error           string             `json:"error,omitempty"`
}

// ErrorResult is the {"error": "..."} object printed on failure.
type ErrorResult struct {
	Error string `json:"error" yaml:"error"`
}
