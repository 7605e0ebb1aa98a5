package analysis

import (
	"context"
	"errors"
	"strings"

	"github.com/paavan-1234/minutes-backend/internal/providers/llm"
)

// ErrEmptyInput is returned when there is nothing to analyze; callers skip the stage.
var ErrEmptyInput = errors.New("nothing to analyze")

// Tone is the overall emotional reading of a meeting. All fields are nil when the
// analysis was skipped or degraded.
type Tone struct {
	MoodScore        *float64           `json:"moodScore"` // 0-100
	DominantEmotion  *string            `json:"dominantEmotion"`
	EmotionBreakdown map[string]float64 `json:"emotionBreakdown"`
}

// Empty reports whether the tone carries no data.
func (t Tone) Empty() bool {
	return t.MoodScore == nil && t.DominantEmotion == nil && t.EmotionBreakdown == nil
}

// ToneAnalyzer classifies a whole transcript in one call. It is meant to run on the
// more capable model tier.
type ToneAnalyzer struct {
	llm llm.Provider
}

func NewToneAnalyzer(p llm.Provider) *ToneAnalyzer {
	return &ToneAnalyzer{llm: p}
}

func (a *ToneAnalyzer) Analyze(ctx context.Context, transcript string) (Tone, error) {
	if strings.TrimSpace(transcript) == "" {
		return Tone{}, ErrEmptyInput
	}
	raw, err := a.llm.GenerateJSON(ctx, buildTonePrompt(transcript))
	if err != nil {
		return Tone{}, err
	}
	return parseTone(raw)
}

type toneWire struct {
	MoodScore        any `json:"mood_score"`
	DominantEmotion  any `json:"dominant_emotion"`
	EmotionBreakdown any `json:"emotion_breakdown"`
}

func parseTone(raw string) (Tone, error) {
	var w toneWire
	if err := decodeJSON(raw, &w); err != nil {
		return Tone{}, err
	}

	mood, ok := number(w.MoodScore)
	if !ok {
		return Tone{}, malformed("mood_score must be a number")
	}
	mood = clamp(mood, 0, 100)

	label, _ := w.DominantEmotion.(string)
	dominant, ok := NormalizeEmotion(label)
	if !ok {
		return Tone{}, malformed("dominant_emotion %q is not in the taxonomy", label)
	}

	obj, ok := w.EmotionBreakdown.(map[string]any)
	if !ok {
		return Tone{}, malformed("emotion_breakdown must be an object")
	}
	breakdown := make(map[string]float64, len(Emotions))
	for _, e := range Emotions {
		breakdown[e] = 0
	}
	for k, v := range obj {
		e, known := NormalizeEmotion(k)
		if !known {
			continue
		}
		f, ok := number(v)
		if !ok {
			return Tone{}, malformed("emotion_breakdown.%s must be a number", k)
		}
		breakdown[e] = clamp(f, 0, 100)
	}

	return Tone{MoodScore: &mood, DominantEmotion: &dominant, EmotionBreakdown: breakdown}, nil
}
