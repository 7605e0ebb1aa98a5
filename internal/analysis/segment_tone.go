package analysis

import (
	"context"
	"math"

	"github.com/paavan-1234/minutes-backend/internal/providers/llm"
	"github.com/paavan-1234/minutes-backend/internal/providers/stt"
)

// Label is the classifier verdict for one segment.
type Label struct {
	Emotion string
	Score   float64 // 0..1
}

type SegmentEmotion struct {
	SegmentIndex int     `json:"segmentIndex"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Emotion      string  `json:"emotion"`
	Score        float64 `json:"score"`
}

// SegmentToneAnalyzer labels every segment in a single batched call. It is meant to
// run on the cheap, fast model tier.
type SegmentToneAnalyzer struct {
	llm llm.Provider
}

func NewSegmentToneAnalyzer(p llm.Provider) *SegmentToneAnalyzer {
	return &SegmentToneAnalyzer{llm: p}
}

// Analyze returns labels keyed by segment index. Indices the classifier skipped are
// absent; use Assign to fill them.
func (a *SegmentToneAnalyzer) Analyze(ctx context.Context, segments []stt.Segment) (map[int]Label, error) {
	if len(segments) == 0 {
		return nil, ErrEmptyInput
	}

	in := make([]promptSegment, len(segments))
	for i, s := range segments {
		in[i] = promptSegment{Index: s.Index, Start: s.Start, End: s.End, Text: s.Text}
	}
	prompt, err := buildSegmentPrompt(in)
	if err != nil {
		return nil, err
	}

	raw, err := a.llm.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseSegmentLabels(raw, len(segments))
}

func parseSegmentLabels(raw string, count int) (map[int]Label, error) {
	var v any
	if err := decodeJSON(raw, &v); err != nil {
		return nil, err
	}

	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case map[string]any:
		arr, ok := t["segments"].([]any)
		if !ok {
			return nil, malformed("segments must be an array")
		}
		items = arr
	default:
		return nil, malformed("unexpected top-level value")
	}

	out := make(map[int]Label, len(items))
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		idxVal, found := obj["index"]
		if !found {
			idxVal = obj["segment_index"]
		}
		f, ok := number(idxVal)
		if !ok || f != math.Trunc(f) || f < 0 || int(f) >= count {
			continue
		}
		idx := int(f)
		if _, dup := out[idx]; dup {
			continue
		}
		out[idx] = sanitizeLabel(obj["emotion"], obj["score"])
	}
	return out, nil
}

func sanitizeLabel(emotion, score any) Label {
	l := Label{Emotion: DefaultEmotion, Score: DefaultScore}
	if s, ok := emotion.(string); ok {
		if e, ok := NormalizeEmotion(s); ok {
			l.Emotion = e
		}
	}
	if f, ok := number(score); ok && f >= 0 && f <= 1 {
		l.Score = f
	}
	return l
}

// Assign gives every segment an emotion: the classifier's label when there is one,
// neutral/0.5 otherwise. The result has one entry per segment, in segment order.
func Assign(segments []stt.Segment, labels map[int]Label) []SegmentEmotion {
	out := make([]SegmentEmotion, len(segments))
	for i, s := range segments {
		l, ok := labels[s.Index]
		if !ok {
			l = Label{Emotion: DefaultEmotion, Score: DefaultScore}
		}
		out[i] = SegmentEmotion{
			SegmentIndex: s.Index,
			Start:        s.Start,
			End:          s.End,
			Emotion:      l.Emotion,
			Score:        l.Score,
		}
	}
	return out
}
