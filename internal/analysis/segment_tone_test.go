package analysis

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/paavan-1234/minutes-backend/internal/providers/stt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSegments(n int) []stt.Segment {
	segs := make([]stt.Segment, n)
	for i := range segs {
		segs[i] = stt.Segment{Index: i, Start: float64(i * 5), End: float64(i*5 + 4), Text: "segment text"}
	}
	return segs
}

func TestSegmentToneAnalyzer_Analyze(t *testing.T) {
	f := &fakeLLM{reply: `{"segments": [
		{"index": 1, "emotion": "stressed", "score": 0.9},
		{"index": 0, "emotion": "happy", "score": 0.75}
	]}`}
	a := NewSegmentToneAnalyzer(f)

	labels, err := a.Analyze(context.Background(), testSegments(3))
	require.NoError(t, err)
	assert.Equal(t, map[int]Label{
		0: {Emotion: Happy, Score: 0.75},
		1: {Emotion: Stressed, Score: 0.9},
	}, labels)

	require.Equal(t, 1, f.calls())
	marker := "Segments:\n"
	body := f.prompts[0][strings.Index(f.prompts[0], marker)+len(marker):]
	var sent []promptSegment
	require.NoError(t, json.Unmarshal([]byte(body), &sent), "segments are embedded as a JSON array")
	assert.Len(t, sent, 3)
	assert.Equal(t, 2, sent[2].Index)
}

func TestSegmentToneAnalyzer_NoSegmentsMakesNoCall(t *testing.T) {
	f := &fakeLLM{}
	_, err := NewSegmentToneAnalyzer(f).Analyze(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Zero(t, f.calls())
}

func TestParseSegmentLabels_Sanitizes(t *testing.T) {
	raw := `[
		{"index": 0, "emotion": "angry", "score": 1.7},
		{"index": 1, "score": "high"},
		{"segment_index": 2, "emotion": "furious", "score": -0.2},
		{"index": 3, "emotion": "confident", "score": 1},
		{"index": 9, "emotion": "happy", "score": 0.9},
		{"index": -1, "emotion": "happy", "score": 0.9},
		{"index": 1.5, "emotion": "happy", "score": 0.9},
		{"index": 0, "emotion": "happy", "score": 0.9},
		"junk"
	]`

	labels, err := parseSegmentLabels(raw, 4)
	require.NoError(t, err)

	assert.Equal(t, Label{Emotion: Angry, Score: 0.5}, labels[0], "out-of-range score, first duplicate wins")
	assert.Equal(t, Label{Emotion: Neutral, Score: 0.5}, labels[1], "missing label, wrong score type")
	assert.Equal(t, Label{Emotion: Neutral, Score: 0.5}, labels[2])
	assert.Equal(t, Label{Emotion: Confident, Score: 1}, labels[3], "bounds are inclusive")
	assert.Len(t, labels, 4, "invalid indices dropped")

	for idx, l := range labels {
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 4)
		assert.GreaterOrEqual(t, l.Score, 0.0)
		assert.LessOrEqual(t, l.Score, 1.0)
	}
}

func TestParseSegmentLabels_Malformed(t *testing.T) {
	for _, raw := range []string{`nope`, `{"segments": "all happy"}`, `{"labels": []}`} {
		_, err := parseSegmentLabels(raw, 2)
		assert.ErrorIs(t, err, ErrMalformed, raw)
	}
}

func TestAssign_DefaultsUnmatchedSegments(t *testing.T) {
	segs := testSegments(3)
	out := Assign(segs, map[int]Label{1: {Emotion: Happy, Score: 0.8}})

	require.Len(t, out, 3)
	assert.Equal(t, SegmentEmotion{SegmentIndex: 0, Start: 0, End: 4, Emotion: Neutral, Score: 0.5}, out[0])
	assert.Equal(t, SegmentEmotion{SegmentIndex: 1, Start: 5, End: 9, Emotion: Happy, Score: 0.8}, out[1])
	assert.Equal(t, Neutral, out[2].Emotion)

	assert.Len(t, Assign(segs, nil), 3, "no labels at all still assigns every segment")
}
