package analysis

import (
	"encoding/json"
	"strings"
)

const tonePrompt = `You analyze the emotional tone of meeting transcripts.

Classify the whole meeting using exactly these emotions: happy, neutral, stressed, angry, confident.

Return ONLY a JSON object of this shape:
{
  "mood_score": <number from 0 (very negative) to 100 (very positive)>,
  "dominant_emotion": "<one of happy|neutral|stressed|angry|confident>",
  "emotion_breakdown": {"happy": <0-100>, "neutral": <0-100>, "stressed": <0-100>, "angry": <0-100>, "confident": <0-100>}
}
The breakdown values are percentages and should sum to 100.

Transcript:
"""
{{TRANSCRIPT}}
"""`

const segmentPrompt = `You label the emotion of each transcript segment of a meeting.

Allowed emotions: happy, neutral, stressed, angry, confident.
For every segment below return its index, one emotion and a confidence score between 0 and 1.

Return ONLY a JSON object of this shape:
{"segments": [{"index": 0, "emotion": "neutral", "score": 0.8}]}

Segments:
{{SEGMENTS}}`

const summaryPrompt = `You write structured minutes for a meeting transcript.

Return ONLY a JSON object of this shape:
{
  "summary": {
    "bullets": ["key point", "..."],
    "decisions": ["decision made", "..."],
    "risks": ["risk or blocker", "..."],
    "follow_up_questions": ["open question", "..."]
  },
  "tasks": [
    {
      "title": "short imperative title",
      "description": "what needs to happen",
      "owner": "person responsible, or empty string",
      "due_date": "YYYY-MM-DD, or empty string when unknown",
      "priority": "low|medium|high",
      "status": "todo|in_progress|done"
    }
  ]
}
Only include tasks that were actually assigned or agreed in the meeting.

Transcript:
"""
{{TRANSCRIPT}}
"""`

func buildTonePrompt(transcript string) string {
	return strings.Replace(tonePrompt, "{{TRANSCRIPT}}", transcript, 1)
}

func buildSummaryPrompt(transcript string) string {
	return strings.Replace(summaryPrompt, "{{TRANSCRIPT}}", transcript, 1)
}

type promptSegment struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func buildSegmentPrompt(segs []promptSegment) (string, error) {
	b, err := json.MarshalIndent(segs, "", "  ")
	if err != nil {
		return "", err
	}
	return strings.Replace(segmentPrompt, "{{SEGMENTS}}", string(b), 1), nil
}
