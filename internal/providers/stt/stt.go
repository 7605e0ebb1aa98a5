package stt

import (
	"context"
	"sort"
	"strings"
)

type Input struct {
	Audio    []byte
	FileName string
	MimeType string
	Language string // BCP-47, ex: "en-US"
	URI      string // archived copy for providers implementing URIReader
}

// Segment is a time-bounded span of the transcript. Index is its position in
// Result.Segments and doubles as the join key for emotion labels.
type Segment struct {
	Index int     `json:"-"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type Result struct {
	Text     string
	Segments []Segment
	Words    []Word
	Duration float64 // seconds
}

type Provider interface {
	Transcribe(ctx context.Context, in Input) (*Result, error)
	Close() error
}

// normalize orders segments chronologically, drops blank ones, re-indexes them
// from zero and fills Text/Duration when the backend left them empty.
func normalize(r *Result) *Result {
	segs := make([]Segment, 0, len(r.Segments))
	for _, s := range r.Segments {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			continue
		}
		if s.End < s.Start {
			s.End = s.Start
		}
		segs = append(segs, s)
	}
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })
	for i := range segs {
		segs[i].Index = i
	}
	r.Segments = segs

	r.Text = strings.TrimSpace(r.Text)
	if r.Text == "" && len(segs) > 0 {
		parts := make([]string, len(segs))
		for i, s := range segs {
			parts[i] = s.Text
		}
		r.Text = strings.Join(parts, " ")
	}

	if n := len(segs); n > 0 && r.Duration < segs[n-1].End {
		r.Duration = segs[n-1].End
	}
	if r.Words == nil {
		r.Words = []Word{}
	}
	return r
}
