package models

// Schema lists the relational models in creation order; Meeting comes first
// because every other table references it.
func Schema() []any {
	return []any{
		&Meeting{},
		&TranscriptLine{},
		&EmotionSegment{},
		&Summary{},
		&Task{},
	}
}
