package models

// TranscriptLine is one persisted transcript segment with its emotion assignment inline.
type TranscriptLine struct {
	ID           uint     `gorm:"column:id;primaryKey" json:"-"`
	MeetingID    string   `gorm:"column:meeting_id;type:uuid;index;not null" json:"meeting_id"`
	Meeting      *Meeting `gorm:"foreignKey:MeetingID;constraint:OnDelete:CASCADE" json:"-"`
	SegmentIndex int      `gorm:"column:segment_index;type:integer" json:"segment_index"`
	Start        float64  `gorm:"column:start" json:"start"`
	End          float64  `gorm:"column:end" json:"end"`
	Text         string   `gorm:"column:text;type:text" json:"text"`
	Speaker      *string  `gorm:"column:speaker;type:text" json:"speaker,omitempty"`
	Emotion      string   `gorm:"column:emotion;type:text" json:"emotion"`
	EmotionScore float64  `gorm:"column:emotion_score" json:"emotion_score"`
}

func (TranscriptLine) TableName() string { return "transcripts" }
