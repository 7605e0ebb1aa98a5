package models

type EmotionSegment struct {
	ID           uint     `gorm:"column:id;primaryKey" json:"-"`
	MeetingID    string   `gorm:"column:meeting_id;type:uuid;index;not null" json:"meeting_id"`
	Meeting      *Meeting `gorm:"foreignKey:MeetingID;constraint:OnDelete:CASCADE" json:"-"`
	SegmentIndex int      `gorm:"column:segment_index;type:integer" json:"segment_index"`
	Start        float64  `gorm:"column:start" json:"start"`
	End          float64  `gorm:"column:end" json:"end"`
	Emotion      string   `gorm:"column:emotion;type:text" json:"emotion"`
	Score        float64  `gorm:"column:score" json:"score"` // 0..1
}

func (EmotionSegment) TableName() string { return "emotion_segments" }
