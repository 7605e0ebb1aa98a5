package models

import (
	"time"

	"gorm.io/datatypes"
)

// Meeting is the aggregate root of one ingested recording. Rows are written once and
// never updated; every other table references Meeting.ID.
type Meeting struct {
	ID          string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Title       string `gorm:"column:title;type:text" json:"title"`
	MeetingType string `gorm:"column:meeting_type;type:text" json:"meeting_type"`
	Duration    int    `gorm:"column:duration;type:integer" json:"duration"` // rounded seconds

	// null when the overall tone analysis was skipped or degraded
	MoodScore        *float64       `gorm:"column:mood_score" json:"mood_score"` // 0-100
	DominantEmotion  *string        `gorm:"column:dominant_emotion;type:text" json:"dominant_emotion"`
	EmotionBreakdown datatypes.JSON `gorm:"column:emotion_breakdown" json:"emotion_breakdown"`

	Transcript string    `gorm:"column:transcript;type:text" json:"transcript"`
	CloudPath  string    `gorm:"column:cloud_path;type:text" json:"cloud_path"`
	CreatedAt  time.Time `gorm:"column:created_at;index" json:"created_at"`
}

func (Meeting) TableName() string { return "meetings" }
