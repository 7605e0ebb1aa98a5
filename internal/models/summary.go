package models

import "time"

type Summary struct {
	ID        uint     `gorm:"column:id;primaryKey" json:"-"`
	MeetingID string   `gorm:"column:meeting_id;type:uuid;uniqueIndex;not null" json:"meeting_id"`
	Meeting   *Meeting `gorm:"foreignKey:MeetingID;constraint:OnDelete:CASCADE" json:"-"`

	Bullets           StringArray `gorm:"column:bullets" json:"bullets"`
	Decisions         StringArray `gorm:"column:decisions" json:"decisions"`
	Risks             StringArray `gorm:"column:risks" json:"risks"`
	FollowUpQuestions StringArray `gorm:"column:follow_up_questions" json:"follow_up_questions"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Summary) TableName() string { return "summaries" }
