package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RunProcessing = "processing"
	RunSucceeded  = "succeeded"
	RunFailed     = "failed"
)

// IngestionRun is the audit record of one upload going through the pipeline.
type IngestionRun struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	RunID    string             `bson:"run_id" json:"run_id"`
	FileName string             `bson:"file_name" json:"file_name"`
	MimeType string             `bson:"mime_type" json:"mime_type"`
	Size     int64              `bson:"size" json:"size"`

	Status    string         `bson:"status" json:"status"` // processing|succeeded|failed
	MeetingID string         `bson:"meeting_id,omitempty" json:"meeting_id,omitempty"`
	Error     string         `bson:"error,omitempty" json:"error,omitempty"`
	Stages    []StageOutcome `bson:"stages" json:"stages"`

	StartedAt  time.Time  `bson:"started_at" json:"started_at"`
	FinishedAt *time.Time `bson:"finished_at,omitempty" json:"finished_at,omitempty"`

	ExpiresAt time.Time `bson:"expires_at" json:"-"` // for TTL index
}

type StageOutcome struct {
	Stage      string    `bson:"stage" json:"stage"`
	Outcome    string    `bson:"outcome" json:"outcome"` // ok|skipped|degraded|failed
	Error      string    `bson:"error,omitempty" json:"error,omitempty"`
	DurationMS int64     `bson:"duration_ms" json:"duration_ms"`
	At         time.Time `bson:"at" json:"at"`
}
