package postgres

import (
	"context"

	"github.com/paavan-1234/minutes-backend/internal/models"
	"gorm.io/gorm"
)

type TranscriptRepository interface {
	BulkInsert(ctx context.Context, rows []models.TranscriptLine) error
	ListByMeeting(ctx context.Context, meetingID string) ([]models.TranscriptLine, error)
}

type transcriptRepo struct {
	db *gorm.DB
}

func NewTranscriptRepo(db *gorm.DB) TranscriptRepository {
	return &transcriptRepo{db: db}
}

func (r *transcriptRepo) BulkInsert(ctx context.Context, rows []models.TranscriptLine) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&rows, batchSize).Error
}

func (r *transcriptRepo) ListByMeeting(ctx context.Context, meetingID string) ([]models.TranscriptLine, error) {
	var rows []models.TranscriptLine
	err := r.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Order("segment_index ASC").
		Find(&rows).Error
	return rows, err
}
