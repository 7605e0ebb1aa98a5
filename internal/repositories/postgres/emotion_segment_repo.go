package postgres

import (
	"context"

	"github.com/paavan-1234/minutes-backend/internal/models"
	"gorm.io/gorm"
)

type EmotionSegmentRepository interface {
	BulkInsert(ctx context.Context, rows []models.EmotionSegment) error
	ListByMeeting(ctx context.Context, meetingID string) ([]models.EmotionSegment, error)
}

type emotionSegmentRepo struct {
	db *gorm.DB
}

func NewEmotionSegmentRepo(db *gorm.DB) EmotionSegmentRepository {
	return &emotionSegmentRepo{db: db}
}

func (r *emotionSegmentRepo) BulkInsert(ctx context.Context, rows []models.EmotionSegment) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&rows, batchSize).Error
}

func (r *emotionSegmentRepo) ListByMeeting(ctx context.Context, meetingID string) ([]models.EmotionSegment, error) {
	var rows []models.EmotionSegment
	err := r.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Order("segment_index ASC").
		Find(&rows).Error
	return rows, err
}
