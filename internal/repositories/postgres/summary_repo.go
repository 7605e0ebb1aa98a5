package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/paavan-1234/minutes-backend/internal/models"
	"github.com/paavan-1234/minutes-backend/internal/utils"
	"gorm.io/gorm"
)

type SummaryRepository interface {
	Insert(ctx context.Context, s *models.Summary) error
	GetByMeeting(ctx context.Context, meetingID string) (*models.Summary, error)
}

type summaryRepo struct {
	db *gorm.DB
}

func NewSummaryRepo(db *gorm.DB) SummaryRepository {
	return &summaryRepo{db: db}
}

func (r *summaryRepo) Insert(ctx context.Context, s *models.Summary) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *summaryRepo) GetByMeeting(ctx context.Context, meetingID string) (*models.Summary, error) {
	var s models.Summary
	err := r.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
