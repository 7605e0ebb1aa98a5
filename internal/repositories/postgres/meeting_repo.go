package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/paavan-1234/minutes-backend/internal/models"
	"github.com/paavan-1234/minutes-backend/internal/utils"
	"gorm.io/gorm"
)

const batchSize = 200

type MeetingRepository interface {
	// Insert assigns m.ID and m.CreatedAt and writes the row.
	Insert(ctx context.Context, m *models.Meeting) error
	GetByID(ctx context.Context, id string) (*models.Meeting, error)
	List(ctx context.Context, limit int) ([]models.Meeting, error)
}

type meetingRepo struct {
	db *gorm.DB
}

func NewMeetingRepo(db *gorm.DB) MeetingRepository {
	return &meetingRepo{db: db}
}

func (r *meetingRepo) Insert(ctx context.Context, m *models.Meeting) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	res := r.db.WithContext(ctx).Create(m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNoRow
	}
	return nil
}

func (r *meetingRepo) GetByID(ctx context.Context, id string) (*models.Meeting, error) {
	var m models.Meeting
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *meetingRepo) List(ctx context.Context, limit int) ([]models.Meeting, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []models.Meeting
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
