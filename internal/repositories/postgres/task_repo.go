package postgres

import (
	"context"

	"github.com/paavan-1234/minutes-backend/internal/models"
	"gorm.io/gorm"
)

type TaskRepository interface {
	BulkInsert(ctx context.Context, rows []models.Task) error
	ListByMeeting(ctx context.Context, meetingID string) ([]models.Task, error)
}

type taskRepo struct {
	db *gorm.DB
}

func NewTaskRepo(db *gorm.DB) TaskRepository {
	return &taskRepo{db: db}
}

func (r *taskRepo) BulkInsert(ctx context.Context, rows []models.Task) error {
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		if rows[i].NotionSyncStatus == "" {
			rows[i].NotionSyncStatus = models.SyncPending
		}
	}
	return r.db.WithContext(ctx).CreateInBatches(&rows, batchSize).Error
}

func (r *taskRepo) ListByMeeting(ctx context.Context, meetingID string) ([]models.Task, error) {
	var rows []models.Task
	err := r.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
