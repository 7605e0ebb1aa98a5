package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/paavan-1234/minutes-backend/internal/models"
	"github.com/paavan-1234/minutes-backend/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const RunsCollection = "ingestion_runs"

type RunRepository interface {
	Create(ctx context.Context, run *models.IngestionRun) error
	AppendStage(ctx context.Context, runID string, stage models.StageOutcome) error
	Finish(ctx context.Context, runID, status, meetingID, errMsg string, finishedAt time.Time) error
	GetByRunID(ctx context.Context, runID string) (*models.IngestionRun, error)
}

type runRepo struct {
	col *mongo.Collection
}

func NewRunRepo(db *mongo.Database) RunRepository {
	return &runRepo{col: db.Collection(RunsCollection)}
}

func (r *runRepo) Create(ctx context.Context, run *models.IngestionRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Stages == nil {
		run.Stages = []models.StageOutcome{}
	}
	_, err := r.col.InsertOne(ctx, run)
	return err
}

func (r *runRepo) AppendStage(ctx context.Context, runID string, stage models.StageOutcome) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"run_id": runID},
		bson.M{"$push": bson.M{"stages": stage}},
	)
	return err
}

func (r *runRepo) Finish(ctx context.Context, runID, status, meetingID, errMsg string, finishedAt time.Time) error {
	set := bson.M{
		"status":      status,
		"finished_at": finishedAt,
	}
	if meetingID != "" {
		set["meeting_id"] = meetingID
	}
	if errMsg != "" {
		set["error"] = errMsg
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"run_id": runID}, bson.M{"$set": set})
	return err
}

func (r *runRepo) GetByRunID(ctx context.Context, runID string) (*models.IngestionRun, error) {
	var run models.IngestionRun
	err := r.col.FindOne(ctx, bson.M{"run_id": runID}).Decode(&run)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
