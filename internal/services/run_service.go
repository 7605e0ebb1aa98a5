package services

import (
	"context"
	"errors"

	"github.com/paavan-1234/minutes-backend/internal/models"
	mongorepo "github.com/paavan-1234/minutes-backend/internal/repositories/mongo"
	"github.com/paavan-1234/minutes-backend/internal/utils"
)

type RunService interface {
	Get(ctx context.Context, runID string) (*models.IngestionRun, error)
}

type runService struct {
	runs mongorepo.RunRepository // nil when mongo is not configured
}

func NewRunService(runs mongorepo.RunRepository) RunService {
	return &runService{runs: runs}
}

func (s *runService) Get(ctx context.Context, runID string) (*models.IngestionRun, error) {
	const op = "RunService.Get"

	if runID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "run_id is required", nil)
	}
	if s.runs == nil {
		return nil, utils.E(utils.CodeNotFound, op, "run history is not enabled", nil)
	}
	run, err := s.runs.GetByRunID(ctx, runID)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeNotFound, op, "run not found", nil)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load run", err)
	}
	return run, nil
}
