package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/paavan-1234/minutes-backend/internal/cache"
	"github.com/paavan-1234/minutes-backend/internal/models"
	pgrepo "github.com/paavan-1234/minutes-backend/internal/repositories/postgres"
	"github.com/paavan-1234/minutes-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// MeetingDetail is a meeting with all of its dependent rows.
type MeetingDetail struct {
	Meeting         models.Meeting          `json:"meeting"`
	Transcript      []models.TranscriptLine `json:"transcript"`
	EmotionSegments []models.EmotionSegment `json:"emotion_segments"`
	Summary         *models.Summary         `json:"summary"`
	Tasks           []models.Task           `json:"tasks"`
}

type MeetingService interface {
	Get(ctx context.Context, id string) (*MeetingDetail, error)
	List(ctx context.Context, limit int) ([]models.Meeting, error)
	Tasks(ctx context.Context, id string) (*models.Meeting, []models.Task, error)
}

type meetingService struct {
	meetings    pgrepo.MeetingRepository
	transcripts pgrepo.TranscriptRepository
	emotions    pgrepo.EmotionSegmentRepository
	summaries   pgrepo.SummaryRepository
	tasks       pgrepo.TaskRepository

	cache    cache.Cache
	cacheTTL time.Duration
	log      logrus.FieldLogger
}

func NewMeetingService(
	meetings pgrepo.MeetingRepository,
	transcripts pgrepo.TranscriptRepository,
	emotions pgrepo.EmotionSegmentRepository,
	summaries pgrepo.SummaryRepository,
	tasks pgrepo.TaskRepository,
	c cache.Cache,
	cacheTTL time.Duration,
	log logrus.FieldLogger,
) MeetingService {
	return &meetingService{
		meetings:    meetings,
		transcripts: transcripts,
		emotions:    emotions,
		summaries:   summaries,
		tasks:       tasks,
		cache:       c,
		cacheTTL:    cacheTTL,
		log:         log,
	}
}

func cacheKey(id string) string { return "meeting:" + id }

// Get is read-through cached. Meetings are never updated after ingestion so
// entries are only dropped by TTL.
func (s *meetingService) Get(ctx context.Context, id string) (*MeetingDetail, error) {
	const op = "MeetingService.Get"

	if _, err := uuid.Parse(id); err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid meeting id", nil)
	}

	if s.cache != nil {
		var cached MeetingDetail
		hit, err := s.cache.GetJSON(ctx, cacheKey(id), &cached)
		if err != nil {
			s.log.WithError(err).WithField("meeting_id", id).Warn("cache read failed")
		}
		if hit {
			return &cached, nil
		}
	}

	m, err := s.meetings.GetByID(ctx, id)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeNotFound, op, "meeting not found", nil)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load meeting", err)
	}

	lines, err := s.transcripts.ListByMeeting(ctx, id)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load transcript", err)
	}
	emotions, err := s.emotions.ListByMeeting(ctx, id)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load emotion segments", err)
	}
	summary, err := s.summaries.GetByMeeting(ctx, id)
	if err != nil && !errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeInternal, op, "failed to load summary", err)
	}
	tasks, err := s.tasks.ListByMeeting(ctx, id)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load tasks", err)
	}

	d := &MeetingDetail{
		Meeting:         *m,
		Transcript:      nonNil(lines),
		EmotionSegments: nonNil(emotions),
		Summary:         summary,
		Tasks:           nonNil(tasks),
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey(id), d, s.cacheTTL); err != nil {
			s.log.WithError(err).WithField("meeting_id", id).Warn("cache write failed")
		}
	}
	return d, nil
}

func (s *meetingService) List(ctx context.Context, limit int) ([]models.Meeting, error) {
	const op = "MeetingService.List"

	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	rows, err := s.meetings.List(ctx, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list meetings", err)
	}
	return nonNil(rows), nil
}

func (s *meetingService) Tasks(ctx context.Context, id string) (*models.Meeting, []models.Task, error) {
	const op = "MeetingService.Tasks"

	if _, err := uuid.Parse(id); err != nil {
		return nil, nil, utils.E(utils.CodeInvalidArgument, op, "invalid meeting id", nil)
	}
	m, err := s.meetings.GetByID(ctx, id)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, nil, utils.E(utils.CodeNotFound, op, "meeting not found", nil)
	}
	if err != nil {
		return nil, nil, utils.E(utils.CodeInternal, op, "failed to load meeting", err)
	}
	tasks, err := s.tasks.ListByMeeting(ctx, id)
	if err != nil {
		return nil, nil, utils.E(utils.CodeInternal, op, "failed to load tasks", err)
	}
	return m, nonNil(tasks), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
