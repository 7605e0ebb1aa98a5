package services

import (
	"context"
	"time"

	"github.com/paavan-1234/minutes-backend/internal/logger"
	"github.com/paavan-1234/minutes-backend/internal/metrics"
	"github.com/paavan-1234/minutes-backend/internal/models"
	"github.com/paavan-1234/minutes-backend/internal/progress"
	mongorepo "github.com/paavan-1234/minutes-backend/internal/repositories/mongo"
	"github.com/sirupsen/logrus"
)

// Pipeline stages, in execution order.
const (
	StageUpload             = "upload"
	StageTranscribe         = "transcribe"
	StageTone               = "tone"
	StageSegmentTone        = "segment_tone"
	StageSummary            = "summary"
	StageArchive            = "archive"
	StagePersistMeeting     = "persist_meeting"
	StagePersistTranscripts = "persist_transcripts"
	StagePersistEmotions    = "persist_emotion_segments"
	StagePersistSummary     = "persist_summary"
	StagePersistTasks       = "persist_tasks"
	StageCleanup            = "cleanup"
)

// sideEffectTimeout bounds audit and progress writes so a slow mongo or redis
// never holds up a request.
const sideEffectTimeout = 2 * time.Second

// RunTracker fans every stage outcome out to the log, metrics, progress events and,
// when configured, the ingestion_runs audit collection. Audit and event failures are
// logged and otherwise ignored.
type RunTracker struct {
	runs    mongorepo.RunRepository // nil when mongo is not configured
	events  progress.Publisher
	metrics *metrics.Pipeline
	log     logrus.FieldLogger
	ttl     time.Duration
	now     func() time.Time
}

func NewRunTracker(runs mongorepo.RunRepository, events progress.Publisher, m *metrics.Pipeline, log logrus.FieldLogger, ttl time.Duration) *RunTracker {
	if events == nil {
		events = progress.Nop()
	}
	if log == nil {
		log = logger.Discard()
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RunTracker{
		runs:    runs,
		events:  events,
		metrics: m,
		log:     log,
		ttl:     ttl,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run is the bookkeeping handle of one ingestion.
type Run struct {
	t      *RunTracker
	id     string
	log    *logrus.Entry
	stages []models.StageOutcome
}

func (t *RunTracker) Start(ctx context.Context, runID, fileName, mimeType string) *Run {
	r := &Run{
		t:  t,
		id: runID,
		log: t.log.WithFields(logrus.Fields{
			"run_id":    runID,
			"file_name": fileName,
		}),
	}

	now := t.now()
	if t.runs != nil {
		sctx, cancel := sideEffectCtx(ctx)
		defer cancel()
		err := t.runs.Create(sctx, &models.IngestionRun{
			RunID:     runID,
			FileName:  fileName,
			MimeType:  mimeType,
			Status:    models.RunProcessing,
			Stages:    []models.StageOutcome{},
			StartedAt: now,
			ExpiresAt: now.Add(t.ttl),
		})
		if err != nil {
			r.log.WithError(err).Warn("run audit create failed")
		}
	}
	r.publish(ctx, progress.Event{Status: progress.StatusProcessing, Message: "ingestion started"})
	r.log.Info("ingestion started")
	return r
}

func (r *Run) ID() string { return r.id }

// Log is the run-scoped logger.
func (r *Run) Log() *logrus.Entry { return r.log }

// Stages returns the outcomes recorded so far, in order.
func (r *Run) Stages() []models.StageOutcome { return r.stages }

func (r *Run) Record(ctx context.Context, stage, outcome string, err error, d time.Duration) {
	so := models.StageOutcome{
		Stage:      stage,
		Outcome:    outcome,
		DurationMS: d.Milliseconds(),
		At:         r.t.now(),
	}
	if err != nil {
		so.Error = err.Error()
	}
	r.stages = append(r.stages, so)

	entry := r.log.WithFields(logrus.Fields{
		"stage":       stage,
		"outcome":     outcome,
		"duration_ms": so.DurationMS,
	})
	switch outcome {
	case metrics.OutcomeFailed:
		entry.WithError(err).Error("stage failed")
	case metrics.OutcomeDegraded:
		entry.WithError(err).Warn("stage degraded")
	default:
		entry.Debug("stage finished")
	}

	r.t.metrics.ObserveStage(stage, outcome, d)

	if r.t.runs != nil {
		sctx, cancel := sideEffectCtx(ctx)
		defer cancel()
		if aerr := r.t.runs.AppendStage(sctx, r.id, so); aerr != nil {
			r.log.WithError(aerr).Warn("run audit append failed")
		}
	}
	r.publish(ctx, progress.Event{Stage: stage, Status: outcome, Message: so.Error})
}

// Finish closes the run. A nil err marks it succeeded.
func (r *Run) Finish(ctx context.Context, meetingID string, err error) {
	status, evStatus, msg := models.RunSucceeded, progress.StatusDone, ""
	if err != nil {
		status, evStatus, msg = models.RunFailed, progress.StatusFailed, err.Error()
	}

	if r.t.runs != nil {
		sctx, cancel := sideEffectCtx(ctx)
		defer cancel()
		if ferr := r.t.runs.Finish(sctx, r.id, status, meetingID, msg, r.t.now()); ferr != nil {
			r.log.WithError(ferr).Warn("run audit finish failed")
		}
	}
	r.publish(ctx, progress.Event{Status: evStatus, Message: msg, MeetingID: meetingID})

	entry := r.log.WithField("meeting_id", meetingID)
	if err != nil {
		entry.WithError(err).Error("ingestion failed")
		return
	}
	entry.Info("ingestion finished")
}

func (r *Run) publish(ctx context.Context, ev progress.Event) {
	ev.RunID = r.id
	sctx, cancel := sideEffectCtx(ctx)
	defer cancel()
	if err := r.t.events.Publish(sctx, ev); err != nil {
		r.log.WithError(err).Debug("progress publish failed")
	}
}

// sideEffectCtx outlives a cancelled request so the run is still closed out.
func sideEffectCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
}
