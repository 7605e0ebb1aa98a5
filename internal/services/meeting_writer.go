package services

import (
	"context"
	"time"

	"github.com/paavan-1234/minutes-backend/internal/metrics"
	"github.com/paavan-1234/minutes-backend/internal/models"
	pgrepo "github.com/paavan-1234/minutes-backend/internal/repositories/postgres"
)

// MeetingRecord is everything one ingestion persists. Dependent rows get their
// MeetingID filled in by MeetingWriter.
type MeetingRecord struct {
	Meeting         *models.Meeting
	Transcript      []models.TranscriptLine
	EmotionSegments []models.EmotionSegment
	Summary         *models.Summary // nil: no summary row
	Tasks           []models.Task
}

type PersistStep struct {
	Stage    string
	Outcome  string // ok|skipped|degraded|failed
	Err      error
	Duration time.Duration
}

type PersistReport struct {
	MeetingID string
	Steps     []PersistStep
}

// Failed lists the stages whose writes failed.
func (r *PersistReport) Failed() []string {
	var out []string
	for _, s := range r.Steps {
		if s.Err != nil {
			out = append(out, s.Stage)
		}
	}
	return out
}

// MeetingWriter inserts the meeting first and then its dependents. A failed meeting
// insert aborts before any dependent write. Dependent writes are independent of each
// other and not transactional: a failed step leaves earlier steps committed and later
// steps still run.
type MeetingWriter struct {
	meetings    pgrepo.MeetingRepository
	transcripts pgrepo.TranscriptRepository
	emotions    pgrepo.EmotionSegmentRepository
	summaries   pgrepo.SummaryRepository
	tasks       pgrepo.TaskRepository
	timeout     time.Duration
}

func NewMeetingWriter(
	meetings pgrepo.MeetingRepository,
	transcripts pgrepo.TranscriptRepository,
	emotions pgrepo.EmotionSegmentRepository,
	summaries pgrepo.SummaryRepository,
	tasks pgrepo.TaskRepository,
	timeout time.Duration,
) *MeetingWriter {
	return &MeetingWriter{
		meetings:    meetings,
		transcripts: transcripts,
		emotions:    emotions,
		summaries:   summaries,
		tasks:       tasks,
		timeout:     timeout,
	}
}

// Persist returns an error only when the meeting row could not be created. The
// report covers every step, including the failed meeting insert.
func (w *MeetingWriter) Persist(ctx context.Context, rec *MeetingRecord) (*PersistReport, error) {
	rep := &PersistReport{}

	meetingStep := w.step(ctx, StagePersistMeeting, false, func(ctx context.Context) error {
		return w.meetings.Insert(ctx, rec.Meeting)
	})
	rep.Steps = append(rep.Steps, meetingStep)
	if meetingStep.Err != nil {
		return rep, meetingStep.Err
	}
	id := rec.Meeting.ID
	rep.MeetingID = id

	for i := range rec.Transcript {
		rec.Transcript[i].MeetingID = id
	}
	for i := range rec.EmotionSegments {
		rec.EmotionSegments[i].MeetingID = id
	}
	if rec.Summary != nil {
		rec.Summary.MeetingID = id
	}
	for i := range rec.Tasks {
		rec.Tasks[i].MeetingID = id
	}

	rep.Steps = append(rep.Steps,
		w.step(ctx, StagePersistTranscripts, len(rec.Transcript) == 0, func(ctx context.Context) error {
			return w.transcripts.BulkInsert(ctx, rec.Transcript)
		}),
		w.step(ctx, StagePersistEmotions, len(rec.EmotionSegments) == 0, func(ctx context.Context) error {
			return w.emotions.BulkInsert(ctx, rec.EmotionSegments)
		}),
		w.step(ctx, StagePersistSummary, rec.Summary == nil, func(ctx context.Context) error {
			return w.summaries.Insert(ctx, rec.Summary)
		}),
		w.step(ctx, StagePersistTasks, len(rec.Tasks) == 0, func(ctx context.Context) error {
			return w.tasks.BulkInsert(ctx, rec.Tasks)
		}),
	)
	return rep, nil
}

func (w *MeetingWriter) step(ctx context.Context, stage string, skip bool, fn func(context.Context) error) PersistStep {
	if skip {
		return PersistStep{Stage: stage, Outcome: metrics.OutcomeSkipped}
	}
	d, err := timed(ctx, w.timeout, fn)
	if err != nil {
		outcome := metrics.OutcomeDegraded
		if stage == StagePersistMeeting {
			outcome = metrics.OutcomeFailed
		}
		return PersistStep{Stage: stage, Outcome: outcome, Err: err, Duration: d}
	}
	return PersistStep{Stage: stage, Outcome: metrics.OutcomeOK, Duration: d}
}

// timed runs fn under an optional deadline and reports how long it took.
func timed(ctx context.Context, timeout time.Duration, fn func(context.Context) error) (time.Duration, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	err := fn(ctx)
	return time.Since(start), err
}
