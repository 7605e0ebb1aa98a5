package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paavan-1234/minutes-backend/internal/analysis"
	"github.com/paavan-1234/minutes-backend/internal/logger"
	"github.com/paavan-1234/minutes-backend/internal/metrics"
	"github.com/paavan-1234/minutes-backend/internal/models"
	"github.com/paavan-1234/minutes-backend/internal/providers/stt"
	"github.com/paavan-1234/minutes-backend/internal/storage"
	"github.com/paavan-1234/minutes-backend/internal/utils"
	"gorm.io/datatypes"
)

// Client-facing messages.
const (
	MsgNoAudio         = "No audio file uploaded"
	MsgStoreFailed     = "Failed to store uploaded audio"
	MsgTranscribeFail  = "Failed to transcribe audio"
	MsgMeetingFailed   = "Failed to create meeting record"
	DefaultTitle       = "Untitled Meeting"
	DefaultMeetingType = "general"
)

type IngestInput struct {
	RunID       string // generated when empty
	Audio       io.Reader
	FileName    string
	MimeType    string
	Title       string
	MeetingType string
}

type EmotionResult struct {
	MoodScore        *float64                  `json:"moodScore"`
	DominantEmotion  *string                   `json:"dominantEmotion"`
	EmotionBreakdown map[string]float64        `json:"emotionBreakdown"`
	SegmentEmotions  []analysis.SegmentEmotion `json:"segmentEmotions"`
}

// IngestResult is the upload response body.
type IngestResult struct {
	MeetingID  string              `json:"meetingId"`
	RunID      string              `json:"runId"`
	Transcript string              `json:"transcript"`
	Segments   []stt.Segment       `json:"segments"`
	Words      []stt.Word          `json:"words"`
	Emotion    EmotionResult       `json:"emotion"`
	Summary    *analysis.Summary   `json:"summary"` // null when extraction is disabled
	Tasks      []analysis.TaskItem `json:"tasks"`
}

type IngestionService interface {
	Ingest(ctx context.Context, in IngestInput) (*IngestResult, error)
}

type toneAnalyzer interface {
	Analyze(ctx context.Context, transcript string) (analysis.Tone, error)
}

type segmentToneAnalyzer interface {
	Analyze(ctx context.Context, segments []stt.Segment) (map[int]analysis.Label, error)
}

type summaryExtractor interface {
	Extract(ctx context.Context, transcript string) (analysis.Summary, []analysis.TaskItem, error)
}

// Timeouts bound each external call. Zero means no deadline beyond the request's.
// Timeouts bound each external call of the pipeline. Database writes are bounded
// by the MeetingWriter.
type Timeouts struct {
	STT     time.Duration
	LLM     time.Duration
	Archive time.Duration
}

type IngestionDeps struct {
	Temps       *storage.TempStore
	STT         stt.Provider
	Language    string
	Tone        toneAnalyzer
	SegmentTone segmentToneAnalyzer
	Summaries   summaryExtractor // nil disables extraction
	Archive     storage.Uploader // nil disables the archive copy
	Writer      *MeetingWriter
	Tracker     *RunTracker
	Metrics     *metrics.Pipeline
	Timeouts    Timeouts
}

type ingestionService struct {
	IngestionDeps
}

func NewIngestionService(deps IngestionDeps) IngestionService {
	if deps.Tracker == nil {
		deps.Tracker = NewRunTracker(nil, nil, deps.Metrics, logger.Discard(), 0)
	}
	return &ingestionService{IngestionDeps: deps}
}

// Ingest runs upload → archive → transcribe → tone → segment tone → summary →
// persist, strictly in that order. The archive copy goes first so transcribers
// that read Cloud Storage never receive the recording inline. Only storing the upload, transcription and the
// meeting insert are fatal; everything else degrades to empty output. The temp file
// is removed before Ingest returns, on every path.
func (s *ingestionService) Ingest(ctx context.Context, in IngestInput) (res *IngestResult, err error) {
	const op = "IngestionService.Ingest"

	if in.Audio == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, MsgNoAudio, nil)
	}
	if in.RunID == "" {
		in.RunID = uuid.NewString()
	}
	if strings.TrimSpace(in.Title) == "" {
		in.Title = DefaultTitle
	}
	if strings.TrimSpace(in.MeetingType) == "" {
		in.MeetingType = DefaultMeetingType
	}

	run := s.Tracker.Start(ctx, in.RunID, in.FileName, in.MimeType)
	defer func() {
		meetingID := ""
		if res != nil {
			meetingID = res.MeetingID
		}
		run.Finish(ctx, meetingID, err)
	}()

	d, tmp, err := timedAcquire(s.Temps, in)
	if err != nil {
		run.Record(ctx, StageUpload, metrics.OutcomeFailed, err, d)
		return nil, utils.E(utils.CodeInternal, op, MsgStoreFailed, err)
	}
	run.Record(ctx, StageUpload, metrics.OutcomeOK, nil, d)
	s.Metrics.ObserveUpload(tmp.Size)
	defer s.release(ctx, run, tmp)

	cloudPath := s.archive(ctx, run, tmp)
	uri := ""
	if r, ok := s.STT.(stt.URIReader); ok && r.ReadsURI(cloudPath) {
		uri = cloudPath
	}

	// transcription: fatal
	if c, ok := s.STT.(stt.Checker); ok {
		if cerr := c.Check(in.MimeType, tmp.Size, uri); cerr != nil {
			run.Record(ctx, StageTranscribe, metrics.OutcomeFailed, cerr, 0)
			return nil, s.rejectAudio(op, cerr)
		}
	}
	var tr *stt.Result
	d, err = timed(ctx, s.Timeouts.STT, func(ctx context.Context) error {
		var audio []byte
		if uri == "" {
			var rerr error
			if audio, rerr = tmp.Bytes(); rerr != nil {
				return rerr
			}
		}
		var terr error
		tr, terr = s.STT.Transcribe(ctx, stt.Input{
			Audio:    audio,
			FileName: in.FileName,
			MimeType: in.MimeType,
			Language: s.Language,
			URI:      uri,
		})
		if terr == nil && tr == nil {
			terr = errors.New("transcriber returned no result")
		}
		return terr
	})
	if err != nil {
		run.Record(ctx, StageTranscribe, metrics.OutcomeFailed, err, d)
		return nil, utils.E(utils.CodeInternal, op, MsgTranscribeFail, err)
	}
	run.Record(ctx, StageTranscribe, metrics.OutcomeOK, nil, d)
	hasText := strings.TrimSpace(tr.Text) != ""

	tone := s.analyzeTone(ctx, run, tr.Text, hasText)
	labels, segmentsOK := s.analyzeSegments(ctx, run, tr.Segments)
	summary, tasks, writeSummary := s.extractSummary(ctx, run, tr.Text, hasText)

	// every segment carries an emotion inline; only a successful classification
	// produces emotion_segments rows
	assigned := analysis.Assign(tr.Segments, labels)
	segmentEmotions := []analysis.SegmentEmotion{}
	if segmentsOK {
		segmentEmotions = assigned
	}

	rec := buildRecord(in, tr, tone, assigned, segmentEmotions, cloudPath)
	if writeSummary {
		rec.Summary, rec.Tasks = summaryRows(summary, tasks)
	}

	rep, err := s.Writer.Persist(ctx, rec)
	for _, st := range rep.Steps {
		run.Record(ctx, st.Stage, st.Outcome, st.Err, st.Duration)
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, MsgMeetingFailed, err)
	}
	if failed := rep.Failed(); len(failed) > 0 {
		run.Log().WithField("meeting_id", rep.MeetingID).WithField("failed", failed).Warn("meeting persisted partially")
	}

	res = &IngestResult{
		MeetingID:  rep.MeetingID,
		RunID:      in.RunID,
		Transcript: tr.Text,
		Segments:   tr.Segments,
		Words:      tr.Words,
		Emotion: EmotionResult{
			MoodScore:        tone.MoodScore,
			DominantEmotion:  tone.DominantEmotion,
			EmotionBreakdown: tone.EmotionBreakdown,
			SegmentEmotions:  segmentEmotions,
		},
		Tasks: []analysis.TaskItem{},
	}
	if res.Segments == nil {
		res.Segments = []stt.Segment{}
	}
	if res.Words == nil {
		res.Words = []stt.Word{}
	}
	if s.Summaries != nil {
		res.Summary = &summary
		res.Tasks = tasks
	}
	return res, nil
}

// rejectAudio turns a transcriber limit into a client error. Oversized audio is
// only the client's fault when no archive copy could have been read instead.
func (s *ingestionService) rejectAudio(op string, err error) error {
	if errors.Is(err, stt.ErrAudioTooLarge) && s.Archive != nil {
		return utils.E(utils.CodeInternal, op, MsgTranscribeFail, err)
	}
	return utils.E(utils.CodeInvalidArgument, op, err.Error(), nil)
}

func timedAcquire(temps *storage.TempStore, in IngestInput) (time.Duration, *storage.TempFile, error) {
	start := time.Now()
	tmp, err := temps.Acquire(in.Audio, in.FileName, in.MimeType)
	return time.Since(start), tmp, err
}

func (s *ingestionService) analyzeTone(ctx context.Context, run *Run, text string, hasText bool) analysis.Tone {
	if !hasText {
		run.Record(ctx, StageTone, metrics.OutcomeSkipped, nil, 0)
		return analysis.Tone{}
	}
	var tone analysis.Tone
	d, err := timed(ctx, s.Timeouts.LLM, func(ctx context.Context) error {
		var aerr error
		tone, aerr = s.Tone.Analyze(ctx, text)
		return aerr
	})
	if err != nil {
		run.Record(ctx, StageTone, metrics.OutcomeDegraded, err, d)
		return analysis.Tone{}
	}
	run.Record(ctx, StageTone, metrics.OutcomeOK, nil, d)
	return tone
}

func (s *ingestionService) analyzeSegments(ctx context.Context, run *Run, segments []stt.Segment) (map[int]analysis.Label, bool) {
	if len(segments) == 0 {
		run.Record(ctx, StageSegmentTone, metrics.OutcomeSkipped, nil, 0)
		return nil, false
	}
	var labels map[int]analysis.Label
	d, err := timed(ctx, s.Timeouts.LLM, func(ctx context.Context) error {
		var aerr error
		labels, aerr = s.SegmentTone.Analyze(ctx, segments)
		return aerr
	})
	if err != nil {
		run.Record(ctx, StageSegmentTone, metrics.OutcomeDegraded, err, d)
		return nil, false
	}
	run.Record(ctx, StageSegmentTone, metrics.OutcomeOK, nil, d)
	return labels, true
}

// extractSummary reports whether a summary row should be written: extraction is
// enabled and there was a transcript to summarize.
func (s *ingestionService) extractSummary(ctx context.Context, run *Run, text string, hasText bool) (analysis.Summary, []analysis.TaskItem, bool) {
	if s.Summaries == nil || !hasText {
		run.Record(ctx, StageSummary, metrics.OutcomeSkipped, nil, 0)
		return analysis.EmptySummary(), []analysis.TaskItem{}, false
	}
	var (
		summary analysis.Summary
		tasks   []analysis.TaskItem
	)
	d, err := timed(ctx, s.Timeouts.LLM, func(ctx context.Context) error {
		var xerr error
		summary, tasks, xerr = s.Summaries.Extract(ctx, text)
		return xerr
	})
	if err != nil {
		run.Record(ctx, StageSummary, metrics.OutcomeDegraded, err, d)
		return analysis.EmptySummary(), []analysis.TaskItem{}, true
	}
	run.Record(ctx, StageSummary, metrics.OutcomeOK, nil, d)
	return summary, tasks, true
}

func (s *ingestionService) archive(ctx context.Context, run *Run, tmp *storage.TempFile) string {
	if s.Archive == nil {
		return ""
	}
	object := path.Join("meetings", run.ID(), archiveName(tmp))

	var stored string
	d, err := timed(ctx, s.Timeouts.Archive, func(ctx context.Context) error {
		f, oerr := tmp.Open()
		if oerr != nil {
			return oerr
		}
		defer f.Close()
		var uerr error
		stored, uerr = s.Archive.Upload(ctx, object, tmp.MimeType, f)
		return uerr
	})
	if err != nil {
		run.Record(ctx, StageArchive, metrics.OutcomeDegraded, err, d)
		return ""
	}
	run.Record(ctx, StageArchive, metrics.OutcomeOK, nil, d)
	return stored
}

func (s *ingestionService) release(ctx context.Context, run *Run, tmp *storage.TempFile) {
	start := time.Now()
	if err := tmp.Release(); err != nil {
		s.Metrics.CleanupFailed()
		run.Log().WithField("path", tmp.Path).WithError(err).Error("temp file cleanup failed")
		run.Record(ctx, StageCleanup, metrics.OutcomeFailed, err, time.Since(start))
		return
	}
	run.Record(ctx, StageCleanup, metrics.OutcomeOK, nil, time.Since(start))
}

// archiveName keeps the client's base name when it is usable.
func archiveName(tmp *storage.TempFile) string {
	name := path.Base(strings.ReplaceAll(tmp.FileName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return path.Base(tmp.Path)
	}
	return name
}

func buildRecord(in IngestInput, tr *stt.Result, tone analysis.Tone, assigned, segmentEmotions []analysis.SegmentEmotion, cloudPath string) *MeetingRecord {
	m := &models.Meeting{
		Title:           in.Title,
		MeetingType:     in.MeetingType,
		Duration:        int(math.Round(tr.Duration)),
		MoodScore:       tone.MoodScore,
		DominantEmotion: tone.DominantEmotion,
		Transcript:      tr.Text,
		CloudPath:       cloudPath,
	}
	if tone.EmotionBreakdown != nil {
		if b, err := json.Marshal(tone.EmotionBreakdown); err == nil {
			m.EmotionBreakdown = datatypes.JSON(b)
		}
	}

	lines := make([]models.TranscriptLine, len(tr.Segments))
	for i, seg := range tr.Segments {
		lines[i] = models.TranscriptLine{
			SegmentIndex: seg.Index,
			Start:        seg.Start,
			End:          seg.End,
			Text:         seg.Text,
			Emotion:      assigned[i].Emotion,
			EmotionScore: assigned[i].Score,
		}
	}

	emotions := make([]models.EmotionSegment, len(segmentEmotions))
	for i, se := range segmentEmotions {
		emotions[i] = models.EmotionSegment{
			SegmentIndex: se.SegmentIndex,
			Start:        se.Start,
			End:          se.End,
			Emotion:      se.Emotion,
			Score:        se.Score,
		}
	}

	return &MeetingRecord{Meeting: m, Transcript: lines, EmotionSegments: emotions}
}

func summaryRows(s analysis.Summary, tasks []analysis.TaskItem) (*models.Summary, []models.Task) {
	row := &models.Summary{
		Bullets:           models.StringArray(s.Bullets),
		Decisions:         models.StringArray(s.Decisions),
		Risks:             models.StringArray(s.Risks),
		FollowUpQuestions: models.StringArray(s.FollowUpQuestions),
	}
	rows := make([]models.Task, len(tasks))
	for i, t := range tasks {
		rows[i] = models.Task{
			Title:            t.Title,
			Description:      t.Description,
			Owner:            t.Owner,
			DueDate:          t.DueDate,
			Priority:         t.Priority,
			Status:           t.Status,
			NotionSyncStatus: models.SyncPending,
		}
	}
	return row, rows
}
