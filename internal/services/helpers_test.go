package services

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/paavan-1234/minutes-backend/internal/analysis"
	"github.com/paavan-1234/minutes-backend/internal/logger"
	"github.com/paavan-1234/minutes-backend/internal/metrics"
	"github.com/paavan-1234/minutes-backend/internal/models"
	"github.com/paavan-1234/minutes-backend/internal/progress"
	"github.com/paavan-1234/minutes-backend/internal/providers/stt"
	pgrepo "github.com/paavan-1234/minutes-backend/internal/repositories/postgres"
	"github.com/paavan-1234/minutes-backend/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, db.AutoMigrate(models.Schema()...))
	return db
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

// fakeSTT returns a canned transcription.
type fakeSTT struct {
	mu    sync.Mutex
	res   *stt.Result
	err   error
	calls int
	input stt.Input
}

func (f *fakeSTT) Transcribe(_ context.Context, in stt.Input) (*stt.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	if f.res == nil {
		return nil, nil
	}
	r := *f.res
	return &r, nil
}

func (f *fakeSTT) Close() error { return nil }

// fakeLLM returns a canned reply. With block set it waits for the context instead.
type fakeLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	block bool
	calls int
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, _ string) (string, error) {
	f.mu.Lock()
	f.calls++
	block, reply, err := f.block, f.reply, f.err
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return reply, err
}

func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// writeLog records the order of repository writes across tables.
type writeLog struct {
	mu     sync.Mutex
	tables []string
}

func (w *writeLog) add(table string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tables = append(w.tables, table)
}

func (w *writeLog) all() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.tables...)
}

type loggedMeetings struct {
	pgrepo.MeetingRepository
	log *writeLog
	err error
}

func (r loggedMeetings) Insert(ctx context.Context, m *models.Meeting) error {
	r.log.add("meetings")
	if r.err != nil {
		return r.err
	}
	return r.MeetingRepository.Insert(ctx, m)
}

type loggedTranscripts struct {
	pgrepo.TranscriptRepository
	log *writeLog
	err error
}

func (r loggedTranscripts) BulkInsert(ctx context.Context, rows []models.TranscriptLine) error {
	r.log.add("transcripts")
	if r.err != nil {
		return r.err
	}
	return r.TranscriptRepository.BulkInsert(ctx, rows)
}

type loggedEmotions struct {
	pgrepo.EmotionSegmentRepository
	log *writeLog
}

func (r loggedEmotions) BulkInsert(ctx context.Context, rows []models.EmotionSegment) error {
	r.log.add("emotion_segments")
	return r.EmotionSegmentRepository.BulkInsert(ctx, rows)
}

type loggedSummaries struct {
	pgrepo.SummaryRepository
	log *writeLog
}

func (r loggedSummaries) Insert(ctx context.Context, s *models.Summary) error {
	r.log.add("summaries")
	return r.SummaryRepository.Insert(ctx, s)
}

type loggedTasks struct {
	pgrepo.TaskRepository
	log *writeLog
}

func (r loggedTasks) BulkInsert(ctx context.Context, rows []models.Task) error {
	r.log.add("tasks")
	return r.TaskRepository.BulkInsert(ctx, rows)
}

// fakeUploader archives into memory.
type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (u *fakeUploader) Upload(_ context.Context, objectName, _ string, r io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.objects == nil {
		u.objects = map[string][]byte{}
	}
	u.objects[objectName] = b
	return "gs://test-bucket/" + objectName, nil
}

const (
	toneReply    = `{"mood_score": 78, "dominant_emotion": "happy", "emotion_breakdown": {"happy": 55, "confident": 30, "neutral": 15}}`
	segmentReply = `{"segments": [{"index": 0, "emotion": "happy", "score": 0.82}, {"index": 1, "emotion": "confident", "score": 0.64}]}`
	summaryReply = "```json\n" + `{
		"summary": {"bullets": ["Team made great progress"], "decisions": [], "risks": [], "follow_up_questions": ["When is the demo?"]},
		"tasks": [{"title": "Prepare demo", "owner": "Sam", "due_date": "2025-06-01", "priority": "high", "status": "todo"}]
	}` + "\n```"
)

func thirtySecondStandup() *stt.Result {
	return &stt.Result{
		Text: "Hello team, great progress this week",
		Segments: []stt.Segment{
			{Index: 0, Start: 0, End: 14.2, Text: "Hello team,"},
			{Index: 1, Start: 14.2, End: 29.6, Text: "great progress this week"},
		},
		Words: []stt.Word{
			{Word: "Hello", Start: 0, End: 0.6},
			{Word: "team", Start: 0.6, End: 1.1},
		},
		Duration: 30.2,
	}
}

// pipeline wires an ingestion service over sqlite with fake upstreams.
type pipeline struct {
	db       *gorm.DB
	dir      string
	stt      *fakeSTT
	toneLLM  *fakeLLM
	segLLM   *fakeLLM
	sumLLM   *fakeLLM
	writes   *writeLog
	broker   *progress.MemoryBroker
	registry *prometheus.Registry
	deps     IngestionDeps

	meetingErr    error
	transcriptErr error
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	p := &pipeline{
		db:       newTestDB(t),
		dir:      t.TempDir(),
		stt:      &fakeSTT{res: thirtySecondStandup()},
		toneLLM:  &fakeLLM{reply: toneReply},
		segLLM:   &fakeLLM{reply: segmentReply},
		sumLLM:   &fakeLLM{reply: summaryReply},
		writes:   &writeLog{},
		broker:   progress.NewMemoryBroker(),
		registry: prometheus.NewRegistry(),
	}

	temps, err := storage.NewTempStore(p.dir)
	require.NoError(t, err)
	m, err := metrics.NewPipeline(p.registry)
	require.NoError(t, err)

	p.deps = IngestionDeps{
		Temps:       temps,
		STT:         p.stt,
		Language:    "en-US",
		Tone:        analysis.NewToneAnalyzer(p.toneLLM),
		SegmentTone: analysis.NewSegmentToneAnalyzer(p.segLLM),
		Summaries:   analysis.NewSummaryExtractor(p.sumLLM),
		Tracker:     NewRunTracker(nil, p.broker, m, logger.Discard(), time.Hour),
		Metrics:     m,
		Timeouts:    Timeouts{STT: time.Second, LLM: time.Second, Archive: time.Second},
	}
	return p
}

func (p *pipeline) service() IngestionService {
	deps := p.deps
	deps.Writer = NewMeetingWriter(
		loggedMeetings{MeetingRepository: pgrepo.NewMeetingRepo(p.db), log: p.writes, err: p.meetingErr},
		loggedTranscripts{TranscriptRepository: pgrepo.NewTranscriptRepo(p.db), log: p.writes, err: p.transcriptErr},
		loggedEmotions{EmotionSegmentRepository: pgrepo.NewEmotionSegmentRepo(p.db), log: p.writes},
		loggedSummaries{SummaryRepository: pgrepo.NewSummaryRepo(p.db), log: p.writes},
		loggedTasks{TaskRepository: pgrepo.NewTaskRepo(p.db), log: p.writes},
		time.Second,
	)
	return NewIngestionService(deps)
}

func (p *pipeline) tempFiles(t *testing.T) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(p.dir)
	require.NoError(t, err)
	return entries
}
