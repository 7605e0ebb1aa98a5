package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paavan-1234/minutes-backend/internal/analysis"
	"github.com/paavan-1234/minutes-backend/internal/models"
	"github.com/paavan-1234/minutes-backend/internal/progress"
	"github.com/paavan-1234/minutes-backend/internal/providers/stt"
	"github.com/paavan-1234/minutes-backend/internal/utils"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upload(runID string) IngestInput {
	return IngestInput{
		RunID:    runID,
		Audio:    strings.NewReader("ID3\x03\x00fake-mp3-bytes"),
		FileName: "standup.mp3",
		MimeType: "audio/mpeg",
		Title:    "Standup",
	}
}

func TestIngest_HappyPath(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	res, err := p.service().Ingest(ctx, upload("run-1"))
	require.NoError(t, err)

	// response
	assert.Equal(t, "run-1", res.RunID)
	_, perr := uuid.Parse(res.MeetingID)
	require.NoError(t, perr)
	assert.Equal(t, "Hello team, great progress this week", res.Transcript)
	assert.Len(t, res.Segments, 2)
	assert.Len(t, res.Words, 2)
	require.NotNil(t, res.Emotion.DominantEmotion)
	assert.Contains(t, analysis.Emotions, *res.Emotion.DominantEmotion)
	require.NotNil(t, res.Emotion.MoodScore)
	assert.Equal(t, 78.0, *res.Emotion.MoodScore)
	assert.Equal(t, []analysis.SegmentEmotion{
		{SegmentIndex: 0, Start: 0, End: 14.2, Emotion: analysis.Happy, Score: 0.82},
		{SegmentIndex: 1, Start: 14.2, End: 29.6, Emotion: analysis.Confident, Score: 0.64},
	}, res.Emotion.SegmentEmotions)
	require.NotNil(t, res.Summary)
	assert.Equal(t, []string{"Team made great progress"}, res.Summary.Bullets)
	require.Len(t, res.Tasks, 1)
	assert.Equal(t, "Prepare demo", res.Tasks[0].Title)

	// upstream calls
	assert.Equal(t, 1, p.stt.calls)
	assert.Equal(t, "audio/mpeg", p.stt.input.MimeType)
	assert.Equal(t, "en-US", p.stt.input.Language)
	assert.Equal(t, "ID3\x03\x00fake-mp3-bytes", string(p.stt.input.Audio))
	assert.Equal(t, 1, p.toneLLM.Calls())
	assert.Equal(t, 1, p.segLLM.Calls())
	assert.Equal(t, 1, p.sumLLM.Calls())

	// persisted rows
	var m models.Meeting
	require.NoError(t, p.db.Where("id = ?", res.MeetingID).Take(&m).Error)
	assert.Equal(t, "Standup", m.Title)
	assert.Equal(t, DefaultMeetingType, m.MeetingType)
	assert.Equal(t, 30, m.Duration)
	assert.JSONEq(t, `{"happy":55,"neutral":15,"stressed":0,"angry":0,"confident":30}`, string(m.EmotionBreakdown))

	var lines []models.TranscriptLine
	require.NoError(t, p.db.Where("meeting_id = ?", res.MeetingID).Order("segment_index").Find(&lines).Error)
	require.Len(t, lines, 2)
	assert.Equal(t, analysis.Happy, lines[0].Emotion)
	assert.Equal(t, 0.64, lines[1].EmotionScore)

	assert.EqualValues(t, 2, countRows(t, p.db, &models.EmotionSegment{}))
	assert.EqualValues(t, 1, countRows(t, p.db, &models.Summary{}))
	assert.EqualValues(t, 1, countRows(t, p.db, &models.Task{}))

	// temp file gone
	assert.Empty(t, p.tempFiles(t))
}

func TestIngest_MeetingIsFirstAndOnlyRootWrite(t *testing.T) {
	p := newPipeline(t)
	_, err := p.service().Ingest(context.Background(), upload(""))
	require.NoError(t, err)

	writes := p.writes.all()
	require.NotEmpty(t, writes)
	assert.Equal(t, "meetings", writes[0])
	assert.Equal(t, []string{"meetings", "transcripts", "emotion_segments", "summaries", "tasks"}, writes)
	assert.EqualValues(t, 1, countRows(t, p.db, &models.Meeting{}))
}

func TestIngest_SegmentOrderAndIndices(t *testing.T) {
	p := newPipeline(t)
	p.stt.res = &stt.Result{
		Text: "a b c",
		Segments: []stt.Segment{
			{Index: 0, Start: 0, End: 2, Text: "a"},
			{Index: 1, Start: 2, End: 4, Text: "b"},
			{Index: 2, Start: 4, End: 5, Text: "c"},
		},
		Duration: 5,
	}
	p.segLLM.reply = `[{"index": 2, "emotion": "angry", "score": 0.9}, {"index": 7, "emotion": "happy", "score": 0.9}, {"index": 0, "emotion": "stressed", "score": 0.3}]`

	res, err := p.service().Ingest(context.Background(), upload(""))
	require.NoError(t, err)

	for i := 1; i < len(res.Segments); i++ {
		assert.LessOrEqual(t, res.Segments[i-1].Start, res.Segments[i].Start)
	}
	require.Len(t, res.Emotion.SegmentEmotions, 3)
	for _, se := range res.Emotion.SegmentEmotions {
		assert.GreaterOrEqual(t, se.SegmentIndex, 0)
		assert.Less(t, se.SegmentIndex, len(res.Segments))
	}
	assert.Equal(t, analysis.Neutral, res.Emotion.SegmentEmotions[1].Emotion, "unlabelled segment defaults to neutral")
	assert.Equal(t, analysis.DefaultScore, res.Emotion.SegmentEmotions[1].Score)
}

func TestIngest_EmptyTranscriptSkipsAnalysis(t *testing.T) {
	p := newPipeline(t)
	p.stt.res = &stt.Result{Text: "  ", Duration: 4}

	res, err := p.service().Ingest(context.Background(), upload(""))
	require.NoError(t, err)

	assert.Zero(t, p.toneLLM.Calls(), "no overall tone call")
	assert.Zero(t, p.segLLM.Calls(), "no segment tone call")
	assert.Zero(t, p.sumLLM.Calls(), "no summary call")

	assert.Nil(t, res.Emotion.MoodScore)
	assert.Nil(t, res.Emotion.DominantEmotion)
	assert.Nil(t, res.Emotion.EmotionBreakdown)
	assert.Empty(t, res.Emotion.SegmentEmotions)
	assert.Equal(t, analysis.EmptySummary(), *res.Summary)
	assert.Empty(t, res.Tasks)

	var m models.Meeting
	require.NoError(t, p.db.Take(&m).Error)
	assert.Nil(t, m.MoodScore)
	assert.Nil(t, m.DominantEmotion)
	assert.EqualValues(t, 0, countRows(t, p.db, &models.TranscriptLine{}))
	assert.EqualValues(t, 0, countRows(t, p.db, &models.EmotionSegment{}))
	assert.EqualValues(t, 0, countRows(t, p.db, &models.Summary{}))
}

func TestIngest_NoSegmentsSkipsSegmentTone(t *testing.T) {
	p := newPipeline(t)
	p.stt.res = &stt.Result{Text: "words without timing", Duration: 3}

	res, err := p.service().Ingest(context.Background(), upload(""))
	require.NoError(t, err)

	assert.Equal(t, 1, p.toneLLM.Calls())
	assert.Zero(t, p.segLLM.Calls())
	assert.Empty(t, res.Emotion.SegmentEmotions)
	assert.NotNil(t, res.Emotion.SegmentEmotions)
	assert.EqualValues(t, 0, countRows(t, p.db, &models.EmotionSegment{}))
}

func TestIngest_ToneNetworkErrorIsNonFatal(t *testing.T) {
	p := newPipeline(t)
	p.toneLLM.err = errors.New("dial tcp 10.0.0.7:443: connect: connection refused")

	res, err := p.service().Ingest(context.Background(), upload(""))
	require.NoError(t, err)

	assert.Nil(t, res.Emotion.MoodScore)
	assert.Nil(t, res.Emotion.DominantEmotion)
	assert.Equal(t, "Hello team, great progress this week", res.Transcript)
	assert.Len(t, res.Segments, 2)
	assert.Len(t, res.Emotion.SegmentEmotions, 2, "segment tone is independent of overall tone")
	assert.EqualValues(t, 1, countRows(t, p.db, &models.Meeting{}))
}

func TestIngest_MalformedAnalysisOutputDegrades(t *testing.T) {
	p := newPipeline(t)
	p.toneLLM.reply = `I think the meeting was mostly positive!`
	p.segLLM.reply = `{"segments": "n/a"}`
	p.sumLLM.reply = `{"summary": ["not", "an", "object"]}`

	res, err := p.service().Ingest(context.Background(), upload(""))
	require.NoError(t, err)

	assert.Nil(t, res.Emotion.MoodScore)
	assert.Empty(t, res.Emotion.SegmentEmotions)
	assert.Equal(t, analysis.EmptySummary(), *res.Summary)
	assert.Empty(t, res.Tasks)

	// persistence still ran
	assert.EqualValues(t, 1, countRows(t, p.db, &models.Meeting{}))
	var lines []models.TranscriptLine
	require.NoError(t, p.db.Find(&lines).Error)
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.Equal(t, analysis.DefaultEmotion, l.Emotion)
		assert.Equal(t, analysis.DefaultScore, l.EmotionScore)
	}
	assert.EqualValues(t, 0, countRows(t, p.db, &models.EmotionSegment{}))
	assert.EqualValues(t, 1, countRows(t, p.db, &models.Summary{}), "degraded summary is stored as empty lists")
}

func TestIngest_PersistedSegmentScoresStayInRange(t *testing.T) {
	p := newPipeline(t)
	p.segLLM.reply = `[{"index": 0, "emotion": "happy", "score": 1.7}, {"index": 1, "emotion": "angry", "score": "very"}]`

	_, err := p.service().Ingest(context.Background(), upload(""))
	require.NoError(t, err)

	var rows []models.EmotionSegment
	require.NoError(t, p.db.Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestIngest_TranscriptionFailureIsFatal(t *testing.T) {
	p := newPipeline(t)
	p.stt.err = errors.New("speech: quota exceeded")

	res, err := p.service().Ingest(context.Background(), upload(""))
	require.Error(t, err)
	assert.Nil(t, res)

	assert.Equal(t, http.StatusInternalServerError, utils.HTTPStatus(err))
	var ae *utils.AppError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, MsgTranscribeFail, ae.Message)
	assert.Equal(t, "speech: quota exceeded", utils.Details(err))

	assert.Zero(t, p.toneLLM.Calls())
	assert.Empty(t, p.writes.all())
	assert.Empty(t, p.tempFiles(t), "temp file removed on fatal path")
}

func TestIngest_MeetingInsertFailureWritesNothing(t *testing.T) {
	p := newPipeline(t)
	p.meetingErr = errors.New("pq: relation \"meetings\" does not exist")

	res, err := p.service().Ingest(context.Background(), upload(""))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, http.StatusInternalServerError, utils.HTTPStatus(err))
	assert.Contains(t, err.Error(), MsgMeetingFailed)

	assert.Equal(t, []string{"meetings"}, p.writes.all(), "no dependent write attempted")
	for _, m := range []any{&models.Meeting{}, &models.TranscriptLine{}, &models.EmotionSegment{}, &models.Summary{}, &models.Task{}} {
		assert.EqualValues(t, 0, countRows(t, p.db, m))
	}
	assert.Empty(t, p.tempFiles(t))
}

func TestIngest_MeetingInsertWithoutRowIsFatal(t *testing.T) {
	p := newPipeline(t)
	p.meetingErr = utils.ErrNoRow

	_, err := p.service().Ingest(context.Background(), upload(""))
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrNoRow)
	assert.Equal(t, []string{"meetings"}, p.writes.all())
}

func TestIngest_DependentWriteFailureIsPartial(t *testing.T) {
	p := newPipeline(t)
	p.transcriptErr = errors.New("deadlock detected")

	res, err := p.service().Ingest(context.Background(), upload(""))
	require.NoError(t, err)
	assert.NotEmpty(t, res.MeetingID)

	assert.Equal(t, []string{"meetings", "transcripts", "emotion_segments", "summaries", "tasks"}, p.writes.all())
	assert.EqualValues(t, 1, countRows(t, p.db, &models.Meeting{}))
	assert.EqualValues(t, 0, countRows(t, p.db, &models.TranscriptLine{}))
	assert.EqualValues(t, 2, countRows(t, p.db, &models.EmotionSegment{}))
	assert.EqualValues(t, 1, countRows(t, p.db, &models.Summary{}))
}

func TestIngest_AnalysisTimeoutDegrades(t *testing.T) {
	p := newPipeline(t)
	p.toneLLM.block = true
	p.deps.Timeouts.LLM = 20 * time.Millisecond

	start := time.Now()
	res, err := p.service().Ingest(context.Background(), upload(""))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Nil(t, res.Emotion.MoodScore)
	assert.Len(t, res.Emotion.SegmentEmotions, 2)
}

func TestIngest_TranscriptionTimeoutIsFatal(t *testing.T) {
	p := newPipeline(t)
	p.deps.STT = blockingSTT{}
	p.deps.Timeouts.STT = 20 * time.Millisecond

	_, err := p.service().Ingest(context.Background(), upload(""))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, http.StatusInternalServerError, utils.HTTPStatus(err))
	assert.Empty(t, p.tempFiles(t))
}

type blockingSTT struct{}

func (blockingSTT) Transcribe(ctx context.Context, _ stt.Input) (*stt.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingSTT) Close() error { return nil }

func TestIngest_SummaryDisabled(t *testing.T) {
	p := newPipeline(t)
	p.deps.Summaries = nil

	res, err := p.service().Ingest(context.Background(), upload(""))
	require.NoError(t, err)

	assert.Nil(t, res.Summary)
	assert.NotNil(t, res.Tasks)
	assert.Empty(t, res.Tasks)
	assert.Zero(t, p.sumLLM.Calls())
	assert.EqualValues(t, 0, countRows(t, p.db, &models.Summary{}))

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"summary":null`)
	assert.Contains(t, string(b), `"tasks":[]`)
}

func TestIngest_DefaultsTitleAndType(t *testing.T) {
	p := newPipeline(t)
	in := upload("")
	in.Title = "  "

	res, err := p.service().Ingest(context.Background(), in)
	require.NoError(t, err)

	var m models.Meeting
	require.NoError(t, p.db.Where("id = ?", res.MeetingID).Take(&m).Error)
	assert.Equal(t, DefaultTitle, m.Title)
	assert.Equal(t, DefaultMeetingType, m.MeetingType)
	assert.NotEmpty(t, res.RunID)
}

func TestIngest_ArchiveCopy(t *testing.T) {
	t.Run("stored path lands in cloud_path", func(t *testing.T) {
		p := newPipeline(t)
		up := &fakeUploader{}
		p.deps.Archive = up

		res, err := p.service().Ingest(context.Background(), upload("run-a"))
		require.NoError(t, err)

		assert.Contains(t, up.objects, "meetings/run-a/standup.mp3")
		var m models.Meeting
		require.NoError(t, p.db.Where("id = ?", res.MeetingID).Take(&m).Error)
		assert.Equal(t, "gs://test-bucket/meetings/run-a/standup.mp3", m.CloudPath)
		assert.Empty(t, p.tempFiles(t), "local copy removed even when archived")
	})

	t.Run("archive failure is not fatal", func(t *testing.T) {
		p := newPipeline(t)
		p.deps.Archive = &fakeUploader{err: errors.New("storage: bucket doesn't exist")}

		res, err := p.service().Ingest(context.Background(), upload(""))
		require.NoError(t, err)

		var m models.Meeting
		require.NoError(t, p.db.Where("id = ?", res.MeetingID).Take(&m).Error)
		assert.Empty(t, m.CloudPath)
	})
}

func TestIngest_NilAudioIsRejected(t *testing.T) {
	p := newPipeline(t)
	_, err := p.service().Ingest(context.Background(), IngestInput{FileName: "x.wav"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, utils.HTTPStatus(err))
	assert.Zero(t, p.stt.calls)
}

func TestIngest_PublishesStageProgress(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	msgs, cancel, err := p.broker.Subscribe(ctx, "run-events")
	require.NoError(t, err)
	defer cancel()

	res, err := p.service().Ingest(ctx, upload("run-events"))
	require.NoError(t, err)

	var events []progress.Event
	for len(msgs) > 0 {
		var ev progress.Event
		require.NoError(t, json.Unmarshal(<-msgs, &ev))
		events = append(events, ev)
	}
	require.NotEmpty(t, events)

	assert.Equal(t, progress.StatusProcessing, events[0].Status)
	last := events[len(events)-1]
	assert.Equal(t, progress.StatusDone, last.Status)
	assert.Equal(t, res.MeetingID, last.MeetingID)

	var stages []string
	for _, ev := range events {
		if ev.Stage != "" {
			stages = append(stages, ev.Stage)
		}
	}
	assert.Equal(t, []string{
		StageUpload, StageTranscribe, StageTone, StageSegmentTone, StageSummary,
		StagePersistMeeting, StagePersistTranscripts, StagePersistEmotions, StagePersistSummary, StagePersistTasks,
		StageCleanup,
	}, stages)
}

func TestIngest_CountsStageOutcomes(t *testing.T) {
	p := newPipeline(t)
	p.toneLLM.err = errors.New("boom")

	_, err := p.service().Ingest(context.Background(), upload(""))
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(p.registry, "minutes_pipeline_stage_total")
	require.NoError(t, err)
	assert.Equal(t, 11, n, "one series per stage/outcome pair seen")
}
