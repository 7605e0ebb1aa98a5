package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/paavan-1234/minutes-backend/internal/api/middleware"
	"github.com/paavan-1234/minutes-backend/internal/models"
	"github.com/paavan-1234/minutes-backend/internal/progress"
	"github.com/paavan-1234/minutes-backend/internal/services"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fakeIngest struct {
	res   *services.IngestResult
	err   error
	got   services.IngestInput
	audio []byte
	calls int
}

func (f *fakeIngest) Ingest(_ context.Context, in services.IngestInput) (*services.IngestResult, error) {
	f.calls++
	f.got = in
	if in.Audio != nil {
		f.audio, _ = io.ReadAll(in.Audio)
	}
	if f.err != nil {
		return nil, f.err
	}
	res := *f.res
	res.RunID = in.RunID
	return &res, nil
}

type fakeMeetings struct {
	detail    *services.MeetingDetail
	rows      []models.Meeting
	meeting   *models.Meeting
	tasks     []models.Task
	err       error
	lastLimit int
}

func (f *fakeMeetings) Get(context.Context, string) (*services.MeetingDetail, error) {
	return f.detail, f.err
}

func (f *fakeMeetings) List(_ context.Context, limit int) ([]models.Meeting, error) {
	f.lastLimit = limit
	return f.rows, f.err
}

func (f *fakeMeetings) Tasks(context.Context, string) (*models.Meeting, []models.Task, error) {
	return f.meeting, f.tasks, f.err
}

type fakeRuns struct {
	run *models.IngestionRun
	err error
}

func (f *fakeRuns) Get(context.Context, string) (*models.IngestionRun, error) {
	return f.run, f.err
}

// fakeBroker hands every subscriber the same pre-filled feed.
type fakeBroker struct {
	feed [][]byte
}

func (b *fakeBroker) Publish(context.Context, progress.Event) error { return nil }

func (b *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, len(b.feed))
	for _, m := range b.feed {
		ch <- m
	}
	return ch, func() {}, nil
}

type fixture struct {
	ingest   *fakeIngest
	meetings *fakeMeetings
	runs     *fakeRuns
	broker   progress.Broker
	maxMB    int64
}

func newFixture() *fixture {
	return &fixture{
		ingest:   &fakeIngest{res: &services.IngestResult{MeetingID: "m-1", Transcript: "hello"}},
		meetings: &fakeMeetings{},
		runs:     &fakeRuns{},
	}
}

func (f *fixture) engine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)

	mh := NewMeetingHandler(f.ingest, f.meetings, f.maxMB)
	rh := NewRunHandler(f.runs, f.broker)

	r := gin.New()
	r.Use(middleware.RequestLogger(log))
	r.POST("/api/meetings/upload", mh.Upload)
	r.GET("/api/meetings", mh.List)
	r.GET("/api/meetings/:id", mh.Get)
	r.GET("/api/meetings/:id/tasks/export", mh.ExportTasks)
	r.GET("/api/runs/:run_id", rh.Get)
	r.GET("/ws/runs/:run_id", rh.RunWS)
	return r
}

func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	f.engine().ServeHTTP(w, req)
	return w
}

type part struct {
	field       string
	fileName    string
	contentType string
	body        []byte
}

func uploadRequest(t *testing.T, fields map[string]string, parts ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.fileName+`"`)
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(p.body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/meetings/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
