package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/paavan-1234/minutes-backend/internal/export"
	"github.com/paavan-1234/minutes-backend/internal/services"
	"github.com/paavan-1234/minutes-backend/internal/utils"
)

// multipart framing and the text fields ride on top of the file itself
const formOverhead = 1 << 20

type MeetingHandler struct {
	ingest   services.IngestionService
	meetings services.MeetingService
	maxBytes int64
}

func NewMeetingHandler(ingest services.IngestionService, meetings services.MeetingService, maxUploadMB int64) *MeetingHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 100
	}
	return &MeetingHandler{ingest: ingest, meetings: meetings, maxBytes: maxUploadMB << 20}
}

func (h *MeetingHandler) tooLarge(op string) error {
	return utils.E(utils.CodeInvalidArgument, op, fmt.Sprintf("audio file exceeds %d MB", h.maxBytes>>20), nil)
}

// Upload runs the ingestion pipeline on the multipart "audio" file.
func (h *MeetingHandler) Upload(c *gin.Context) {
	const op = "MeetingHandler.Upload"

	if c.Request.ContentLength > h.maxBytes+formOverhead {
		writeError(c, h.tooLarge(op))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+formOverhead)

	fh, err := c.FormFile("audio")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(c, h.tooLarge(op))
			return
		}
		writeError(c, utils.E(utils.CodeInvalidArgument, op, services.MsgNoAudio, nil))
		return
	}
	if fh.Size == 0 {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, services.MsgNoAudio, nil))
		return
	}
	if fh.Size > h.maxBytes {
		writeError(c, h.tooLarge(op))
		return
	}

	file, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to open upload", err))
		return
	}
	defer file.Close()

	audio, mimeType, err := sniffMime(file, fh)
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to read upload", err))
		return
	}

	runID := requestID(c)
	c.Header("X-Run-Id", runID)

	res, err := h.ingest.Ingest(c.Request.Context(), services.IngestInput{
		RunID:       runID,
		Audio:       audio,
		FileName:    fh.Filename,
		MimeType:    mimeType,
		Title:       c.PostForm("title"),
		MeetingType: c.PostForm("meetingType"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// sniffMime trusts the part header unless it is missing or generic, then falls
// back to content detection. The returned reader still yields the full file.
func sniffMime(file multipart.File, fh *multipart.FileHeader) (io.Reader, string, error) {
	declared := strings.TrimSpace(fh.Header.Get("Content-Type"))
	if declared != "" && declared != "application/octet-stream" {
		return file, declared, nil
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, "", err
	}
	head = head[:n]
	return io.MultiReader(bytes.NewReader(head), file), http.DetectContentType(head), nil
}

func (h *MeetingHandler) Get(c *gin.Context) {
	d, err := h.meetings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *MeetingHandler) List(c *gin.Context) {
	const op = "MeetingHandler.List"

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "limit must be a positive integer", nil))
			return
		}
		limit = n
	}
	rows, err := h.meetings.List(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meetings": rows})
}

// ExportTasks streams the meeting's tasks as an xlsx workbook.
func (h *MeetingHandler) ExportTasks(c *gin.Context) {
	const op = "MeetingHandler.ExportTasks"

	m, tasks, err := h.meetings.Tasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteTasks(&buf, tasks); err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to render workbook", err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.TasksFileName(m)))
	c.Data(http.StatusOK, export.XLSXContentType, buf.Bytes())
}
