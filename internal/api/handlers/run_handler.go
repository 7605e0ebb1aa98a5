package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/paavan-1234/minutes-backend/internal/progress"
	"github.com/paavan-1234/minutes-backend/internal/services"
	"github.com/paavan-1234/minutes-backend/internal/utils"
)

type RunHandler struct {
	runs     services.RunService
	broker   progress.Broker // nil disables the websocket feed
	upgrader websocket.Upgrader
}

func NewRunHandler(runs services.RunService, broker progress.Broker) *RunHandler {
	return &RunHandler{
		runs:   runs,
		broker: broker,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *RunHandler) Get(c *gin.Context) {
	run, err := h.runs.Get(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"),
		time.Now().Add(time.Second))
}

// RunWS forwards progress events of one run to a websocket client until the run
// reaches a final status or the client goes away.
func (h *RunHandler) RunWS(c *gin.Context) {
	const op = "RunHandler.RunWS"

	runID := c.Param("run_id")
	if runID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing run_id", nil))
		return
	}
	if h.broker == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "progress events are not enabled", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	msgs, unsubscribe, err := h.broker.Subscribe(ctx, runID)
	if err != nil {
		_ = wc.writeText([]byte(`{"type":"error","message":"failed to subscribe"}`))
		return
	}
	defer unsubscribe()

	// reader: only used to notice the client leaving
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			if err := wc.writeText(m); err != nil {
				return
			}
			if isFinal(m) {
				wc.close()
				return
			}
		}
	}
}

func isFinal(payload []byte) bool {
	var ev struct {
		Stage  string `json:"stage"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(payload, &ev); err != nil {
		return false
	}
	return ev.Stage == "" && (ev.Status == progress.StatusDone || ev.Status == progress.StatusFailed)
}
