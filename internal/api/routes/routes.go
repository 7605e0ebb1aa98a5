package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paavan-1234/minutes-backend/internal/api/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Meetings *handlers.MeetingHandler
	Runs     *handlers.RunHandler
	Gatherer prometheus.Gatherer // nil hides /metrics
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.POST("/meetings/upload", d.Meetings.Upload)
	api.GET("/meetings", d.Meetings.List)
	api.GET("/meetings/:id", d.Meetings.Get)
	api.GET("/meetings/:id/tasks/export", d.Meetings.ExportTasks)
	api.GET("/runs/:run_id", d.Runs.Get)

	// WebSocket
	r.GET("/ws/runs/:run_id", d.Runs.RunWS)
}
