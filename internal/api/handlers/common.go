package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/paavan-1234/minutes-backend/internal/utils"
)

// APIError is the error body. Details carries the underlying cause and is only
// sent for server-side failures.
type APIError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)

	body := APIError{Error: http.StatusText(status)}
	var ae *utils.AppError
	if errors.As(err, &ae) && ae.Message != "" {
		body.Error = ae.Message
	}
	if status >= http.StatusInternalServerError {
		body.Details = utils.Details(err)
	}

	c.AbortWithStatusJSON(status, body)
}

// requestID reuses the id assigned by the request logger so logs, run records and
// progress events share one key.
func requestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return uuid.NewString()
}
