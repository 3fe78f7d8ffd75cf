package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smart-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/smart-scheduler-api/pkg/errors"
)

// Meta carries per-request details next to the payload.
type Meta struct {
	RequestID        string `json:"request_id,omitempty"`
	CacheHit         *bool  `json:"cache_hit,omitempty"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

// MarkCacheHit records whether the payload came from the cache.
func (m *Meta) MarkCacheHit(hit bool) {
	if m == nil {
		return
	}
	m.CacheHit = &hit
}

// Envelope is the body of every JSON response: either data or error is set.
type Envelope struct {
	Data       interface{}        `json:"data,omitempty"`
	Error      *appErrors.Error   `json:"error,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
	Meta       *Meta              `json:"meta,omitempty"`
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// JSON writes data with optional pagination and request meta.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta *Meta) {
	noStore(c)
	c.JSON(status, Envelope{Data: data, Pagination: pagination, Meta: meta})
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil, nil)
}

// Accepted responds with HTTP 202 for work queued in the background.
func Accepted(c *gin.Context, data interface{}) {
	JSON(c, http.StatusAccepted, data, nil, nil)
}

// Error maps err onto its application error and writes it. Server faults are
// attached to the context so the logging middleware records the cause.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	noStore(c)
	c.JSON(appErr.Status, Envelope{Error: appErr})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
