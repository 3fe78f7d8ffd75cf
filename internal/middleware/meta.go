package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smart-scheduler-api/pkg/middleware/requestid"
	"github.com/noah-isme/smart-scheduler-api/pkg/response"
)

const (
	responseMetaKey = "response_meta"
	startedAtKey    = "response_started_at"
)

// WithResponseMeta starts the clock and attaches the meta block read by ExtractMeta.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(startedAtKey, time.Now())
		c.Set(responseMetaKey, &response.Meta{RequestID: requestid.Value(c)})
		c.Next()
	}
}

// SetCacheHit records whether the response was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	ensureMeta(c).MarkCacheHit(hit)
}

// ExtractMeta returns the meta for the current response stamped with the
// elapsed processing time, or nil when WithResponseMeta is not installed.
func ExtractMeta(c *gin.Context) *response.Meta {
	if c == nil {
		return nil
	}
	value, exists := c.Get(responseMetaKey)
	if !exists {
		return nil
	}
	meta, ok := value.(*response.Meta)
	if !ok {
		return nil
	}
	if started, ok := c.Get(startedAtKey); ok {
		if t, ok := started.(time.Time); ok {
			meta.ProcessingTimeMs = time.Since(t).Milliseconds()
		}
	}
	return meta
}

func ensureMeta(c *gin.Context) *response.Meta {
	if value, exists := c.Get(responseMetaKey); exists {
		if meta, ok := value.(*response.Meta); ok {
			return meta
		}
	}
	meta := &response.Meta{}
	c.Set(responseMetaKey, meta)
	return meta
}
