package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestLimiterAllowsBurstThenRejects(t *testing.T) {
	l := New(1, 2)
	base := time.Now()
	l.now = func() time.Time { return base }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))

	l.now = func() time.Time { return base.Add(time.Second) }
	assert.True(t, l.Allow("a"))
}

func TestLimiterMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := New(1, 1)
	router := gin.New()
	router.Use(l.Middleware(nil))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
}
