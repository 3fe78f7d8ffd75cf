package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-scheduler-api/internal/service"
)

func TestMetricsHandlerEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.ObserveGeneration("full", 4, 20*time.Millisecond)

	healthy := true
	h := NewMetricsHandler(metrics, map[string]ReadinessCheck{
		"database": func(context.Context) error { return nil },
		"redis": func(context.Context) error {
			if healthy {
				return nil
			}
			return errors.New("connection refused")
		},
	})
	router := gin.New()
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	router.GET("/metrics", h.Prometheus)
	router.GET("/metrics/summary", h.Summary)

	w := doRequest(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	healthy = false
	w = doRequest(router, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")

	w = doRequest(router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "planner_generation_duration_seconds")

	w = doRequest(router, http.MethodGet, "/metrics/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"generations":1`)
}

func TestMetricsHandlerWithoutService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewMetricsHandler(nil, nil)
	router.GET("/metrics", h.Prometheus)
	w := doRequest(router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
