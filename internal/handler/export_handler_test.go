package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-scheduler-api/internal/dto"
	"github.com/noah-isme/smart-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/smart-scheduler-api/pkg/errors"
)

type exportServiceMock struct {
	request  dto.CreateExportRequest
	session  string
	download *service.Download
	err      error
}

func (m *exportServiceMock) Request(ctx context.Context, sessionID string, req dto.CreateExportRequest) (*dto.ExportJobResponse, error) {
	m.session = sessionID
	m.request = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ExportJobResponse{ID: "job-1", SessionID: sessionID, Format: req.Format, Status: string(service.ExportStatusQueued)}, nil
}

func (m *exportServiceMock) Status(ctx context.Context, id string) (*dto.ExportJobResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ExportJobResponse{ID: id, Status: string(service.ExportStatusFinished), DownloadURL: "/api/v1/exports/download?token=abc"}, nil
}

func (m *exportServiceMock) Open(token string) (*service.Download, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.download, nil
}

func exportRouter(h *ExportHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/planner/sessions/:id/exports", h.Create)
	router.GET("/exports/download", h.Download)
	router.GET("/exports/:jobId", h.Status)
	return router
}

func TestExportHandlerCreateAndStatus(t *testing.T) {
	mock := &exportServiceMock{}
	router := exportRouter(NewExportHandler(mock))

	w := doRequest(router, http.MethodPost, "/planner/sessions/s1/exports", []byte(`{"format":"ics","weeks":10}`))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, "s1", mock.session)
	assert.Equal(t, dto.CreateExportRequest{Format: "ics", Weeks: 10}, mock.request)

	w = doRequest(router, http.MethodGet, "/exports/job-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "downloadUrl")

	mock.err = appErrors.Clone(appErrors.ErrPreconditionFailed, "session has no active schedule")
	w = doRequest(router, http.MethodPost, "/planner/sessions/s1/exports", []byte(`{"format":"pdf"}`))
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestExportHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.csv")
	require.NoError(t, os.WriteFile(path, []byte("course_id\nCS 101\n"), 0o600))
	file, err := os.Open(path)
	require.NoError(t, err)

	mock := &exportServiceMock{download: &service.Download{File: file, Filename: "schedule.csv", ContentType: "text/csv"}}
	router := exportRouter(NewExportHandler(mock))

	w := doRequest(router, http.MethodGet, "/exports/download?token=abc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="schedule.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "course_id\nCS 101\n", w.Body.String())

	w = doRequest(router, http.MethodGet, "/exports/download", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mock.err = appErrors.Clone(appErrors.ErrForbidden, "download link expired")
	w = doRequest(router, http.MethodGet, "/exports/download?token=old", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestExportHandlerDisabled(t *testing.T) {
	router := exportRouter(NewExportHandler(nil))
	w := doRequest(router, http.MethodGet, "/exports/job-1", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
