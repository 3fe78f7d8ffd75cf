package service

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-scheduler-api/internal/dto"
	"github.com/noah-isme/smart-scheduler-api/internal/models"
	"github.com/noah-isme/smart-scheduler-api/internal/planner"
	appErrors "github.com/noah-isme/smart-scheduler-api/pkg/errors"
	"github.com/noah-isme/smart-scheduler-api/pkg/jobs"
	"github.com/noah-isme/smart-scheduler-api/pkg/storage"
)

type snapshotStub struct {
	snapshot *SessionSnapshot
	err      error
}

func (s snapshotStub) Snapshot(context.Context, string) (*SessionSnapshot, error) {
	return s.snapshot, s.err
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func exportSnapshot() *SessionSnapshot {
	catalog := plannerCatalog()
	cs := catalog["CS 101"]
	cs.Color = planner.CoursePalette[0]
	online := models.Section{SectionNumber: 40, ClassID: "ENG 110", Type: "LEC", Location: models.LocationOnline, MinCredits: 3, MaxCredits: 3, OpenSeats: 5}
	eng := models.Course{ID: "ENG 110", Name: "Composition", Color: planner.CoursePalette[1],
		Sections: map[string][]models.Section{"LEC": {online}}}
	return &SessionSnapshot{
		SessionID: "session-1",
		Term:      testTerm,
		Courses:   []models.Course{cs, eng},
		Active:    planner.Schedule{cs.Sections["LEC"][0], cs.Sections["LAB"][0], online},
	}
}

func newExportServiceForTest(t *testing.T, snapshots sessionSnapshotter, queue jobEnqueuer) (*ExportService, *MetricsService) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	metrics := NewMetricsService()
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewExportService(snapshots, queue, store, signer, metrics, nil, zap.NewNop(), ExportConfig{APIPrefix: "/api/v1/"})
	return svc, metrics
}

func tokenFromURL(t *testing.T, raw string) string {
	t.Helper()
	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	return parsed.Query().Get("token")
}

func TestExportServiceRequestAndProcess(t *testing.T) {
	for _, format := range []string{"pdf", "ics", "xlsx", "csv"} {
		t.Run(format, func(t *testing.T) {
			queue := &queueStub{}
			svc, _ := newExportServiceForTest(t, snapshotStub{snapshot: exportSnapshot()}, queue)

			job, err := svc.Request(context.Background(), "session-1", dto.CreateExportRequest{Format: format})
			require.NoError(t, err)
			assert.Equal(t, string(ExportStatusQueued), job.Status)
			require.Len(t, queue.jobs, 1)
			assert.Equal(t, JobTypeRenderSchedule, queue.jobs[0].Type)

			require.NoError(t, svc.Process(context.Background(), queue.jobs[0]))

			status, err := svc.Status(context.Background(), job.ID)
			require.NoError(t, err)
			assert.Equal(t, string(ExportStatusFinished), status.Status)
			require.NotNil(t, status.FinishedAt)
			assert.True(t, strings.HasPrefix(status.DownloadURL, "/api/v1/exports/download?token="))

			download, err := svc.Open(tokenFromURL(t, status.DownloadURL))
			require.NoError(t, err)
			defer download.File.Close() //nolint:errcheck
			assert.Equal(t, "schedule."+format, download.Filename)
			assert.NotEqual(t, "application/octet-stream", download.ContentType)
			body, err := io.ReadAll(download.File)
			require.NoError(t, err)
			assert.NotEmpty(t, body)
		})
	}
}

func TestExportServiceRequestErrors(t *testing.T) {
	svc, _ := newExportServiceForTest(t, snapshotStub{snapshot: exportSnapshot()}, &queueStub{})
	_, err := svc.Request(context.Background(), "session-1", dto.CreateExportRequest{Format: "docx"})
	assertAppError(t, err, appErrors.ErrValidation.Code)

	_, err = svc.Request(context.Background(), "session-1", dto.CreateExportRequest{Format: "pdf", TermStart: "12/01/2026"})
	assertAppError(t, err, appErrors.ErrValidation.Code)

	svc, _ = newExportServiceForTest(t, snapshotStub{err: appErrors.Clone(appErrors.ErrPreconditionFailed, "session has no active schedule")}, &queueStub{})
	_, err = svc.Request(context.Background(), "session-1", dto.CreateExportRequest{Format: "pdf"})
	assertAppError(t, err, appErrors.ErrPreconditionFailed.Code)

	svc, _ = newExportServiceForTest(t, snapshotStub{snapshot: exportSnapshot()}, &queueStub{err: errors.New("queue full")})
	_, err = svc.Request(context.Background(), "session-1", dto.CreateExportRequest{Format: "csv"})
	assertAppError(t, err, appErrors.ErrInternal.Code)
	assert.Len(t, svc.jobs, 1)
	for _, record := range svc.jobs {
		assert.Equal(t, ExportStatusFailed, record.status)
	}
}

func TestExportServiceMarkFailed(t *testing.T) {
	queue := &queueStub{}
	svc, _ := newExportServiceForTest(t, snapshotStub{snapshot: exportSnapshot()}, queue)
	job, err := svc.Request(context.Background(), "session-1", dto.CreateExportRequest{Format: "pdf"})
	require.NoError(t, err)

	svc.MarkFailed(queue.jobs[0], errors.New("disk full"))
	status, err := svc.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, string(ExportStatusFailed), status.Status)
	assert.Equal(t, "disk full", status.Error)
	assert.Empty(t, status.DownloadURL)

	_, err = svc.Status(context.Background(), "unknown")
	assertAppError(t, err, appErrors.ErrNotFound.Code)
	err = svc.Process(context.Background(), jobs.Job{Payload: "unknown"})
	assert.True(t, jobs.IsPermanent(err))
}

func TestExportServiceOpenRejectsBadTokens(t *testing.T) {
	svc, _ := newExportServiceForTest(t, snapshotStub{snapshot: exportSnapshot()}, &queueStub{})

	_, err := svc.Open("garbage")
	assertAppError(t, err, appErrors.ErrForbidden.Code)

	token, _, err := svc.signer.Generate("job-1", "session-1/missing.pdf")
	require.NoError(t, err)
	_, err = svc.Open(token)
	assertAppError(t, err, appErrors.ErrNotFound.Code)
}

func TestExportServiceWithQueue(t *testing.T) {
	queue := jobs.NewQueue("exports-test", jobs.QueueConfig{Workers: 1, RetryDelay: 10 * time.Millisecond})
	svc, _ := newExportServiceForTest(t, snapshotStub{snapshot: exportSnapshot()}, queue)
	queue.Register(JobTypeRenderSchedule, svc.Process)
	queue.Start(context.Background())
	defer queue.Stop()

	job, err := svc.Request(context.Background(), "session-1", dto.CreateExportRequest{Format: "csv"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		status, err := svc.Status(context.Background(), job.ID)
		return err == nil && status.Status == string(ExportStatusFinished)
	}, 2*time.Second, 10*time.Millisecond)

	removed, err := svc.Cleanup(time.Nanosecond)
	require.NoError(t, err)
	assert.Len(t, removed, 1)
}

func TestBuildDocument(t *testing.T) {
	doc, err := BuildDocument(exportSnapshot(), dto.CreateExportRequest{Format: "ics", Weeks: 12, Timezone: "America/Chicago"})
	require.NoError(t, err)
	assert.Equal(t, "Spring 2026 Schedule", doc.Title)
	assert.Equal(t, 12, doc.Weeks)
	assert.Equal(t, "America/Chicago", doc.Location.String())
	assert.Equal(t, time.January, doc.TermStart.Month())
	assert.Equal(t, 12, doc.TermStart.Day())
	assert.Equal(t, 6, doc.MinCredits)

	meetings := doc.Meetings()
	require.Len(t, meetings, 2)
	assert.Equal(t, "Intro to Programming", meetings[0].CourseName)
	assert.Equal(t, planner.CoursePalette[0], meetings[0].Color)
	assert.Equal(t, 108, meetings[0].Start)

	unscheduled := doc.Unscheduled()
	require.Len(t, unscheduled, 1)
	assert.Equal(t, "Composition", unscheduled[0].CourseName)

	doc, err = BuildDocument(exportSnapshot(), dto.CreateExportRequest{Format: "ics", TermStart: "2026-01-20"})
	require.NoError(t, err)
	assert.Equal(t, 20, doc.TermStart.Day())

	_, err = BuildDocument(exportSnapshot(), dto.CreateExportRequest{Format: "ics", Timezone: "Mars/Olympus"})
	assertAppError(t, err, appErrors.ErrValidation.Code)
}
