package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-scheduler-api/internal/dto"
	"github.com/noah-isme/smart-scheduler-api/internal/models"
	"github.com/noah-isme/smart-scheduler-api/internal/planner"
	appErrors "github.com/noah-isme/smart-scheduler-api/pkg/errors"
	"github.com/noah-isme/smart-scheduler-api/pkg/export"
	"github.com/noah-isme/smart-scheduler-api/pkg/jobs"
	"github.com/noah-isme/smart-scheduler-api/pkg/storage"
)

// JobTypeRenderSchedule renders a schedule snapshot to a file.
const JobTypeRenderSchedule = "render_schedule"

// ExportStatus tracks an export job through the queue.
type ExportStatus string

const (
	ExportStatusQueued   ExportStatus = "QUEUED"
	ExportStatusRunning  ExportStatus = "RUNNING"
	ExportStatusFinished ExportStatus = "FINISHED"
	ExportStatusFailed   ExportStatus = "FAILED"
)

type sessionSnapshotter interface {
	Snapshot(ctx context.Context, id string) (*SessionSnapshot, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

type exportJob struct {
	id         string
	sessionID  string
	format     export.Format
	status     ExportStatus
	err        string
	path       string
	token      string
	expiresAt  time.Time
	createdAt  time.Time
	finishedAt time.Time
	document   export.Document
}

// Download is an export file ready to stream.
type Download struct {
	File        *os.File
	Filename    string
	ContentType string
}

// ExportService renders session schedules in the background and serves signed downloads.
type ExportService struct {
	sessions  sessionSnapshotter
	queue     jobEnqueuer
	storage   fileStorage
	signer    *storage.SignedURLSigner
	renderers map[export.Format]export.Renderer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig

	mu   sync.RWMutex
	jobs map[string]*exportJob
}

// NewExportService constructs an ExportService with every built-in renderer.
func NewExportService(sessions sessionSnapshotter, queue jobEnqueuer, store fileStorage, signer *storage.SignedURLSigner, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ExportConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &ExportService{
		sessions: sessions,
		queue:    queue,
		storage:  store,
		signer:   signer,
		renderers: map[export.Format]export.Renderer{
			export.FormatPDF:  export.NewPDFExporter(),
			export.FormatICS:  export.NewICSExporter(),
			export.FormatXLSX: export.NewXLSXExporter(),
			export.FormatCSV:  export.NewCSVExporter(),
		},
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		jobs:      make(map[string]*exportJob),
	}
}

// Request snapshots the session's active schedule and queues it for rendering.
func (s *ExportService) Request(ctx context.Context, sessionID string, req dto.CreateExportRequest) (*dto.ExportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	snapshot, err := s.sessions.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	doc, err := BuildDocument(snapshot, req)
	if err != nil {
		return nil, err
	}

	job := &exportJob{
		id:        uuid.NewString(),
		sessionID: sessionID,
		format:    export.Format(req.Format),
		status:    ExportStatusQueued,
		createdAt: time.Now().UTC(),
		document:  doc,
	}
	s.mu.Lock()
	s.jobs[job.id] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.id, Type: JobTypeRenderSchedule, Payload: job.id}); err != nil {
		s.finish(job.id, "", "", time.Time{}, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export")
	}

	s.logger.Info("schedule export queued", zap.String("job_id", job.id), zap.String("session_id", sessionID), zap.String("format", req.Format))
	return s.Status(ctx, job.id)
}

// Process is the queue handler that renders and stores one export.
func (s *ExportService) Process(ctx context.Context, job jobs.Job) error {
	id, _ := job.Payload.(string)
	s.mu.Lock()
	record, ok := s.jobs[id]
	var (
		format    export.Format
		sessionID string
		doc       export.Document
	)
	if ok {
		record.status = ExportStatusRunning
		format, sessionID, doc = record.format, record.sessionID, record.document
	}
	s.mu.Unlock()
	if !ok {
		return jobs.Permanent(fmt.Errorf("export job %s not found", id))
	}

	renderer, ok := s.renderers[format]
	if !ok {
		return jobs.Permanent(fmt.Errorf("unsupported export format %s", format))
	}
	payload, err := renderer.Render(doc)
	if err != nil {
		return fmt.Errorf("render %s export: %w", format, err)
	}

	filename := fmt.Sprintf("%s/schedule_%s.%s", sessionID, time.Now().UTC().Format("20060102_150405"), renderer.Extension())
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return fmt.Errorf("store export: %w", err)
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return fmt.Errorf("sign export: %w", err)
	}

	s.finish(id, relPath, token, expiresAt, nil)
	s.logger.Info("schedule export finished", zap.String("job_id", id), zap.String("format", string(format)), zap.Int("bytes", len(payload)))
	return nil
}

// MarkFailed records a job that exhausted its retries.
func (s *ExportService) MarkFailed(job jobs.Job, err error) {
	id, _ := job.Payload.(string)
	s.finish(id, "", "", time.Time{}, err)
	s.logger.Error("schedule export failed", zap.String("job_id", id), zap.Int("attempt", job.Attempt), zap.Error(err))
}

func (s *ExportService) finish(id, relPath, token string, expiresAt time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.jobs[id]
	if !ok {
		return
	}
	record.finishedAt = time.Now().UTC()
	record.document = export.Document{}
	if err != nil {
		record.status = ExportStatusFailed
		record.err = err.Error()
	} else {
		record.status = ExportStatusFinished
		record.path = relPath
		record.token = token
		record.expiresAt = expiresAt
	}
	s.metrics.RecordExportJob(string(record.format), string(record.status))
}

// Status reports the state of an export job.
func (s *ExportService) Status(ctx context.Context, id string) (*dto.ExportJobResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.jobs[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}

	resp := &dto.ExportJobResponse{
		ID:        record.id,
		SessionID: record.sessionID,
		Format:    string(record.format),
		Status:    string(record.status),
		Error:     record.err,
		CreatedAt: record.createdAt,
	}
	if !record.finishedAt.IsZero() {
		finished := record.finishedAt
		resp.FinishedAt = &finished
	}
	if record.status == ExportStatusFinished {
		expires := record.expiresAt
		resp.ExpiresAt = &expires
		resp.DownloadURL = fmt.Sprintf("%s/exports/download?token=%s", strings.TrimRight(s.cfg.APIPrefix, "/"), record.token)
	}
	return resp, nil
}

// Open validates a download token and opens the referenced file.
func (s *ExportService) Open(token string) (*Download, error) {
	signed, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download token")
	}

	s.mu.RLock()
	record, ok := s.jobs[signed.Subject]
	s.mu.RUnlock()

	file, err := s.storage.Open(signed.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}

	download := &Download{File: file, Filename: "schedule" + path.Ext(signed.Path), ContentType: "application/octet-stream"}
	if ok {
		if renderer, found := s.renderers[record.format]; found {
			download.ContentType = renderer.ContentType()
		}
	}
	return download, nil
}

// Cleanup removes stored files and job records older than ttl (the configured
// ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	removed, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().Add(-ttl)
	s.mu.Lock()
	for id, record := range s.jobs {
		if !record.finishedAt.IsZero() && record.finishedAt.Before(cutoff) {
			delete(s.jobs, id)
		}
	}
	s.mu.Unlock()
	return removed, nil
}

// BuildDocument converts a session snapshot into a renderer-agnostic document.
func BuildDocument(snapshot *SessionSnapshot, req dto.CreateExportRequest) (export.Document, error) {
	loc := time.UTC
	if req.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(req.Timezone); err != nil {
			return export.Document{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown timezone")
		}
	}

	doc := export.Document{
		Title:     "Class Schedule",
		TermLabel: fmt.Sprintf("%d", snapshot.Term),
		Weeks:     req.Weeks,
		Location:  loc,
		Generated: time.Now().UTC(),
	}
	if term, err := planner.ParseTermCode(snapshot.Term); err == nil {
		doc.TermLabel = term.Label()
		doc.Title = term.Label() + " Schedule"
		doc.TermStart = term.StartDate(loc)
	}
	if req.TermStart != "" {
		start, err := time.ParseInLocation("2006-01-02", req.TermStart, loc)
		if err != nil {
			return export.Document{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid term start date")
		}
		doc.TermStart = start
	}
	doc.MinCredits, doc.MaxCredits = snapshot.Active.CreditRange()

	courses := make(map[string]models.Course, len(snapshot.Courses))
	for _, course := range snapshot.Courses {
		courses[course.ID] = course
	}
	entry := func(section models.Section) export.Entry {
		course := courses[section.ClassID]
		return export.Entry{
			CourseID:      section.ClassID,
			CourseName:    course.Name,
			SectionNumber: section.SectionNumber,
			Type:          section.Type,
			Instructor:    section.Instructor,
			Location:      section.Location,
			Color:         course.Color,
		}
	}
	for _, section := range snapshot.Active.Meetings() {
		for _, t := range section.Times {
			if !t.Scheduled() {
				continue
			}
			e := entry(section)
			e.Day, e.Start, e.End = t.Day, t.StartTime, t.EndTime
			doc.Entries = append(doc.Entries, e)
		}
	}
	for _, section := range snapshot.Active.Unscheduled() {
		e := entry(section)
		e.Unscheduled = true
		doc.Entries = append(doc.Entries, e)
	}
	return doc, nil
}
