package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-scheduler-api/internal/dto"
	"github.com/noah-isme/smart-scheduler-api/internal/models"
	"github.com/noah-isme/smart-scheduler-api/internal/planner"
	appErrors "github.com/noah-isme/smart-scheduler-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, term int, id string) (*models.Course, error)
	Upsert(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, term int, id string) error
	Terms(ctx context.Context) ([]int, error)
}

// CatalogService exposes the course catalog and accepts records from the ingestion client.
type CatalogService struct {
	repo      courseRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(repo courseRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, cache: cache, validator: validate, logger: logger, now: time.Now}
}

// Terms lists the selectable terms: the upcoming term and the three before it.
func (s *CatalogService) Terms(ctx context.Context) ([]dto.TermResponse, error) {
	stored, err := s.repo.Terms(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list catalog terms")
	}
	available := make(map[int]struct{}, len(stored))
	for _, code := range stored {
		available[code] = struct{}{}
	}

	terms := planner.DisplayTerms(s.now())
	resp := make([]dto.TermResponse, 0, len(terms))
	for i, term := range terms {
		_, ok := available[term.Code()]
		resp = append(resp, dto.TermResponse{
			Code:      term.Code(),
			Label:     term.Label(),
			Year:      term.Year,
			Season:    string(term.Season),
			Upcoming:  i == 0,
			Available: ok,
		})
	}
	return resp, nil
}

// Search returns course summaries matching the query.
func (s *CatalogService) Search(ctx context.Context, query dto.CourseQuery) ([]models.Course, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course query")
	}
	page := models.Pagination{Page: query.Page, PageSize: query.PageSize}
	page.Normalize(20, 100)

	courses, total, err := s.repo.List(ctx, models.CourseFilter{
		Term:     query.Term,
		Query:    strings.TrimSpace(query.Query),
		Page:     page.Page,
		PageSize: page.PageSize,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search courses")
	}
	page.TotalCount = total
	return courses, &page, nil
}

// FindByID returns a course with all of its sections, served from cache when possible.
// A missing course yields sql.ErrNoRows.
func (s *CatalogService) FindByID(ctx context.Context, term int, id string) (*models.Course, error) {
	course, _, err := s.lookup(ctx, term, id)
	return course, err
}

// Get returns a course or a NOT_FOUND error, reporting whether it came from cache.
func (s *CatalogService) Get(ctx context.Context, term int, id string) (*models.Course, bool, error) {
	course, hit, err := s.lookup(ctx, term, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, hit, nil
}

func (s *CatalogService) lookup(ctx context.Context, term int, id string) (*models.Course, bool, error) {
	key := courseCacheKey(term, id)
	var cached models.Course
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	course, err := s.repo.FindByID(ctx, term, id)
	if err != nil {
		return nil, false, err
	}
	_ = s.cache.Set(ctx, key, course, 0)
	return course, false, nil
}

// Import validates and stores a batch of courses for one term, bumping each revision.
func (s *CatalogService) Import(ctx context.Context, req dto.ImportCoursesRequest) (*dto.ImportCoursesResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course import payload")
	}
	if _, err := planner.ParseTermCode(req.Term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown term code")
	}
	if err := ValidateCourses(req.Courses); err != nil {
		return nil, err
	}

	resp := &dto.ImportCoursesResponse{Term: req.Term, Revisions: make(map[string]int64, len(req.Courses))}
	for i := range req.Courses {
		course := req.Courses[i]
		course.Term = req.Term
		if err := s.repo.Upsert(ctx, &course); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to store course %s", course.ID))
		}
		resp.Revisions[course.ID] = course.Revision
		resp.Imported++
	}

	s.invalidate(ctx, req.Term)
	s.logger.Info("catalog courses imported", zap.Int("term", req.Term), zap.Int("courses", resp.Imported))
	return resp, nil
}

// Delete removes a course from the catalog.
func (s *CatalogService) Delete(ctx context.Context, term int, id string) error {
	if err := s.repo.Delete(ctx, term, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.invalidate(ctx, term)
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context, term int) {
	for _, pattern := range []string{fmt.Sprintf("course:%d:*", term), PermutationPattern(term)} {
		if err := s.cache.Invalidate(ctx, pattern); err != nil {
			s.logger.Warn("catalog cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}

func courseCacheKey(term int, id string) string {
	return fmt.Sprintf("course:%d:%s", term, id)
}

// ValidateCourses checks catalog rules that struct tags cannot express: course ids and
// section numbers are unique, and every section is filed under its own type code.
func ValidateCourses(courses []models.Course) error {
	courseIDs := make(map[string]struct{}, len(courses))
	sectionOwners := make(map[int]string)
	for _, course := range courses {
		if _, dup := courseIDs[course.ID]; dup {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("course %s appears more than once", course.ID))
		}
		courseIDs[course.ID] = struct{}{}

		for code, sections := range course.Sections {
			for _, section := range sections {
				if section.Type != "" && section.Type != code {
					return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("section %d of %s has type %s but is listed under %s", section.SectionNumber, course.ID, section.Type, code))
				}
				if owner, dup := sectionOwners[section.SectionNumber]; dup {
					return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("section number %d is used by both %s and %s", section.SectionNumber, owner, course.ID))
				}
				sectionOwners[section.SectionNumber] = course.ID
			}
		}
	}
	return nil
}
