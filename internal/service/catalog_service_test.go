package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-scheduler-api/internal/dto"
	"github.com/noah-isme/smart-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/smart-scheduler-api/pkg/errors"
)

type courseRepoStub struct {
	courses   map[string]models.Course
	terms     []int
	finds     int
	upserted  []models.Course
	listErr   error
	lastQuery models.CourseFilter
}

func newCourseRepoStub() *courseRepoStub {
	return &courseRepoStub{courses: plannerCatalog(), terms: []int{testTerm}}
}

func (s *courseRepoStub) List(_ context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	s.lastQuery = filter
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	return []models.Course{{ID: "CS 101", Name: "Intro to Programming", Term: filter.Term}}, 41, nil
}

func (s *courseRepoStub) FindByID(_ context.Context, term int, id string) (*models.Course, error) {
	s.finds++
	course, ok := s.courses[id]
	if !ok || course.Term != term {
		return nil, sql.ErrNoRows
	}
	return &course, nil
}

func (s *courseRepoStub) Upsert(_ context.Context, course *models.Course) error {
	course.Revision = int64(len(s.upserted) + 1)
	s.upserted = append(s.upserted, *course)
	return nil
}

func (s *courseRepoStub) Delete(_ context.Context, term int, id string) error {
	if _, ok := s.courses[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.courses, id)
	return nil
}

func (s *courseRepoStub) Terms(context.Context) ([]int, error) {
	return s.terms, nil
}

func TestCatalogServiceTerms(t *testing.T) {
	svc := NewCatalogService(newCourseRepoStub(), nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC) }

	terms, err := svc.Terms(context.Background())
	require.NoError(t, err)
	require.Len(t, terms, 4)
	assert.Equal(t, 4262, terms[0].Code)
	assert.Equal(t, "Spring 2026", terms[0].Label)
	assert.True(t, terms[0].Upcoming)
	assert.True(t, terms[0].Available)
	assert.Equal(t, []int{4262, 4259, 4256, 4252}, []int{terms[0].Code, terms[1].Code, terms[2].Code, terms[3].Code})
	assert.False(t, terms[1].Available)
}

func TestCatalogServiceSearch(t *testing.T) {
	repo := newCourseRepoStub()
	svc := NewCatalogService(repo, nil, nil, nil)

	courses, page, err := svc.Search(context.Background(), dto.CourseQuery{Term: testTerm, Query: "  cs ", PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, courses, 1)
	assert.Equal(t, 41, page.TotalCount)
	assert.Equal(t, 100, page.PageSize)
	assert.Equal(t, "cs", repo.lastQuery.Query)

	_, _, err = svc.Search(context.Background(), dto.CourseQuery{})
	assertAppError(t, err, appErrors.ErrValidation.Code)

	repo.listErr = errors.New("timeout")
	_, _, err = svc.Search(context.Background(), dto.CourseQuery{Term: testTerm})
	assertAppError(t, err, appErrors.ErrInternal.Code)
}

func TestCatalogServiceGetUsesCache(t *testing.T) {
	repo := newCourseRepoStub()
	cacheRepo := newMemoryCacheRepo()
	svc := NewCatalogService(repo, NewCacheService(cacheRepo, nil, time.Minute, nil, true), nil, nil)

	course, hit, err := svc.Get(context.Background(), testTerm, "CS 101")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 4, course.SectionCount())

	course, hit, err = svc.Get(context.Background(), testTerm, "CS 101")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Intro to Programming", course.Name)
	assert.Equal(t, 1, repo.finds)

	_, _, err = svc.Get(context.Background(), testTerm, "BIO 999")
	assertAppError(t, err, appErrors.ErrNotFound.Code)
}

func TestCatalogServiceImport(t *testing.T) {
	repo := newCourseRepoStub()
	cacheRepo := newMemoryCacheRepo()
	svc := NewCatalogService(repo, NewCacheService(cacheRepo, nil, time.Minute, nil, true), nil, nil)
	catalog := plannerCatalog()

	resp, err := svc.Import(context.Background(), dto.ImportCoursesRequest{
		Term:    4269,
		Courses: []models.Course{catalog["CS 101"], catalog["MATH 201"]},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Imported)
	assert.Equal(t, map[string]int64{"CS 101": 1, "MATH 201": 2}, resp.Revisions)
	assert.Equal(t, 4269, repo.upserted[0].Term)
	assert.ElementsMatch(t, []string{"course:4269:*", "permutations:4269:*"}, cacheRepo.deleted)
}

func TestCatalogServiceImportValidation(t *testing.T) {
	svc := NewCatalogService(newCourseRepoStub(), nil, nil, nil)
	catalog := plannerCatalog()
	cs := catalog["CS 101"]

	_, err := svc.Import(context.Background(), dto.ImportCoursesRequest{Term: 4262})
	assertAppError(t, err, appErrors.ErrValidation.Code)

	_, err = svc.Import(context.Background(), dto.ImportCoursesRequest{Term: 4264, Courses: []models.Course{cs}})
	assertAppError(t, err, appErrors.ErrValidation.Code)

	_, err = svc.Import(context.Background(), dto.ImportCoursesRequest{Term: 4262, Courses: []models.Course{cs, cs}})
	assertAppError(t, err, appErrors.ErrValidation.Code)

	clash := catalog["MATH 201"]
	clash.Sections = map[string][]models.Section{"LEC": {catalogSection("MATH 201", 1, "LEC", 5)}}
	_, err = svc.Import(context.Background(), dto.ImportCoursesRequest{Term: 4262, Courses: []models.Course{cs, clash}})
	assertAppError(t, err, appErrors.ErrValidation.Code)

	misfiled := catalog["MATH 201"]
	misfiled.Sections = map[string][]models.Section{"LAB": {catalogSection("MATH 201", 12, "LEC", 5)}}
	_, err = svc.Import(context.Background(), dto.ImportCoursesRequest{Term: 4262, Courses: []models.Course{misfiled}})
	assertAppError(t, err, appErrors.ErrValidation.Code)

	badTime := catalog["MATH 201"]
	bad := catalogSection("MATH 201", 13, "LEC", 9)
	badTime.Sections = map[string][]models.Section{"LEC": {bad}}
	_, err = svc.Import(context.Background(), dto.ImportCoursesRequest{Term: 4262, Courses: []models.Course{badTime}})
	assertAppError(t, err, appErrors.ErrValidation.Code)

	credits := catalog["MATH 201"]
	credits.MinCredits, credits.MaxCredits = 4, 3
	_, err = svc.Import(context.Background(), dto.ImportCoursesRequest{Term: 4262, Courses: []models.Course{credits}})
	assertAppError(t, err, appErrors.ErrValidation.Code)
}

func TestCatalogServiceDelete(t *testing.T) {
	svc := NewCatalogService(newCourseRepoStub(), nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), testTerm, "CS 101"))
	assertAppError(t, svc.Delete(context.Background(), testTerm, "CS 101"), appErrors.ErrNotFound.Code)
}
