package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-scheduler-api/internal/models"
)

func newCourseRepoMock(t *testing.T) (*CourseRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewCourseRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

var courseColumns = []string{"term", "id", "name", "description", "min_credits", "max_credits", "revision", "updated_at"}

func TestCourseRepositoryList(t *testing.T) {
	repo, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT term, id, name, description, min_credits, max_credits, revision, updated_at FROM courses WHERE term = $1 AND (id ILIKE $2 OR name ILIKE $2) ORDER BY id ASC LIMIT 10 OFFSET 10")).
		WithArgs(4262, "%eecs%").
		WillReturnRows(sqlmock.NewRows(courseColumns).
			AddRow(4262, "EECS 581", "Software Engineering I", "", 3, 3, 2, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses WHERE term = $1 AND (id ILIKE $2 OR name ILIKE $2)")).
		WithArgs(4262, "%eecs%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{Term: 4262, Query: " eecs ", Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "EECS 581", courses[0].ID)
	assert.Equal(t, int64(2), courses[0].Revision)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByIDGroupsSections(t *testing.T) {
	repo, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE term = $1 AND id = $2")).
		WithArgs(4262, "EECS 581").
		WillReturnRows(sqlmock.NewRows(courseColumns).
			AddRow(4262, "EECS 581", "Software Engineering I", "Team project", 3, 3, 1, time.Now()))

	sectionRows := sqlmock.NewRows([]string{"term", "section_number", "course_id", "type", "instructor", "min_credits", "max_credits", "topic", "location", "open_seats", "times"}).
		AddRow(4262, 101, "EECS 581", "LBN", "TA", 0, 0, "", "EATN 1005", 4, []byte(`[{"day":2,"startTime":156,"endTime":180}]`)).
		AddRow(4262, 100, "EECS 581", "LEC", "Prof", 3, 3, "", "LEEP2 G415", 20, []byte(`[{"day":1,"startTime":108,"endTime":118},{"day":3,"startTime":108,"endTime":118}]`)).
		AddRow(4262, 102, "EECS 581", "LEC", "Prof", 3, 3, "", "LEEP2 G415", 0, []byte(`[]`))
	mock.ExpectQuery(regexp.QuoteMeta("FROM sections WHERE term = $1 AND course_id = $2 ORDER BY type, section_number")).
		WithArgs(4262, "EECS 581").
		WillReturnRows(sectionRows)

	course, err := repo.FindByID(context.Background(), 4262, "EECS 581")
	require.NoError(t, err)
	require.Len(t, course.Sections["LEC"], 2)
	require.Len(t, course.Sections["LBN"], 1)
	assert.Equal(t, models.MeetingTimes{{Day: 1, StartTime: 108, EndTime: 118}, {Day: 3, StartTime: 108, EndTime: 118}}, course.Sections["LEC"][0].Times)
	assert.Equal(t, "EECS 581", course.Sections["LBN"][0].ClassID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByIDNotFound(t *testing.T) {
	repo, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE term = $1 AND id = $2")).
		WithArgs(4262, "NOPE 1").
		WillReturnRows(sqlmock.NewRows(courseColumns))

	_, err := repo.FindByID(context.Background(), 4262, "NOPE 1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpsert(t *testing.T) {
	repo, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	course := &models.Course{
		ID: "EECS 581", Term: 4262, Name: "Software Engineering I", MinCredits: 3, MaxCredits: 3,
		Sections: map[string][]models.Section{
			"LEC": {{SectionNumber: 100, Type: "LEC", OpenSeats: 20, Times: models.MeetingTimes{{Day: 1, StartTime: 108, EndTime: 118}}}},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO courses")).
		WithArgs(4262, "EECS 581", "Software Engineering I", "", 3, 3, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"revision"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sections WHERE term = $1 AND course_id = $2")).
		WithArgs(4262, "EECS 581").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sections")).
		WithArgs(4262, 100, "EECS 581", "LEC", "", 0, 0, "", "", 20, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Upsert(context.Background(), course))
	assert.Equal(t, int64(3), course.Revision)
	assert.Equal(t, "EECS 581", course.Sections["LEC"][0].ClassID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpsertRollsBack(t *testing.T) {
	repo, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO courses")).WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.Upsert(context.Background(), &models.Course{ID: "EECS 581", Term: 4262, Name: "SE"})
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryDelete(t *testing.T) {
	repo, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM courses WHERE term = $1 AND id = $2")).
		WithArgs(4262, "EECS 581").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), 4262, "EECS 581"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
