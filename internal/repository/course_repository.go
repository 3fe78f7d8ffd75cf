package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/smart-scheduler-api/internal/models"
)

const sectionColumns = `term, section_number, course_id, type, instructor, min_credits, max_credits, topic, location, open_seats, times`

// CourseRepository persists the course catalog and its sections.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns course summaries for a term without their sections.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := "FROM courses WHERE term = $1"
	args := []interface{}{filter.Term}

	if q := strings.TrimSpace(filter.Query); q != "" {
		base += fmt.Sprintf(" AND (id ILIKE $%d OR name ILIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+q+"%")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT term, id, name, description, min_credits, max_credits, revision, updated_at %s ORDER BY id ASC LIMIT %d OFFSET %d", base, size, offset)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID loads one course with every section grouped by type code.
func (r *CourseRepository) FindByID(ctx context.Context, term int, id string) (*models.Course, error) {
	const query = `SELECT term, id, name, description, min_credits, max_credits, revision, updated_at FROM courses WHERE term = $1 AND id = $2`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, term, id); err != nil {
		return nil, err
	}

	const sectionsQuery = `SELECT ` + sectionColumns + ` FROM sections WHERE term = $1 AND course_id = $2 ORDER BY type, section_number`
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, sectionsQuery, term, id); err != nil {
		return nil, fmt.Errorf("list course sections: %w", err)
	}

	course.Sections = make(map[string][]models.Section)
	for _, section := range sections {
		course.Sections[section.Type] = append(course.Sections[section.Type], section)
	}
	return &course, nil
}

// Upsert writes a course and replaces its sections, bumping the revision on update.
func (r *CourseRepository) Upsert(ctx context.Context, course *models.Course) (err error) {
	if course == nil {
		return fmt.Errorf("course payload is nil")
	}
	course.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert course tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const upsertQuery = `
INSERT INTO courses (term, id, name, description, min_credits, max_credits, revision, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, 1, $7)
ON CONFLICT (term, id) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    min_credits = EXCLUDED.min_credits,
    max_credits = EXCLUDED.max_credits,
    revision = courses.revision + 1,
    updated_at = EXCLUDED.updated_at
RETURNING revision`
	if err = tx.GetContext(ctx, &course.Revision, upsertQuery,
		course.Term, course.ID, course.Name, course.Description, course.MinCredits, course.MaxCredits, course.UpdatedAt); err != nil {
		return fmt.Errorf("upsert course: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM sections WHERE term = $1 AND course_id = $2`, course.Term, course.ID); err != nil {
		return fmt.Errorf("clear course sections: %w", err)
	}

	const insertSection = `INSERT INTO sections (` + sectionColumns + `)
VALUES (:term, :section_number, :course_id, :type, :instructor, :min_credits, :max_credits, :topic, :location, :open_seats, :times)`
	for code, sections := range course.Sections {
		for i := range sections {
			section := &sections[i]
			section.Term = course.Term
			section.ClassID = course.ID
			if section.Type == "" {
				section.Type = code
			}
			if _, err = tx.NamedExecContext(ctx, insertSection, section); err != nil {
				return fmt.Errorf("insert section %d: %w", section.SectionNumber, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert course tx: %w", err)
	}
	return nil
}

// Delete removes a course; its sections cascade.
func (r *CourseRepository) Delete(ctx context.Context, term int, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE term = $1 AND id = $2`, term, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("course rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Terms lists the term codes that have catalog data, newest first.
func (r *CourseRepository) Terms(ctx context.Context) ([]int, error) {
	var terms []int
	if err := r.db.SelectContext(ctx, &terms, `SELECT DISTINCT term FROM courses ORDER BY term DESC`); err != nil {
		return nil, fmt.Errorf("list catalog terms: %w", err)
	}
	return terms, nil
}
