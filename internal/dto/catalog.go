package dto

import "github.com/noah-isme/smart-scheduler-api/internal/models"

// CourseQuery captures catalog search parameters.
type CourseQuery struct {
	Term     int    `form:"term" validate:"required,min=4000"`
	Query    string `form:"q" validate:"max=100"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// ImportCoursesRequest carries course records from the catalog ingestion client.
type ImportCoursesRequest struct {
	Term    int             `json:"term" validate:"required,min=4000"`
	Courses []models.Course `json:"courses" validate:"required,min=1,dive"`
}

// ImportCoursesResponse reports the stored revision of each imported course.
type ImportCoursesResponse struct {
	Term      int              `json:"term"`
	Imported  int              `json:"imported"`
	Revisions map[string]int64 `json:"revisions"`
}

// TermResponse describes one selectable academic term.
type TermResponse struct {
	Code     int    `json:"code"`
	Label    string `json:"label"`
	Year     int    `json:"year"`
	Season   string `json:"season"`
	Upcoming bool   `json:"upcoming"`
	// Available is set when the catalog holds courses for the term.
	Available bool `json:"available"`
}
