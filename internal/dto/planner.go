package dto

import (
	"time"

	"github.com/noah-isme/smart-scheduler-api/internal/models"
)

// CreatePlannerSessionRequest opens a planner session for a term.
type CreatePlannerSessionRequest struct {
	Term int `json:"term" validate:"required,min=4000"`
}

// SetTermRequest switches the session to another term, clearing the selection.
type SetTermRequest struct {
	Term int `json:"term" validate:"required,min=4000"`
}

// AddCourseRequest selects a course from the catalog.
type AddCourseRequest struct {
	CourseID string `json:"courseId" validate:"required,max=64"`
}

// ToggleBlockedRequest flips one 30-minute cell of the blocked grid.
type ToggleBlockedRequest struct {
	Day  int `json:"day" validate:"min=0,max=6"`
	Slot int `json:"slot" validate:"min=0,max=47"`
}

// SelectedCourse summarises a course in the current selection.
type SelectedCourse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	MinCredits int    `json:"minCredits"`
	MaxCredits int    `json:"maxCredits"`
	Sections   int    `json:"sections"`
}

// ScheduledSection is a section as shown inside a schedule.
type ScheduledSection struct {
	models.Section
	CourseName string `json:"courseName"`
	Color      string `json:"color"`
	Pinned     bool   `json:"pinned"`
}

// ScheduleView is one permutation with its credit totals.
type ScheduleView struct {
	Index       int                `json:"index"`
	Sections    []ScheduledSection `json:"sections"`
	Unscheduled []ScheduledSection `json:"unscheduled"`
	MinCredits  int                `json:"minCredits"`
	MaxCredits  int                `json:"maxCredits"`
}

// PlannerSessionResponse is the full state of a planner session.
type PlannerSessionResponse struct {
	ID              string           `json:"id"`
	Term            int              `json:"term"`
	TermLabel       string           `json:"termLabel"`
	Courses         []SelectedCourse `json:"courses"`
	SelectedCredits CreditRange      `json:"selectedCredits"`
	Count           int              `json:"count"`
	ActiveIndex     int              `json:"activeIndex"`
	Position        string           `json:"position,omitempty"`
	Active          *ScheduleView    `json:"active,omitempty"`
	Pins            []int            `json:"pins"`
	Blocked         [][2]int         `json:"blocked"`
	Infeasible      bool             `json:"infeasible"`
	Notice          string           `json:"notice,omitempty"`
	ExpiresAt       time.Time        `json:"expiresAt"`
}

// CreditRange is a minimum/maximum credit-hour pair.
type CreditRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// GenerateSchedulesRequest runs the engine without a session.
type GenerateSchedulesRequest struct {
	Courses  []models.Course `json:"courses" validate:"required,min=1,dive"`
	Pinned   []int           `json:"pinned" validate:"omitempty,dive,min=1"`
	Blocked  [][2]int        `json:"blocked"`
	Previous []int           `json:"previous" validate:"omitempty,dive,min=1"`
	Limit    int             `json:"limit" validate:"omitempty,min=1,max=500"`
}

// GenerateSchedulesResponse lists the filtered schedules and the resolved active index.
type GenerateSchedulesResponse struct {
	Count       int            `json:"count"`
	ActiveIndex int            `json:"activeIndex"`
	Infeasible  bool           `json:"infeasible"`
	Schedules   []ScheduleView `json:"schedules"`
}
