package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smart-scheduler-api/internal/dto"
	"github.com/noah-isme/smart-scheduler-api/internal/middleware"
	"github.com/noah-isme/smart-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/smart-scheduler-api/pkg/errors"
	"github.com/noah-isme/smart-scheduler-api/pkg/response"
)

type plannerService interface {
	CreateSession(ctx context.Context, req dto.CreatePlannerSessionRequest) (*dto.PlannerSessionResponse, error)
	GetSession(ctx context.Context, id string) (*dto.PlannerSessionResponse, error)
	DeleteSession(ctx context.Context, id string) error
	SetTerm(ctx context.Context, id string, req dto.SetTermRequest) (*dto.PlannerSessionResponse, error)
	AddCourse(ctx context.Context, id string, req dto.AddCourseRequest) (*dto.PlannerSessionResponse, error)
	RemoveCourse(ctx context.Context, id, courseID string) (*dto.PlannerSessionResponse, error)
	ClearCourses(ctx context.Context, id string) (*dto.PlannerSessionResponse, error)
	TogglePin(ctx context.Context, id string, sectionNumber int) (*dto.PlannerSessionResponse, error)
	ToggleBlocked(ctx context.Context, id string, req dto.ToggleBlockedRequest) (*dto.PlannerSessionResponse, error)
	Next(ctx context.Context, id string) (*dto.PlannerSessionResponse, error)
	Previous(ctx context.Context, id string) (*dto.PlannerSessionResponse, error)
	ListPermutations(ctx context.Context, id string, page models.Pagination) ([]dto.ScheduleView, *models.Pagination, error)
	Generate(ctx context.Context, req dto.GenerateSchedulesRequest) (*dto.GenerateSchedulesResponse, error)
}

// PlannerHandler exposes schedule planning sessions over HTTP.
type PlannerHandler struct {
	service plannerService
}

// NewPlannerHandler constructs the handler.
func NewPlannerHandler(svc plannerService) *PlannerHandler {
	return &PlannerHandler{service: svc}
}

// CreateSession godoc
// @Summary Start a planning session
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body dto.CreatePlannerSessionRequest true "Term to plan"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /planner/sessions [post]
func (h *PlannerHandler) CreateSession(c *gin.Context) {
	var req dto.CreatePlannerSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}
	session, err := h.service.CreateSession(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// GetSession godoc
// @Summary Get a planning session with its active schedule
// @Tags Planner
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /planner/sessions/{id} [get]
func (h *PlannerHandler) GetSession(c *gin.Context) {
	h.respond(c)(h.service.GetSession(c.Request.Context(), c.Param("id")))
}

// DeleteSession godoc
// @Summary End a planning session
// @Tags Planner
// @Param id path string true "Session ID"
// @Success 204
// @Router /planner/sessions/{id} [delete]
func (h *PlannerHandler) DeleteSession(c *gin.Context) {
	if err := h.service.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetTerm godoc
// @Summary Switch the session term
// @Description Clears selected courses, pins and blocked times.
// @Tags Planner
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.SetTermRequest true "New term"
// @Success 200 {object} response.Envelope
// @Router /planner/sessions/{id}/term [put]
func (h *PlannerHandler) SetTerm(c *gin.Context) {
	var req dto.SetTermRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid term payload"))
		return
	}
	h.respond(c)(h.service.SetTerm(c.Request.Context(), c.Param("id"), req))
}

// AddCourse godoc
// @Summary Add a course to the selection
// @Tags Planner
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.AddCourseRequest true "Course to add"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /planner/sessions/{id}/courses [post]
func (h *PlannerHandler) AddCourse(c *gin.Context) {
	var req dto.AddCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}
	h.respond(c)(h.service.AddCourse(c.Request.Context(), c.Param("id"), req))
}

// RemoveCourse godoc
// @Summary Remove a course from the selection
// @Tags Planner
// @Produce json
// @Param id path string true "Session ID"
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /planner/sessions/{id}/courses/{courseId} [delete]
func (h *PlannerHandler) RemoveCourse(c *gin.Context) {
	h.respond(c)(h.service.RemoveCourse(c.Request.Context(), c.Param("id"), c.Param("courseId")))
}

// ClearCourses godoc
// @Summary Remove every selected course
// @Tags Planner
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /planner/sessions/{id}/courses [delete]
func (h *PlannerHandler) ClearCourses(c *gin.Context) {
	h.respond(c)(h.service.ClearCourses(c.Request.Context(), c.Param("id")))
}

// TogglePin godoc
// @Summary Pin or unpin a section of the active schedule
// @Tags Planner
// @Produce json
// @Param id path string true "Session ID"
// @Param sectionNumber path int true "Section number"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /planner/sessions/{id}/pins/{sectionNumber}/toggle [post]
func (h *PlannerHandler) TogglePin(c *gin.Context) {
	number, err := intParam(c, "sectionNumber")
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c)(h.service.TogglePin(c.Request.Context(), c.Param("id"), number))
}

// ToggleBlocked godoc
// @Summary Block or unblock a half-hour slot
// @Tags Planner
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.ToggleBlockedRequest true "Grid cell"
// @Success 200 {object} response.Envelope
// @Router /planner/sessions/{id}/blocked/toggle [post]
func (h *PlannerHandler) ToggleBlocked(c *gin.Context) {
	var req dto.ToggleBlockedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid blocked slot payload"))
		return
	}
	h.respond(c)(h.service.ToggleBlocked(c.Request.Context(), c.Param("id"), req))
}

// Next godoc
// @Summary Move to the next schedule
// @Tags Planner
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /planner/sessions/{id}/next [post]
func (h *PlannerHandler) Next(c *gin.Context) {
	h.respond(c)(h.service.Next(c.Request.Context(), c.Param("id")))
}

// Previous godoc
// @Summary Move to the previous schedule
// @Tags Planner
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /planner/sessions/{id}/previous [post]
func (h *PlannerHandler) Previous(c *gin.Context) {
	h.respond(c)(h.service.Previous(c.Request.Context(), c.Param("id")))
}

// Permutations godoc
// @Summary Page through the session's filtered schedules
// @Tags Planner
// @Produce json
// @Param id path string true "Session ID"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /planner/sessions/{id}/permutations [get]
func (h *PlannerHandler) Permutations(c *gin.Context) {
	page := models.Pagination{Page: queryInt(c, "page"), PageSize: queryInt(c, "page_size")}
	views, pagination, err := h.service.ListPermutations(c.Request.Context(), c.Param("id"), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, pagination, middleware.ExtractMeta(c))
}

// Generate godoc
// @Summary Generate schedules for a set of courses without a session
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body dto.GenerateSchedulesRequest true "Courses, pins and blocked cells"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /planner/generate [post]
func (h *PlannerHandler) Generate(c *gin.Context) {
	var req dto.GenerateSchedulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

func (h *PlannerHandler) respond(c *gin.Context) func(*dto.PlannerSessionResponse, error) {
	return func(session *dto.PlannerSessionResponse, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, session, nil, middleware.ExtractMeta(c))
	}
}
