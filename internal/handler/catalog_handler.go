package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/smart-scheduler-api/internal/dto"
	"github.com/noah-isme/smart-scheduler-api/internal/middleware"
	"github.com/noah-isme/smart-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/smart-scheduler-api/pkg/errors"
	"github.com/noah-isme/smart-scheduler-api/pkg/response"
)

type catalogService interface {
	Terms(ctx context.Context) ([]dto.TermResponse, error)
	Search(ctx context.Context, query dto.CourseQuery) ([]models.Course, *models.Pagination, error)
	Get(ctx context.Context, term int, id string) (*models.Course, bool, error)
	Import(ctx context.Context, req dto.ImportCoursesRequest) (*dto.ImportCoursesResponse, error)
	Delete(ctx context.Context, term int, id string) error
}

// CatalogHandler serves catalog lookups and accepts ingestion uploads.
type CatalogHandler struct {
	service catalogService
	logger  *zap.Logger
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(svc catalogService, logger *zap.Logger) *CatalogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogHandler{service: svc, logger: logger}
}

// Terms godoc
// @Summary List selectable terms
// @Description The upcoming term followed by the three before it.
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /terms [get]
func (h *CatalogHandler) Terms(c *gin.Context) {
	terms, err := h.service.Terms(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, terms, nil, nil)
}

// Search godoc
// @Summary Search catalog courses
// @Tags Catalog
// @Produce json
// @Param term query int true "Term code"
// @Param q query string false "Course id or name fragment"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /catalog/courses [get]
func (h *CatalogHandler) Search(c *gin.Context) {
	var query dto.CourseQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course query"))
		return
	}
	courses, pagination, err := h.service.Search(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get one course with its sections
// @Tags Catalog
// @Produce json
// @Param id path string true "Course ID"
// @Param term query int true "Term code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /catalog/courses/{id} [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	term, err := termQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	course, cacheHit, err := h.service.Get(c.Request.Context(), term, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, course, nil, middleware.ExtractMeta(c))
}

// Import godoc
// @Summary Upsert catalog courses for a term
// @Description Used by the catalog ingestion client. Invalidates cached permutations for the term.
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ImportCoursesRequest true "Courses"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /catalog/courses [post]
func (h *CatalogHandler) Import(c *gin.Context) {
	var req dto.ImportCoursesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid import payload"))
		return
	}
	result, err := h.service.Import(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if client := middleware.ClientFromContext(c); client != nil {
		h.logger.Info("catalog import", zap.String("client_id", client.ClientID), zap.Int("term", result.Term), zap.Int("courses", result.Imported))
	}
	response.JSON(c, http.StatusOK, result, nil, nil)
}

// Delete godoc
// @Summary Remove a course from the catalog
// @Tags Catalog
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param term query int true "Term code"
// @Success 204
// @Router /catalog/courses/{id} [delete]
func (h *CatalogHandler) Delete(c *gin.Context) {
	term, err := termQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if err := h.service.Delete(c.Request.Context(), term, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
