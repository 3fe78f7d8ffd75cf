package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/smart-scheduler-api/internal/dto"
	appErrors "github.com/noah-isme/smart-scheduler-api/pkg/errors"
	"github.com/noah-isme/smart-scheduler-api/pkg/response"
)

type tokenIssuer interface {
	IssueToken(ctx context.Context, req dto.TokenRequest) (*dto.TokenResponse, error)
}

// AuthHandler issues tokens to API clients.
type AuthHandler struct {
	service tokenIssuer
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc tokenIssuer) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Token godoc
// @Summary Exchange client credentials for an access token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.TokenRequest true "Client credentials"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/token [post]
func (h *AuthHandler) Token(c *gin.Context) {
	var req dto.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid token payload"))
		return
	}
	res, err := h.service.IssueToken(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil, nil)
}
