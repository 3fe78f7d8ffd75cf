package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/smart-scheduler-api/pkg/errors"
)

func termQuery(c *gin.Context) (int, error) {
	raw := strings.TrimSpace(c.Query("term"))
	if raw == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "term is required")
	}
	term, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "term must be a numeric term code")
	}
	return term, nil
}

func intParam(c *gin.Context, name string) (int, error) {
	value, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, name+" must be a number")
	}
	return value, nil
}

func queryInt(c *gin.Context, name string) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return value
}
