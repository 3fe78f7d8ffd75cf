package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-scheduler-api/internal/models"
	"github.com/noah-isme/smart-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/smart-scheduler-api/pkg/errors"
	"github.com/noah-isme/smart-scheduler-api/pkg/middleware/requestid"
	"github.com/noah-isme/smart-scheduler-api/pkg/response"
)

type validatorStub map[string]*models.ClientClaims

func (v validatorStub) ValidateToken(token string) (*models.ClientClaims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Wrap(errors.New("bad signature"), appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
}

func protectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	tokens := validatorStub{
		"ingest-token": {ClientID: "catalog-ingest", Role: models.RoleIngest},
		"admin-token":  {ClientID: "ops", Role: models.RoleAdmin},
		"odd-token":    {ClientID: "guest", Role: "viewer"},
	}
	router := gin.New()
	router.POST("/catalog", JWT(tokens), RequireRoles(models.RoleIngest), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"client": ClientFromContext(c).ClientID})
	})
	return router
}

func call(router http.Handler, header string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, "/catalog", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestJWTAndRoles(t *testing.T) {
	router := protectedRouter()

	w := call(router, "Bearer ingest-token")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "catalog-ingest")

	assert.Equal(t, http.StatusOK, call(router, "bearer admin-token").Code)
	assert.Equal(t, http.StatusForbidden, call(router, "Bearer odd-token").Code)
	assert.Equal(t, http.StatusUnauthorized, call(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(router, "Token ingest-token").Code)
	assert.Equal(t, http.StatusUnauthorized, call(router, "Bearer forged").Code)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/admin", RequireRoles(), func(c *gin.Context) { c.Status(http.StatusOK) })
	req, _ := http.NewRequest(http.MethodGet, "/admin", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(requestid.Middleware(), WithResponseMeta())
	router.GET("/course", func(c *gin.Context) {
		SetCacheHit(c, true)
		response.JSON(c, http.StatusOK, gin.H{"id": "CS 101"}, nil, ExtractMeta(c))
	})
	req, _ := http.NewRequest(http.MethodGet, "/course", nil)
	req.Header.Set(requestid.Header, "trace-7")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cache_hit":true`)
	assert.Contains(t, w.Body.String(), `"request_id":"trace-7"`)
	assert.Contains(t, w.Body.String(), "processing_time_ms")
}

func TestResponseMetaWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/course", func(c *gin.Context) {
		assert.Nil(t, ExtractMeta(c))
		SetCacheHit(c, false)
		meta := ExtractMeta(c)
		require.NotNil(t, meta)
		require.NotNil(t, meta.CacheHit)
		assert.False(t, *meta.CacheHit)
		response.JSON(c, http.StatusOK, gin.H{"id": "CS 101"}, nil, meta)
	})
	req, _ := http.NewRequest(http.MethodGet, "/course", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cache_hit":false`)
	assert.NotContains(t, w.Body.String(), "request_id")
}

func TestMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics, "/health"))
	router.GET("/terms", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/terms", "/terms", "/health", "/nowhere"} {
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, uint64(3), metrics.Snapshot().RequestsTotal)
}
