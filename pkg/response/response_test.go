package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smart-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/smart-scheduler-api/pkg/errors"
)

func serve(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	handler(c)
	return w, c
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestJSONWithMeta(t *testing.T) {
	meta := &Meta{RequestID: "req-1", ProcessingTimeMs: 12}
	meta.MarkCacheHit(false)
	page := &models.Pagination{Page: 1, PageSize: 20, TotalCount: 3}

	w, _ := serve(t, func(c *gin.Context) {
		JSON(c, http.StatusOK, gin.H{"id": "CS 101"}, page, meta)
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	body := decode(t, w)
	assert.JSONEq(t, `{"request_id":"req-1","cache_hit":false,"processing_time_ms":12}`, string(body["meta"]))
	assert.Contains(t, body, "pagination")
	assert.NotContains(t, body, "error")
}

func TestJSONWithoutMeta(t *testing.T) {
	w, _ := serve(t, func(c *gin.Context) {
		Created(c, gin.H{"id": "session"})
	})

	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.NotContains(t, body, "meta")
	assert.NotContains(t, body, "pagination")
}

func TestMetaOmitsUnknownCacheState(t *testing.T) {
	raw, err := json.Marshal(&Meta{ProcessingTimeMs: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"processing_time_ms":3}`, string(raw))

	var nilMeta *Meta
	assert.NotPanics(t, func() { nilMeta.MarkCacheHit(true) })
}

func TestErrorEnvelope(t *testing.T) {
	w, c := serve(t, func(c *gin.Context) {
		Error(c, appErrors.ErrSessionExpired)
	})
	require.Equal(t, http.StatusGone, w.Code)
	assert.Empty(t, c.Errors)
	body := decode(t, w)
	assert.Contains(t, string(body["error"]), `"code":"SESSION_EXPIRED"`)
	assert.NotContains(t, body, "data")

	w, c = serve(t, func(c *gin.Context) {
		Error(c, errors.New("connection reset"))
	})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Len(t, c.Errors, 1)
	assert.NotContains(t, w.Body.String(), "connection reset")
}
