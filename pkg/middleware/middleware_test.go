package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mets-platform/mets/pkg/cloudevents"
	"github.com/mets-platform/mets/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	config := DefaultConfig("test", testLogger())
	config.EnableTracing = false
	Setup(router, config)
	return router
}

type createRequest struct {
	Name     string `json:"name" binding:"required"`
	Priority string `json:"priority" binding:"omitempty,priority"`
	Quantity int    `json:"quantity" binding:"gte=0"`
}

func TestCorrelationIDReachesEventContext(t *testing.T) {
	router := newTestRouter()

	var seen string
	router.GET("/ping", func(c *gin.Context) {
		seen = cloudevents.CorrelationIDFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderCorrelationID, "corr-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "corr-42", seen)
	assert.Equal(t, "corr-42", w.Header().Get(HeaderCorrelationID))
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestBindAndValidateReportsJSONFieldNames(t *testing.T) {
	router := newTestRouter()
	router.POST("/items", func(c *gin.Context) {
		var req createRequest
		if appErr := BindAndValidate(c, &req); appErr != nil {
			NewErrorResponder(c, testLogger()).RespondWithAppError(appErr)
			return
		}
		c.Status(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/items", bytes.NewBufferString(`{"priority":"urgent"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, errors.CodeValidationError, body.Code)
	assert.Equal(t, "is required", body.Details["name"])
	assert.Equal(t, "must be one of: high, medium, low", body.Details["priority"])
}

func TestContentTypeRejectsNonJSON(t *testing.T) {
	router := newTestRouter()
	router.POST("/items", func(c *gin.Context) { c.Status(http.StatusCreated) })

	req := httptest.NewRequest(http.MethodPost, "/items", bytes.NewBufferString("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestRecoveryReturnsInternalError(t *testing.T) {
	router := newTestRouter()
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, errors.CodeInternalError, body.Code)
}

func TestNoRouteUsesErrorBody(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ROUTE_NOT_FOUND")
}
