package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID_Generated(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	var captured string
	router.GET("/test", func(c *gin.Context) {
		captured = c.GetString(CtxRequestID)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.NotEmpty(t, captured)
	assert.Equal(t, captured, w.Header().Get(HeaderRequestID))
}

func TestRequestID_Propagated(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))
}

func TestRequestLogger_LogsFields(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	router := gin.New()
	router.Use(RequestID(), RequestLogger(log))
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(HeaderRequestID, "req-log")
	router.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/missing", entry["path"])
	assert.Equal(t, float64(404), entry["status"])
	assert.Equal(t, "req-log", entry["request_id"])
}

func TestRecovery_PanicRecovered(t *testing.T) {
	log := zerolog.Nop()

	router := gin.New()
	router.Use(Recovery(log))
	router.GET("/panic", func(c *gin.Context) {
		panic("something went wrong")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SYS_002", resp["error_code"])
	assert.Equal(t, "INTERNAL_ERROR", resp["kind"])
}

func TestMaxBodySize(t *testing.T) {
	router := gin.New()
	router.Use(MaxBodySize(8))
	router.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader([]byte("short"))))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader([]byte("far too long a body"))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
