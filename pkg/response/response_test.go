package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/clinic-attendance-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, rec
}

func TestWithMeta(t *testing.T) {
	c, rec := newContext()
	WithMeta(c, http.StatusOK, map[string]string{"date": "2024-05-06"}, map[string]interface{}{"cache_hit": true})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2024-05-06", body["data"]["date"])
	assert.Equal(t, true, body["meta"]["cache_hit"])
	_, hasError := body["error"]
	assert.False(t, hasError)
}

func TestErrorMapsAppError(t *testing.T) {
	c, rec := newContext()
	Error(c, appErrors.Clone(appErrors.ErrConflict, "already clocked in"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.True(t, c.IsAborted())
	require.Len(t, c.Errors, 1)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, appErrors.ErrConflict.Code, body.Error.Code)
	assert.Equal(t, "already clocked in", body.Error.Message)
}

func TestFileInline(t *testing.T) {
	c, rec := newContext()
	File(c, strings.NewReader("jpeg-bytes"), 10, "punch.jpg", "image/jpeg", true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `inline; filename="punch.jpg"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "jpeg-bytes", rec.Body.String())
}

func TestFileAttachment(t *testing.T) {
	c, rec := newContext()
	File(c, strings.NewReader("a,b\n"), -1, "report.csv", "text/csv", false)
	assert.Equal(t, `attachment; filename="report.csv"`, rec.Header().Get("Content-Disposition"))
}
