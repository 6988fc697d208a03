package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/clinic-attendance-api/internal/dto"
)

type fakeDashboardSrv struct {
	resp     *dto.DashboardResponse
	err      error
	hit      bool
	lastDate time.Time
}

func (f *fakeDashboardSrv) Manager(_ context.Context, date time.Time) (*dto.DashboardResponse, bool, error) {
	f.lastDate = date
	return f.resp, f.hit, f.err
}

func TestDashboardHandlerInvalidDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard?date=06-05-2024", nil)

	handler.Manager(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardHandlerSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeDashboardSrv{
		resp: &dto.DashboardResponse{Date: "2024-05-06"},
		hit:  true,
	}
	handler := NewDashboardHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard?date=2024-05-06", nil)

	handler.Manager(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Equal(t, "2024-05-06", envelope.Data["date"])
	assert.Equal(t, "2024-05-06", srv.lastDate.Format("2006-01-02"))
}

func TestDashboardHandlerDefaultsToToday(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeDashboardSrv{resp: &dto.DashboardResponse{}}
	handler := NewDashboardHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard", nil)

	handler.Manager(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, srv.lastDate.IsZero())
}

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error map[string]interface{} `json:"error"`
}
