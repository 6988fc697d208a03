package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-attendance-api/internal/dto"
	"github.com/noah-isme/clinic-attendance-api/internal/models"
	appErrors "github.com/noah-isme/clinic-attendance-api/pkg/errors"
)

type fakeQR struct{}

func (fakeQR) Issue() dto.QRTokenResponse {
	return dto.QRTokenResponse{Token: "1715000000.abc", WindowSeconds: 60}
}

func (fakeQR) Check(token string) dto.QRCheckResponse {
	return dto.QRCheckResponse{Valid: token == "1715000000.abc"}
}

type fakePunches struct {
	last dto.PunchRequest
	err  error
}

func (f *fakePunches) Punch(_ context.Context, req dto.PunchRequest) (*dto.PunchResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &dto.PunchResponse{OK: true, Message: "clocked in", Time: time.Now(), EventID: "evt-1"}, nil
}

func (f *fakePunches) Status(_ context.Context, id string) (*dto.EmployeeStatusResponse, error) {
	if id != "emp-1" {
		return nil, appErrors.ErrEmployeeNotFound
	}
	return &dto.EmployeeStatusResponse{EmployeeID: id, CurrentState: models.PunchOut, NextAction: models.PunchIn}, nil
}

type fakeKioskDirectory struct{}

func (fakeKioskDirectory) ListActive(context.Context) ([]dto.KioskEmployee, error) {
	return []dto.KioskEmployee{{ID: "emp-1", Name: "Ana"}}, nil
}

func clockForm(t *testing.T, fields map[string]string, photo []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if photo != nil {
		part, err := writer.CreateFormFile("photo", "shot.jpg")
		require.NoError(t, err)
		_, err = part.Write(photo)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestKioskClockDecodesMultipart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	punches := &fakePunches{}
	handler := NewKioskHandler(fakeQR{}, punches, fakeKioskDirectory{}, 1024)

	body, contentType := clockForm(t, map[string]string{
		"action":              "in",
		"qr_token":            " 1715000000.abc ",
		"subject_employee_id": "emp-1",
		"subject_pin":         "123456",
		"is_proxy":            "1",
		"witness_employee_id": "emp-2",
		"witness_pin":         "654321",
	}, []byte("jpeg"))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/attendance/clock", body)
	c.Request.Header.Set("Content-Type", contentType)

	handler.Clock(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.PunchIn, punches.last.Action)
	assert.Equal(t, "1715000000.abc", punches.last.QRToken)
	assert.True(t, punches.last.IsProxy)
	assert.Equal(t, "emp-2", punches.last.WitnessEmployeeID)
	assert.Equal(t, []byte("jpeg"), punches.last.Photo)
	assert.Equal(t, int64(4), punches.last.PhotoSize)
}

func TestKioskClockOversizedPhotoNotRead(t *testing.T) {
	gin.SetMode(gin.TestMode)
	punches := &fakePunches{err: appErrors.ErrPhotoTooLarge}
	handler := NewKioskHandler(fakeQR{}, punches, fakeKioskDirectory{}, 8)

	body, contentType := clockForm(t, map[string]string{"action": "IN", "is_proxy": "false"}, bytes.Repeat([]byte("x"), 32))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/attendance/clock", body)
	c.Request.Header.Set("Content-Type", contentType)

	handler.Clock(c)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Nil(t, punches.last.Photo)
	assert.Equal(t, int64(32), punches.last.PhotoSize)
	assert.False(t, punches.last.IsProxy)
}

func TestKioskClockRejectsNonMultipart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewKioskHandler(fakeQR{}, &fakePunches{}, fakeKioskDirectory{}, 0)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/attendance/clock", bytes.NewBufferString(`{"action":"IN"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Clock(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseFlag(t *testing.T) {
	for _, raw := range []string{"1", "true", "TRUE", " yes "} {
		assert.True(t, parseFlag(raw), raw)
	}
	for _, raw := range []string{"", "0", "false", "nope"} {
		assert.False(t, parseFlag(raw), raw)
	}
}
