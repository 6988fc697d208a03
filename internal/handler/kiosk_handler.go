package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-attendance-api/internal/dto"
	"github.com/noah-isme/clinic-attendance-api/internal/models"
	appErrors "github.com/noah-isme/clinic-attendance-api/pkg/errors"
	"github.com/noah-isme/clinic-attendance-api/pkg/response"
)

// multipart overhead allowed on top of the photo limit
const formSlack = 1 << 20

type qrIssuer interface {
	Issue() dto.QRTokenResponse
	Check(token string) dto.QRCheckResponse
}

type punchService interface {
	Punch(ctx context.Context, req dto.PunchRequest) (*dto.PunchResponse, error)
	Status(ctx context.Context, employeeID string) (*dto.EmployeeStatusResponse, error)
}

type kioskDirectory interface {
	ListActive(ctx context.Context) ([]dto.KioskEmployee, error)
}

// KioskHandler serves the unauthenticated kiosk endpoints.
type KioskHandler struct {
	qr             qrIssuer
	punches        punchService
	employees      kioskDirectory
	maxUploadBytes int64
}

// NewKioskHandler constructs the kiosk handler.
func NewKioskHandler(qr qrIssuer, punches punchService, employees kioskDirectory, maxUploadBytes int64) *KioskHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &KioskHandler{qr: qr, punches: punches, employees: employees, maxUploadBytes: maxUploadBytes}
}

// QRToken godoc
// @Summary Current kiosk QR token
// @Tags Kiosk
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /qr [get]
func (h *KioskHandler) QRToken(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.qr.Issue())
}

// QRCheck godoc
// @Summary Check a scanned QR token
// @Tags Kiosk
// @Produce json
// @Param token query string true "Scanned token"
// @Success 200 {object} response.Envelope
// @Router /qr/check [get]
func (h *KioskHandler) QRCheck(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.qr.Check(c.Query("token")))
}

// ActiveEmployees godoc
// @Summary Active employees for the kiosk picker
// @Tags Kiosk
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /employees/active [get]
func (h *KioskHandler) ActiveEmployees(c *gin.Context) {
	list, err := h.employees.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list)
}

// Status godoc
// @Summary Current clock state of an employee
// @Tags Kiosk
// @Produce json
// @Param id path string true "Employee ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /employees/{id}/status [get]
func (h *KioskHandler) Status(c *gin.Context) {
	status, err := h.punches.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status)
}

// Clock godoc
// @Summary Clock in or out
// @Description Multipart punch with QR token, PINs and a photo
// @Tags Kiosk
// @Accept mpfd
// @Produce json
// @Param action formData string true "IN or OUT"
// @Param qr_token formData string true "Scanned QR token"
// @Param subject_employee_id formData string true "Employee ID"
// @Param subject_pin formData string true "Employee PIN"
// @Param is_proxy formData string false "1 or true for witnessed proxy punches"
// @Param witness_employee_id formData string false "Witness employee ID"
// @Param witness_pin formData string false "Witness PIN"
// @Param photo formData file true "Photo"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/clock [post]
func (h *KioskHandler) Clock(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+formSlack)
	if err := c.Request.ParseMultipartForm(formSlack); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.ErrPhotoTooLarge)
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart payload"))
		return
	}

	req := dto.PunchRequest{
		Action:            models.PunchAction(strings.ToUpper(strings.TrimSpace(c.PostForm("action")))),
		QRToken:           strings.TrimSpace(c.PostForm("qr_token")),
		SubjectEmployeeID: strings.TrimSpace(c.PostForm("subject_employee_id")),
		SubjectPIN:        c.PostForm("subject_pin"),
		IsProxy:           parseFlag(c.PostForm("is_proxy")),
		WitnessEmployeeID: strings.TrimSpace(c.PostForm("witness_employee_id")),
		WitnessPIN:        c.PostForm("witness_pin"),
		ClientIP:          c.ClientIP(),
		UserAgent:         c.GetHeader("User-Agent"),
	}

	if header, err := c.FormFile("photo"); err == nil {
		req.PhotoSize = header.Size
		// Oversized uploads are rejected by the service from the declared size.
		if header.Size <= h.maxUploadBytes {
			file, err := header.Open()
			if err != nil {
				response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable photo"))
				return
			}
			data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
			file.Close()
			if err != nil {
				response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable photo"))
				return
			}
			req.Photo = data
		}
	}

	resp, err := h.punches.Punch(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

func parseFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}
