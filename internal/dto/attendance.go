package dto

import (
	"time"

	"github.com/noah-isme/clinic-attendance-api/internal/models"
)

// QRTokenResponse is returned by GET /qr for the kiosk display.
type QRTokenResponse struct {
	Token         string `json:"token"`
	ServerNow     int64  `json:"server_now"`
	ExpiresAt     int64  `json:"expires_at"`
	ExpiresIn     int    `json:"expires_in"`
	WindowSeconds int    `json:"window_seconds"`
}

// QRCheckResponse reports whether a scanned token is still acceptable.
type QRCheckResponse struct {
	Valid         bool  `json:"valid"`
	ExpiresIn     int   `json:"expires_in"`
	ServerNow     int64 `json:"server_now"`
	ExpiresAt     int64 `json:"expires_at"`
	WindowSeconds int   `json:"window_seconds"`
}

// PunchRequest is the multipart clock request after transport decoding.
// PhotoSize carries the declared upload size so oversized files are rejected
// without reading them.
type PunchRequest struct {
	Action            models.PunchAction
	QRToken           string
	SubjectEmployeeID string
	SubjectPIN        string
	IsProxy           bool
	WitnessEmployeeID string
	WitnessPIN        string
	Photo             []byte
	PhotoSize         int64
	ClientIP          string
	UserAgent         string
}

// PunchResponse acknowledges an accepted punch.
type PunchResponse struct {
	OK      bool      `json:"ok"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
	EventID string    `json:"event_id"`
}

// EmployeeStatusResponse tells the kiosk which action comes next.
type EmployeeStatusResponse struct {
	EmployeeID   string             `json:"employee_id"`
	EmployeeName string             `json:"employee_name"`
	CurrentState models.PunchAction `json:"current_state"`
	NextAction   models.PunchAction `json:"next_action"`
	Since        *time.Time         `json:"since"`
}

// KioskEmployee is the minimal employee listing shown on the kiosk.
type KioskEmployee struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
