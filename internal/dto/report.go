package dto

import (
	"time"

	"github.com/noah-isme/clinic-attendance-api/internal/models"
)

// ReportRequest is the POST /reports payload. Month is "YYYY-MM"; an empty
// DivisionID covers every division.
type ReportRequest struct {
	Type       models.ReportType   `json:"type" validate:"required"`
	Month      string              `json:"month" validate:"required"`
	DivisionID *string             `json:"divisionId,omitempty"`
	Format     models.ReportFormat `json:"format" validate:"required"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse is one job as shown to its requester.
type ReportStatusResponse struct {
	ID         string              `json:"id"`
	Type       models.ReportType   `json:"type"`
	Status     models.ReportStatus `json:"status"`
	Progress   int                 `json:"progress"`
	Attempts   int                 `json:"attempts"`
	ResultURL  *string             `json:"resultUrl,omitempty"`
	Error      *string             `json:"error,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
	FinishedAt *time.Time          `json:"finishedAt,omitempty"`
}
