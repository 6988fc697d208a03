package dto

import (
	"time"

	"github.com/noah-isme/clinic-attendance-api/internal/models"
)

// RosterCellSelection lists the templates chosen for one employee on one day.
// An empty TemplateIDs clears the cell.
type RosterCellSelection struct {
	EmployeeID  string   `json:"employee_id" validate:"required"`
	Date        string   `json:"date" validate:"required"`
	TemplateIDs []string `json:"template_ids"`
}

// ReplaceWeekRequest is the PUT /roster/week payload.
type ReplaceWeekRequest struct {
	DivisionID string                `json:"division_id" validate:"required"`
	WeekStart  string                `json:"week_start" validate:"required"`
	Cells      []RosterCellSelection `json:"cells" validate:"dive"`
}

// ReplaceWeekResponse summarises a roster replacement.
type ReplaceWeekResponse struct {
	DivisionID   string             `json:"division_id"`
	WeekStart    string             `json:"week_start"`
	Status       models.ShiftStatus `json:"status"`
	CellsCleared int                `json:"cells_cleared"`
	ShiftsSaved  int                `json:"shifts_saved"`
	SkippedLeave []RosterCellRef    `json:"skipped_leave"`
}

// RosterCellRef addresses one (employee, date) cell.
type RosterCellRef struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"`
}

// ApproveWeekRequest is the POST /roster/week/approve payload.
type ApproveWeekRequest struct {
	DivisionID string `json:"division_id" validate:"required"`
	WeekStart  string `json:"week_start" validate:"required"`
}

// ApproveWeekResponse reports how many shifts were approved.
type ApproveWeekResponse struct {
	DivisionID string `json:"division_id"`
	WeekStart  string `json:"week_start"`
	Approved   int64  `json:"approved"`
}

// RosterWeekResponse is the editor view of a division week.
type RosterWeekResponse struct {
	DivisionID   string                         `json:"division_id"`
	WeekStart    string                         `json:"week_start"`
	WeekEnd      string                         `json:"week_end"`
	Employees    []models.Employee              `json:"employees"`
	Templates    []models.ShiftTemplate         `json:"templates"`
	Assignments  []models.ShiftAssignmentDetail `json:"assignments"`
	PendingCount int                            `json:"pending_count"`
}

// CreateTemplateRequest is the POST /divisions/:id/templates payload.
type CreateTemplateRequest struct {
	Name      string `json:"name" validate:"required,max=64"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// LeaveRequestPayload is the POST /leaves payload.
type LeaveRequestPayload struct {
	EmployeeID string           `json:"employee_id" validate:"required"`
	DateFrom   string           `json:"date_from" validate:"required"`
	DateTo     string           `json:"date_to" validate:"required"`
	Type       models.LeaveType `json:"leave_type" validate:"required,oneof=ANNUAL SICK OTHER"`
	Reason     string           `json:"reason" validate:"max=500"`
}

// LeaveDecisionResponse echoes a decided leave request.
type LeaveDecisionResponse struct {
	ID        string             `json:"id"`
	Status    models.LeaveStatus `json:"status"`
	DecidedAt time.Time          `json:"decided_at"`
}
