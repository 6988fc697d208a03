package dto

import (
	"time"

	"github.com/noah-isme/clinic-attendance-api/internal/models"
)

// DashboardResponse is the manager dashboard for one facility date.
type DashboardResponse struct {
	Date         string           `json:"date"`
	GeneratedAt  time.Time        `json:"generated_at"`
	Daily        DailySection     `json:"daily"`
	Monthly      MonthlySection   `json:"monthly"`
	OpenSessions []OpenSession    `json:"open_sessions"`
	Events       EventSection     `json:"events"`
	Pending      PendingApprovals `json:"pending"`
}

// KPI carries counts and one-decimal percentage rates.
type KPI struct {
	Scheduled      int     `json:"scheduled"`
	Attended       int     `json:"attended"`
	OnTime         int     `json:"on_time"`
	Late           int     `json:"late"`
	NoShow         int     `json:"no_show"`
	CoveredOnly    int     `json:"covered_only"`
	AttendanceRate float64 `json:"attendance_rate"`
	OnTimeRate     float64 `json:"on_time_rate"`
	LateRate       float64 `json:"late_rate"`
	NoShowRate     float64 `json:"no_show_rate"`
}

// DailySection holds the date's KPIs and one row per classified shift.
type DailySection struct {
	KPI      KPI              `json:"kpi"`
	Rows     []PunctualityRow `json:"rows"`
	OnLeave  int              `json:"on_leave"`
	Upcoming int              `json:"upcoming"`
}

// PunctualityRow is one classified shift.
type PunctualityRow struct {
	AssignmentID string             `json:"assignment_id"`
	EmployeeID   string             `json:"employee_id"`
	EmployeeName string             `json:"employee_name"`
	ShiftStart   time.Time          `json:"shift_start"`
	ShiftEnd     time.Time          `json:"shift_end"`
	Status       models.Punctuality `json:"status"`
	MinutesLate  int                `json:"minutes_late"`
	ClockIn      *time.Time         `json:"clock_in,omitempty"`
}

// MonthlySection covers the first of the month through the dashboard date.
type MonthlySection struct {
	From        string        `json:"from"`
	To          string        `json:"to"`
	KPI         KPI           `json:"kpi"`
	PerEmployee []EmployeeKPI `json:"per_employee"`
	TopLateness []EmployeeKPI `json:"top_lateness"`
	TopNoShow   []EmployeeKPI `json:"top_no_show"`
}

// EmployeeKPI is a per-employee KPI row.
type EmployeeKPI struct {
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	KPI
}

// OpenSession is a still-open session with a stale flag.
type OpenSession struct {
	SessionID    string    `json:"session_id"`
	EmployeeID   string    `json:"employee_id"`
	EmployeeName string    `json:"employee_name"`
	ClockIn      time.Time `json:"clock_in_time"`
	OpenMinutes  int       `json:"open_minutes"`
	Stale        bool      `json:"stale"`
}

// EventSection lists the date's punch events, newest first.
type EventSection struct {
	Total int          `json:"total"`
	Proxy int          `json:"proxy"`
	Items []EventEntry `json:"items"`
}

// EventEntry is one punch event with a short-lived photo link.
type EventEntry struct {
	ID          string             `json:"id"`
	EventType   models.PunchAction `json:"event_type"`
	SubjectID   string             `json:"subject_employee_id"`
	SubjectName string             `json:"subject_name"`
	WitnessID   *string            `json:"witness_employee_id,omitempty"`
	WitnessName *string            `json:"witness_name,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	IsProxy     bool               `json:"is_proxy"`
	Note        string             `json:"note"`
	PhotoURL    string             `json:"photo_url,omitempty"`
}

// PendingApprovals counts roster rows still awaiting approval.
type PendingApprovals struct {
	Shifts int `json:"shifts"`
}
