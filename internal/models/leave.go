package models

import "time"

// LeaveType classifies leave requests.
type LeaveType string

const (
	LeaveTypeAnnual LeaveType = "ANNUAL"
	LeaveTypeSick   LeaveType = "SICK"
	LeaveTypeOther  LeaveType = "OTHER"
)

// LeaveStatus is the leave decision state.
type LeaveStatus string

const (
	LeaveStatusSubmitted LeaveStatus = "SUBMITTED"
	LeaveStatusApproved  LeaveStatus = "APPROVED"
	LeaveStatusRejected  LeaveStatus = "REJECTED"
)

// LeaveRequest covers DateFrom through DateTo inclusive.
type LeaveRequest struct {
	ID          string      `db:"id" json:"id"`
	EmployeeID  string      `db:"employee_id" json:"employee_id"`
	DateFrom    time.Time   `db:"date_from" json:"date_from"`
	DateTo      time.Time   `db:"date_to" json:"date_to"`
	Type        LeaveType   `db:"leave_type" json:"leave_type"`
	Reason      string      `db:"reason" json:"reason"`
	Status      LeaveStatus `db:"status" json:"status"`
	RequestedBy *string     `db:"requested_by" json:"requested_by,omitempty"`
	ApprovedBy  *string     `db:"approved_by" json:"approved_by,omitempty"`
	DecidedAt   *time.Time  `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// Covers reports whether the calendar date of day falls inside the request.
func (l LeaveRequest) Covers(day time.Time) bool {
	d := civilDate(day)
	return !d.Before(civilDate(l.DateFrom)) && !d.After(civilDate(l.DateTo))
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
