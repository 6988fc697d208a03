package models

import "time"

// PunchAction is the kiosk clock action.
type PunchAction string

const (
	PunchIn  PunchAction = "IN"
	PunchOut PunchAction = "OUT"
)

// Valid returns true when the action is a supported value.
func (a PunchAction) Valid() bool {
	switch a {
	case PunchIn, PunchOut:
		return true
	default:
		return false
	}
}

// AttendanceSession is one work session. At most one open session exists per
// employee; closing stamps ClockOut and clears IsOpen.
type AttendanceSession struct {
	ID         string     `db:"id" json:"id"`
	EmployeeID string     `db:"employee_id" json:"employee_id"`
	ClockIn    *time.Time `db:"clock_in_time" json:"clock_in_time,omitempty"`
	ClockOut   *time.Time `db:"clock_out_time" json:"clock_out_time,omitempty"`
	IsOpen     bool       `db:"is_open" json:"is_open"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// OpenSince returns the clock-in time when the session is still open.
func (s AttendanceSession) OpenSince() *time.Time {
	if !s.IsOpen || s.ClockIn == nil || s.ClockOut != nil {
		return nil
	}
	return s.ClockIn
}

// AttendanceSessionDetail adds the employee name for dashboards.
type AttendanceSessionDetail struct {
	AttendanceSession
	EmployeeName string `db:"employee_name" json:"employee_name"`
}

// AttendanceEvent is the immutable audit row written for every accepted punch.
type AttendanceEvent struct {
	ID                string      `db:"id" json:"id"`
	EventType         PunchAction `db:"event_type" json:"event_type"`
	SessionID         string      `db:"session_id" json:"session_id"`
	SubjectEmployeeID string      `db:"subject_employee_id" json:"subject_employee_id"`
	WitnessEmployeeID *string     `db:"witness_employee_id" json:"witness_employee_id,omitempty"`
	CreatedAt         time.Time   `db:"created_at" json:"created_at"`
	PhotoPath         string      `db:"photo_path" json:"-"`
	ClientIP          *string     `db:"client_ip" json:"client_ip,omitempty"`
	UserAgent         string      `db:"user_agent" json:"user_agent"`
	IsProxy           bool        `db:"is_proxy" json:"is_proxy"`
	Note              string      `db:"note" json:"note"`
}

// AttendanceEventDetail joins subject and witness names.
type AttendanceEventDetail struct {
	AttendanceEvent
	SubjectName string  `db:"subject_name" json:"subject_name"`
	WitnessName *string `db:"witness_name" json:"witness_name,omitempty"`
}

// PunchRecord bundles the state transition and event for one accepted punch.
type PunchRecord struct {
	Action  PunchAction
	Session AttendanceSession
	Event   AttendanceEvent
}
