package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time stored as seconds since local midnight.
type TimeOfDay int

// ParseTimeOfDay accepts HH:MM or HH:MM:SS.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	limits := []int{23, 59, 59}
	values := [3]int{}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > limits[i] || len(part) != 2 {
			return 0, fmt.Errorf("invalid time of day %q", raw)
		}
		values[i] = n
	}
	return TimeOfDay(values[0]*3600 + values[1]*60 + values[2]), nil
}

// MustTimeOfDay is ParseTimeOfDay for literals.
func MustTimeOfDay(raw string) TimeOfDay {
	t, err := ParseTimeOfDay(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// String renders HH:MM, adding seconds only when present.
func (t TimeOfDay) String() string {
	h, m, s := int(t)/3600, (int(t)%3600)/60, int(t)%60
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// On anchors the time of day to the calendar date of day in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc).Add(time.Duration(t) * time.Second)
}

// Value stores the time as a TIME literal.
func (t TimeOfDay) Value() (driver.Value, error) {
	h, m, s := int(t)/3600, (int(t)%3600)/60, int(t)%60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s), nil
}

// Scan reads TIME columns as returned by lib/pq.
func (t *TimeOfDay) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*t = 0
		return nil
	case time.Time:
		*t = TimeOfDay(v.Hour()*3600 + v.Minute()*60 + v.Second())
		return nil
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	default:
		return fmt.Errorf("unsupported type %T for TimeOfDay", value)
	}
}

func (t *TimeOfDay) scanString(raw string) error {
	if idx := strings.IndexAny(raw, ".+"); idx >= 0 {
		raw = raw[:idx]
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON renders "HH:MM".
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts "HH:MM" or "HH:MM:SS".
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("time of day must be a string: %w", err)
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ShiftTemplate is a division's reusable shift definition.
type ShiftTemplate struct {
	ID         string    `db:"id" json:"id"`
	DivisionID string    `db:"division_id" json:"division_id"`
	Name       string    `db:"name" json:"name"`
	StartTime  TimeOfDay `db:"start_time" json:"start_time"`
	EndTime    TimeOfDay `db:"end_time" json:"end_time"`
	Active     bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ShiftStatus is the roster approval state.
type ShiftStatus string

const (
	ShiftStatusDraft     ShiftStatus = "DRAFT"
	ShiftStatusSubmitted ShiftStatus = "SUBMITTED"
	ShiftStatusApproved  ShiftStatus = "APPROVED"
)

// Pending reports whether the row still awaits approval.
func (s ShiftStatus) Pending() bool {
	return s == ShiftStatusDraft || s == ShiftStatusSubmitted
}

// ShiftAssignment is one scheduled shift. Start and end are copied from the
// template at creation so later template edits never rewrite history.
type ShiftAssignment struct {
	ID         string      `db:"id" json:"id"`
	EmployeeID string      `db:"employee_id" json:"employee_id"`
	DivisionID string      `db:"division_id" json:"division_id"`
	TemplateID *string     `db:"template_id" json:"template_id,omitempty"`
	ShiftDate  time.Time   `db:"shift_date" json:"shift_date"`
	StartTime  TimeOfDay   `db:"start_time" json:"start_time"`
	EndTime    TimeOfDay   `db:"end_time" json:"end_time"`
	Status     ShiftStatus `db:"status" json:"status"`
	EnteredBy  *string     `db:"entered_by" json:"entered_by,omitempty"`
	ApprovedBy *string     `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt *time.Time  `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}

// ShiftAssignmentDetail joins the employee name.
type ShiftAssignmentDetail struct {
	ShiftAssignment
	EmployeeName string `db:"employee_name" json:"employee_name"`
}

// ShiftFilter narrows assignment queries to a date range.
type ShiftFilter struct {
	DivisionID *string
	EmployeeID *string
	From       time.Time
	To         time.Time
	Status     *ShiftStatus
}
