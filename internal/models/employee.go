package models

import "time"

// Employee is a kiosk identity. Deactivation replaces deletion.
// DivisionID and IsRostered form the employee's roster profile.
type Employee struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	PinHash    string    `db:"pin_hash" json:"-"`
	Active     bool      `db:"is_active" json:"is_active"`
	DivisionID *string   `db:"division_id" json:"division_id,omitempty"`
	IsRostered bool      `db:"is_rostered" json:"is_rostered"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// EmployeeFilter narrows employee listings.
type EmployeeFilter struct {
	DivisionID   *string
	ActiveOnly   bool
	RosteredOnly bool
}

// Division groups employees for rostering.
type Division struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DivisionRosterEditor grants a back-office user roster rights on one division.
type DivisionRosterEditor struct {
	UserID     string    `db:"user_id" json:"user_id"`
	DivisionID string    `db:"division_id" json:"division_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
