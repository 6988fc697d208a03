package dto

// CreateEmployeeRequest is the POST /employees payload.
type CreateEmployeeRequest struct {
	Name       string  `json:"name" validate:"required,max=120"`
	PIN        string  `json:"pin" validate:"required"`
	DivisionID *string `json:"division_id,omitempty"`
	IsRostered bool    `json:"is_rostered"`
}

// ResetPINRequest is the PUT /employees/:id/pin payload.
type ResetPINRequest struct {
	PIN string `json:"pin" validate:"required"`
}
