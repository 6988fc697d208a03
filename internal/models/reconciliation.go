package models

// Punctuality is the classification of one scheduled shift.
type Punctuality string

const (
	PunctualityOnTime  Punctuality = "ON_TIME"
	PunctualityLate    Punctuality = "LATE"
	PunctualityNoShow  Punctuality = "NO_SHOW"
	PunctualityCovered Punctuality = "COVERED"
)

// CountsAsOnTime reports whether the classification feeds the on-time rate.
// Covered shifts count as on time.
func (p Punctuality) CountsAsOnTime() bool {
	return p == PunctualityOnTime || p == PunctualityCovered
}

// Attended reports whether the shift was covered by any session.
func (p Punctuality) Attended() bool {
	return p != PunctualityNoShow
}
