package service

import (
	"math"
	"sort"
	"time"

	"github.com/noah-isme/clinic-attendance-api/internal/models"
)

// PunctualityPolicy holds the thresholds used to classify a shift.
type PunctualityPolicy struct {
	GraceMinutes int
	EarlyWindow  time.Duration
	NoShowWindow time.Duration
}

// DefaultPunctualityPolicy returns the facility defaults: 15 minutes grace,
// a 60 minute early window and a 120 minute no-show window.
func DefaultPunctualityPolicy() PunctualityPolicy {
	return PunctualityPolicy{GraceMinutes: 15, EarlyWindow: time.Hour, NoShowWindow: 2 * time.Hour}
}

func (p PunctualityPolicy) withDefaults() PunctualityPolicy {
	def := DefaultPunctualityPolicy()
	if p.GraceMinutes <= 0 {
		p.GraceMinutes = def.GraceMinutes
	}
	if p.EarlyWindow <= 0 {
		p.EarlyWindow = def.EarlyWindow
	}
	if p.NoShowWindow <= 0 {
		p.NoShowWindow = def.NoShowWindow
	}
	return p
}

// ShiftMatch is the matcher verdict for one shift.
type ShiftMatch struct {
	Status      models.Punctuality `json:"status"`
	MinutesLate int                `json:"minutes_late"`
	MatchedIn   *time.Time         `json:"matched_in,omitempty"`
}

// ClassifyShift matches one shift window against the employee's sessions.
// An open session counts as running until now. MinutesLate is only non-zero
// for LATE shifts.
func ClassifyShift(start, end time.Time, sessions []models.AttendanceSession, now time.Time, policy PunctualityPolicy) ShiftMatch {
	policy = policy.withDefaults()
	ordered := sortedByClockIn(sessions)

	earliest := start.Add(-policy.EarlyWindow)
	latest := start.Add(policy.NoShowWindow)

	var matched *time.Time
	covered := false
	for i := range ordered {
		in := ordered[i].ClockIn
		if in == nil {
			continue
		}
		if matched == nil && !in.Before(earliest) && !in.After(latest) {
			t := *in
			matched = &t
		}
		out := now
		if ordered[i].ClockOut != nil {
			out = *ordered[i].ClockOut
		}
		if !in.After(end) && !out.Before(start) {
			covered = true
		}
	}

	switch {
	case !covered:
		return ShiftMatch{Status: models.PunctualityNoShow}
	case matched == nil:
		return ShiftMatch{Status: models.PunctualityCovered}
	}

	late := int(math.Floor(matched.Sub(start).Minutes()))
	if late < 0 {
		late = 0
	}
	if late <= policy.GraceMinutes {
		return ShiftMatch{Status: models.PunctualityOnTime, MatchedIn: matched}
	}
	return ShiftMatch{Status: models.PunctualityLate, MinutesLate: late, MatchedIn: matched}
}

func sortedByClockIn(sessions []models.AttendanceSession) []models.AttendanceSession {
	ordered := make([]models.AttendanceSession, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].ClockIn, ordered[j].ClockIn
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return ordered
}

// KPI aggregates classified shifts. OnTime includes covered-only shifts.
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

func (k *KPI) add(status models.Punctuality) {
	k.Scheduled++
	if status.Attended() {
		k.Attended++
	}
	if status.CountsAsOnTime() {
		k.OnTime++
	}
	switch status {
	case models.PunctualityLate:
		k.Late++
	case models.PunctualityNoShow:
		k.NoShow++
	case models.PunctualityCovered:
		k.CoveredOnly++
	}
}

func (k *KPI) finalize() {
	k.AttendanceRate = percentage(k.Attended, k.Scheduled)
	k.OnTimeRate = percentage(k.OnTime, k.Scheduled)
	k.LateRate = percentage(k.Late, k.Scheduled)
	k.NoShowRate = percentage(k.NoShow, k.Scheduled)
}

// percentage rounds count/total*100 to one decimal; zero totals yield 0.
func percentage(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}

// EmployeeKPI is one employee's slice of a reconciliation.
type EmployeeKPI struct {
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	KPI
}

// ShiftOutcome is a classified shift ready for display.
type ShiftOutcome struct {
	AssignmentID string    `json:"assignment_id"`
	EmployeeID   string    `json:"employee_id"`
	EmployeeName string    `json:"employee_name"`
	DivisionID   string    `json:"division_id"`
	ShiftDate    string    `json:"shift_date"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	ShiftMatch
}

// Reconciliation is the aggregate over a period.
type Reconciliation struct {
	Outcomes    []ShiftOutcome `json:"outcomes"`
	Totals      KPI            `json:"totals"`
	PerEmployee []EmployeeKPI  `json:"per_employee"`
	OnLeave     int            `json:"on_leave"`
	Upcoming    int            `json:"upcoming"`
}

// ReconcileInput is a read-only snapshot of a period.
type ReconcileInput struct {
	Shifts   []models.ShiftAssignmentDetail
	Sessions []models.AttendanceSession
	Leaves   []models.LeaveRequest
	Now      time.Time
	Location *time.Location
	Policy   PunctualityPolicy
}

// Reconcile classifies every approved shift in the input. Shifts covered by
// approved leave are skipped, as are shifts that have not started yet.
func Reconcile(in ReconcileInput) Reconciliation {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	sessionsByEmployee := make(map[string][]models.AttendanceSession)
	for _, session := range in.Sessions {
		sessionsByEmployee[session.EmployeeID] = append(sessionsByEmployee[session.EmployeeID], session)
	}
	leavesByEmployee := make(map[string][]models.LeaveRequest)
	for _, leave := range in.Leaves {
		if leave.Status != models.LeaveStatusApproved {
			continue
		}
		leavesByEmployee[leave.EmployeeID] = append(leavesByEmployee[leave.EmployeeID], leave)
	}

	result := Reconciliation{Outcomes: make([]ShiftOutcome, 0, len(in.Shifts))}
	perEmployee := make(map[string]*EmployeeKPI)

	for _, shift := range in.Shifts {
		if shift.Status != models.ShiftStatusApproved {
			continue
		}
		if onLeave(leavesByEmployee[shift.EmployeeID], shift.ShiftDate) {
			result.OnLeave++
			continue
		}
		start := shift.StartTime.On(shift.ShiftDate, loc)
		end := shift.EndTime.On(shift.ShiftDate, loc)
		if start.After(in.Now) {
			result.Upcoming++
			continue
		}

		candidates := sessionCandidates(sessionsByEmployee[shift.EmployeeID], shift.ShiftDate, loc)
		match := ClassifyShift(start, end, candidates, in.Now, in.Policy)

		result.Outcomes = append(result.Outcomes, ShiftOutcome{
			AssignmentID: shift.ID,
			EmployeeID:   shift.EmployeeID,
			EmployeeName: shift.EmployeeName,
			DivisionID:   shift.DivisionID,
			ShiftDate:    shift.ShiftDate.Format("2006-01-02"),
			Start:        start,
			End:          end,
			ShiftMatch:   match,
		})
		result.Totals.add(match.Status)

		row, ok := perEmployee[shift.EmployeeID]
		if !ok {
			row = &EmployeeKPI{EmployeeID: shift.EmployeeID, EmployeeName: shift.EmployeeName}
			perEmployee[shift.EmployeeID] = row
		}
		row.add(match.Status)
	}

	result.Totals.finalize()
	result.PerEmployee = make([]EmployeeKPI, 0, len(perEmployee))
	for _, row := range perEmployee {
		row.finalize()
		result.PerEmployee = append(result.PerEmployee, *row)
	}
	sort.Slice(result.PerEmployee, func(i, j int) bool {
		return lessByName(result.PerEmployee[i], result.PerEmployee[j])
	})
	sort.SliceStable(result.Outcomes, func(i, j int) bool {
		a, b := result.Outcomes[i], result.Outcomes[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.EmployeeName < b.EmployeeName
	})
	return result
}

// sessionCandidates keeps sessions clocked in from the start of the previous
// day through the end of the shift day, plus anything still open.
func sessionCandidates(sessions []models.AttendanceSession, shiftDate time.Time, loc *time.Location) []models.AttendanceSession {
	y, m, d := shiftDate.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, loc)
	from := dayStart.AddDate(0, 0, -1)
	to := dayStart.AddDate(0, 0, 1)

	out := make([]models.AttendanceSession, 0, len(sessions))
	for _, session := range sessions {
		if session.IsOpen {
			out = append(out, session)
			continue
		}
		if session.ClockIn == nil {
			continue
		}
		if !session.ClockIn.Before(from) && session.ClockIn.Before(to) {
			out = append(out, session)
		}
	}
	return out
}

func onLeave(leaves []models.LeaveRequest, day time.Time) bool {
	for _, leave := range leaves {
		if leave.Covers(day) {
			return true
		}
	}
	return false
}

func lessByName(a, b EmployeeKPI) bool {
	if a.EmployeeName != b.EmployeeName {
		return a.EmployeeName < b.EmployeeName
	}
	return a.EmployeeID < b.EmployeeID
}

// RankByLateness returns up to n employees ordered by late then no-show
// counts, descending. Employees with neither are left out.
func RankByLateness(rows []EmployeeKPI, n int) []EmployeeKPI {
	ranked := make([]EmployeeKPI, 0, len(rows))
	for _, row := range rows {
		if row.Late > 0 || row.NoShow > 0 {
			ranked = append(ranked, row)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Late != b.Late {
			return a.Late > b.Late
		}
		if a.NoShow != b.NoShow {
			return a.NoShow > b.NoShow
		}
		return lessByName(a, b)
	})
	return truncate(ranked, n)
}

// RankByNoShow returns up to n employees with the most no-shows.
func RankByNoShow(rows []EmployeeKPI, n int) []EmployeeKPI {
	ranked := make([]EmployeeKPI, 0, len(rows))
	for _, row := range rows {
		if row.NoShow > 0 {
			ranked = append(ranked, row)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.NoShow != b.NoShow {
			return a.NoShow > b.NoShow
		}
		return lessByName(a, b)
	})
	return truncate(ranked, n)
}

func truncate(rows []EmployeeKPI, n int) []EmployeeKPI {
	if n > 0 && len(rows) > n {
		return rows[:n]
	}
	return rows
}

// OpenSessionView flags sessions that have been open too long.
type OpenSessionView struct {
	SessionID    string    `json:"session_id"`
	EmployeeID   string    `json:"employee_id"`
	EmployeeName string    `json:"employee_name"`
	ClockIn      time.Time `json:"clock_in_time"`
	OpenMinutes  int       `json:"open_minutes"`
	Stale        bool      `json:"stale"`
}

// FlagOpenSessions annotates open sessions with their age and a stale flag
// once they pass threshold without a clock-out.
func FlagOpenSessions(sessions []models.AttendanceSessionDetail, now time.Time, threshold time.Duration) []OpenSessionView {
	if threshold <= 0 {
		threshold = 10 * time.Hour
	}
	views := make([]OpenSessionView, 0, len(sessions))
	for _, session := range sessions {
		since := session.OpenSince()
		if since == nil {
			continue
		}
		age := now.Sub(*since)
		views = append(views, OpenSessionView{
			SessionID:    session.ID,
			EmployeeID:   session.EmployeeID,
			EmployeeName: session.EmployeeName,
			ClockIn:      *since,
			OpenMinutes:  int(age / time.Minute),
			Stale:        age > threshold,
		})
	}
	return views
}
