package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-attendance-api/internal/models"
)

var testDay = time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

func at(hhmm string) time.Time {
	return models.MustTimeOfDay(hhmm).On(testDay, time.UTC)
}

func closedSession(employeeID, in, out string) models.AttendanceSession {
	clockIn, clockOut := at(in), at(out)
	return models.AttendanceSession{ID: employeeID + in, EmployeeID: employeeID, ClockIn: &clockIn, ClockOut: &clockOut}
}

func openSession(employeeID string, in time.Time) models.AttendanceSession {
	return models.AttendanceSession{ID: employeeID + "-open", EmployeeID: employeeID, ClockIn: &in, IsOpen: true}
}

func TestClassifyShift(t *testing.T) {
	policy := DefaultPunctualityPolicy()
	start, end := at("09:00"), at("17:00")
	now := at("20:00")

	tests := []struct {
		name     string
		sessions []models.AttendanceSession
		status   models.Punctuality
		late     int
	}{
		{"within grace", []models.AttendanceSession{closedSession("e1", "09:10", "17:00")}, models.PunctualityOnTime, 0},
		{"exactly at grace", []models.AttendanceSession{closedSession("e1", "09:15", "17:00")}, models.PunctualityOnTime, 0},
		{"late", []models.AttendanceSession{closedSession("e1", "09:20", "17:00")}, models.PunctualityLate, 20},
		{"early arrival", []models.AttendanceSession{closedSession("e1", "08:30", "17:05")}, models.PunctualityOnTime, 0},
		{"early window edge", []models.AttendanceSession{closedSession("e1", "08:00", "18:00")}, models.PunctualityOnTime, 0},
		{"no session", nil, models.PunctualityNoShow, 0},
		{"session before shift", []models.AttendanceSession{closedSession("e1", "06:00", "08:59")}, models.PunctualityNoShow, 0},
		{"long session outside window", []models.AttendanceSession{closedSession("e1", "07:00", "18:00")}, models.PunctualityCovered, 0},
		{"arrives after no-show window", []models.AttendanceSession{closedSession("e1", "11:30", "17:00")}, models.PunctualityCovered, 0},
		{"touching shift end counts as covered", []models.AttendanceSession{closedSession("e1", "17:00", "19:00")}, models.PunctualityCovered, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyShift(start, end, tc.sessions, now, policy)
			assert.Equal(t, tc.status, got.Status)
			assert.Equal(t, tc.late, got.MinutesLate)
		})
	}
}

func TestClassifyShiftFirstMatchWins(t *testing.T) {
	sessions := []models.AttendanceSession{
		closedSession("e1", "10:00", "17:00"),
		closedSession("e1", "08:55", "09:30"),
	}
	got := ClassifyShift(at("09:00"), at("17:00"), sessions, at("20:00"), DefaultPunctualityPolicy())
	require.NotNil(t, got.MatchedIn)
	assert.Equal(t, at("08:55"), *got.MatchedIn)
	assert.Equal(t, models.PunctualityOnTime, got.Status)
}

func TestClassifyShiftOpenSessionRunsUntilNow(t *testing.T) {
	sessions := []models.AttendanceSession{openSession("e1", at("09:40"))}

	got := ClassifyShift(at("09:00"), at("17:00"), sessions, at("12:00"), DefaultPunctualityPolicy())
	assert.Equal(t, models.PunctualityLate, got.Status)
	assert.Equal(t, 40, got.MinutesLate)

	overnight := []models.AttendanceSession{openSession("e1", testDay.Add(-10*time.Hour))}
	got = ClassifyShift(at("09:00"), at("17:00"), overnight, at("12:00"), DefaultPunctualityPolicy())
	assert.Equal(t, models.PunctualityCovered, got.Status)
}

func approvedShift(id, employeeID, name, start, end string) models.ShiftAssignmentDetail {
	return models.ShiftAssignmentDetail{
		ShiftAssignment: models.ShiftAssignment{
			ID:         id,
			EmployeeID: employeeID,
			DivisionID: "div-1",
			ShiftDate:  testDay,
			StartTime:  models.MustTimeOfDay(start),
			EndTime:    models.MustTimeOfDay(end),
			Status:     models.ShiftStatusApproved,
		},
		EmployeeName: name,
	}
}

func TestReconcileCountsAndRates(t *testing.T) {
	input := ReconcileInput{
		Shifts: []models.ShiftAssignmentDetail{
			approvedShift("s1", "e1", "Ana", "09:00", "17:00"),
			approvedShift("s2", "e2", "Budi", "09:00", "17:00"),
			approvedShift("s3", "e3", "Citra", "09:00", "17:00"),
			approvedShift("s4", "e4", "Dewi", "09:00", "17:00"),
		},
		Sessions: []models.AttendanceSession{
			closedSession("e1", "09:05", "17:00"),
			closedSession("e2", "09:30", "17:00"),
			closedSession("e4", "07:00", "18:00"),
		},
		Now:      at("20:00"),
		Location: time.UTC,
	}

	result := Reconcile(input)
	require.Len(t, result.Outcomes, 4)
	assert.Equal(t, KPI{
		Scheduled:      4,
		Attended:       3,
		OnTime:         2,
		Late:           1,
		NoShow:         1,
		CoveredOnly:    1,
		AttendanceRate: 75,
		OnTimeRate:     50,
		LateRate:       25,
		NoShowRate:     25,
	}, result.Totals)
	require.Len(t, result.PerEmployee, 4)
	assert.Equal(t, "Ana", result.PerEmployee[0].EmployeeName)
}

func TestReconcileRoundsRatesToOneDecimal(t *testing.T) {
	input := ReconcileInput{
		Shifts: []models.ShiftAssignmentDetail{
			approvedShift("s1", "e1", "Ana", "07:00", "09:00"),
			approvedShift("s2", "e1", "Ana", "10:00", "12:00"),
			approvedShift("s3", "e1", "Ana", "13:00", "15:00"),
		},
		Sessions: []models.AttendanceSession{closedSession("e1", "07:00", "08:30")},
		Now:      at("20:00"),
	}
	result := Reconcile(input)
	assert.Equal(t, 33.3, result.Totals.AttendanceRate)
	assert.Equal(t, 66.7, result.Totals.NoShowRate)
}

func TestReconcileZeroScheduledYieldsZeroRates(t *testing.T) {
	result := Reconcile(ReconcileInput{Now: at("12:00")})
	assert.Equal(t, KPI{}, result.Totals)
	assert.Empty(t, result.PerEmployee)
}

func TestReconcileExcludesApprovedLeave(t *testing.T) {
	input := ReconcileInput{
		Shifts: []models.ShiftAssignmentDetail{
			approvedShift("s1", "e1", "Ana", "09:00", "17:00"),
			approvedShift("s2", "e2", "Budi", "09:00", "17:00"),
		},
		Leaves: []models.LeaveRequest{
			{EmployeeID: "e1", DateFrom: testDay.AddDate(0, 0, -1), DateTo: testDay, Status: models.LeaveStatusApproved},
			{EmployeeID: "e2", DateFrom: testDay, DateTo: testDay, Status: models.LeaveStatusSubmitted},
		},
		Now: at("20:00"),
	}

	result := Reconcile(input)
	assert.Equal(t, 1, result.OnLeave)
	assert.Equal(t, 1, result.Totals.Scheduled)
	assert.Equal(t, 1, result.Totals.NoShow)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, "e2", result.Outcomes[0].EmployeeID)
}

func TestReconcileSkipsPendingAndUpcomingShifts(t *testing.T) {
	pending := approvedShift("s1", "e1", "Ana", "09:00", "17:00")
	pending.Status = models.ShiftStatusSubmitted
	input := ReconcileInput{
		Shifts: []models.ShiftAssignmentDetail{
			pending,
			approvedShift("s2", "e2", "Budi", "18:00", "22:00"),
		},
		Now: at("12:00"),
	}
	result := Reconcile(input)
	assert.Equal(t, 0, result.Totals.Scheduled)
	assert.Equal(t, 1, result.Upcoming)
}

func TestReconcileIgnoresSessionsFromOtherDays(t *testing.T) {
	old := testDay.AddDate(0, 0, -3).Add(9 * time.Hour)
	oldOut := old.Add(8 * time.Hour)
	input := ReconcileInput{
		Shifts:   []models.ShiftAssignmentDetail{approvedShift("s1", "e1", "Ana", "09:00", "17:00")},
		Sessions: []models.AttendanceSession{{ID: "x", EmployeeID: "e1", ClockIn: &old, ClockOut: &oldOut}},
		Now:      at("20:00"),
	}
	result := Reconcile(input)
	assert.Equal(t, 1, result.Totals.NoShow)
}

func TestRankings(t *testing.T) {
	rows := []EmployeeKPI{
		{EmployeeID: "e1", EmployeeName: "Ana", KPI: KPI{Late: 2, NoShow: 0}},
		{EmployeeID: "e2", EmployeeName: "Budi", KPI: KPI{Late: 2, NoShow: 1}},
		{EmployeeID: "e3", EmployeeName: "Citra", KPI: KPI{Late: 0, NoShow: 3}},
		{EmployeeID: "e4", EmployeeName: "Dewi", KPI: KPI{}},
		{EmployeeID: "e5", EmployeeName: "Eka", KPI: KPI{Late: 0, NoShow: 3}},
	}

	lateness := RankByLateness(rows, 3)
	require.Len(t, lateness, 3)
	assert.Equal(t, []string{"Budi", "Ana", "Citra"}, names(lateness))

	noShow := RankByNoShow(rows, 5)
	assert.Equal(t, []string{"Citra", "Eka", "Budi"}, names(noShow))
}

func names(rows []EmployeeKPI) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row.EmployeeName
	}
	return out
}

func TestFlagOpenSessions(t *testing.T) {
	now := at("20:00")
	early := at("08:00")
	recent := at("15:00")
	sessions := []models.AttendanceSessionDetail{
		{AttendanceSession: models.AttendanceSession{ID: "a", EmployeeID: "e1", ClockIn: &early, IsOpen: true}, EmployeeName: "Ana"},
		{AttendanceSession: models.AttendanceSession{ID: "b", EmployeeID: "e2", ClockIn: &recent, IsOpen: true}, EmployeeName: "Budi"},
	}

	views := FlagOpenSessions(sessions, now, 10*time.Hour)
	require.Len(t, views, 2)
	assert.True(t, views[0].Stale)
	assert.Equal(t, 720, views[0].OpenMinutes)
	assert.False(t, views[1].Stale)
}
