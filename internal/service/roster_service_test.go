package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-attendance-api/internal/dto"
	"github.com/noah-isme/clinic-attendance-api/internal/models"
	"github.com/noah-isme/clinic-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/clinic-attendance-api/pkg/errors"
)

// fakeRosterStore mimics the unique (employee, date, start, end) key.
type fakeRosterStore struct {
	mu        sync.Mutex
	templates []models.ShiftTemplate
	rows      []models.ShiftAssignment
	seq       int
}

func (f *fakeRosterStore) CreateTemplate(ctx context.Context, tpl *models.ShiftTemplate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	tpl.ID = fmt.Sprintf("tpl-%d", f.seq)
	f.templates = append(f.templates, *tpl)
	return nil
}

func (f *fakeRosterStore) ListTemplates(ctx context.Context, divisionID string, activeOnly bool) ([]models.ShiftTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ShiftTemplate
	for _, tpl := range f.templates {
		if tpl.DivisionID == divisionID && (!activeOnly || tpl.Active) {
			out = append(out, tpl)
		}
	}
	return out, nil
}

func (f *fakeRosterStore) ListAssignments(ctx context.Context, filter models.ShiftFilter) ([]models.ShiftAssignmentDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ShiftAssignmentDetail
	for _, row := range f.rows {
		if row.ShiftDate.Before(filter.From) || row.ShiftDate.After(filter.To) {
			continue
		}
		if filter.DivisionID != nil && row.DivisionID != *filter.DivisionID {
			continue
		}
		if filter.Status != nil && row.Status != *filter.Status {
			continue
		}
		out = append(out, models.ShiftAssignmentDetail{ShiftAssignment: row})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.ShiftDate.Equal(b.ShiftDate) {
			return a.ShiftDate.Before(b.ShiftDate)
		}
		if a.EmployeeID != b.EmployeeID {
			return a.EmployeeID < b.EmployeeID
		}
		return a.StartTime < b.StartTime
	})
	return out, nil
}

func (f *fakeRosterStore) ReplaceCells(ctx context.Context, cells []repository.RosterCell, rows []models.ShiftAssignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.rows[:0]
	for _, row := range f.rows {
		cleared := false
		for _, cell := range cells {
			if row.EmployeeID == cell.EmployeeID && row.ShiftDate.Equal(cell.Date) {
				cleared = true
				break
			}
		}
		if !cleared {
			kept = append(kept, row)
		}
	}
	f.rows = kept
	for _, row := range rows {
		duplicate := false
		for _, existing := range f.rows {
			if existing.EmployeeID == row.EmployeeID && existing.ShiftDate.Equal(row.ShiftDate) &&
				existing.StartTime == row.StartTime && existing.EndTime == row.EndTime {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		f.seq++
		row.ID = fmt.Sprintf("shift-%d", f.seq)
		f.rows = append(f.rows, row)
	}
	return nil
}

func (f *fakeRosterStore) ApproveRange(ctx context.Context, divisionID string, from, to time.Time, approverID string, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.rows {
		row := &f.rows[i]
		if row.DivisionID != divisionID || row.ShiftDate.Before(from) || row.ShiftDate.After(to) || !row.Status.Pending() {
			continue
		}
		approver := approverID
		stamp := at
		row.Status = models.ShiftStatusApproved
		row.ApprovedBy = &approver
		row.ApprovedAt = &stamp
		n++
	}
	return n, nil
}

func (f *fakeRosterStore) CountPending(ctx context.Context, divisionID *string, from, to time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, row := range f.rows {
		if divisionID != nil && row.DivisionID != *divisionID {
			continue
		}
		if row.ShiftDate.Before(from) || row.ShiftDate.After(to) || !row.Status.Pending() {
			continue
		}
		n++
	}
	return n, nil
}

type fakeEditors map[string]bool

func (f fakeEditors) IsRosterEditor(ctx context.Context, userID, divisionID string) (bool, error) {
	return f[userID+"|"+divisionID], nil
}

type rosterFixture struct {
	svc    *RosterService
	store  *fakeRosterStore
	leaves *fakeLeaves
	audit  *fakeAudit
}

var (
	testManager = Actor{ID: "mgr-1", Manager: true}
	testEditor  = Actor{ID: "editor-1"}
)

func newRosterFixture(t *testing.T) *rosterFixture {
	t.Helper()
	division := "div-1"
	employees := newFakeEmployeeRepo(
		models.Employee{ID: "e1", Name: "Ana", Active: true, DivisionID: &division, IsRostered: true},
		models.Employee{ID: "e2", Name: "Budi", Active: true, DivisionID: &division, IsRostered: true},
		models.Employee{ID: "e9", Name: "Zed", Active: true},
	)
	employees.divisions[division] = &models.Division{ID: division, Name: "Nursing", Active: true}
	employees.divisions["div-2"] = &models.Division{ID: "div-2", Name: "Pharmacy", Active: true}

	store := &fakeRosterStore{templates: []models.ShiftTemplate{
		{ID: "morning", DivisionID: division, Name: "Morning", StartTime: models.MustTimeOfDay("07:00"), EndTime: models.MustTimeOfDay("14:00"), Active: true},
		{ID: "evening", DivisionID: division, Name: "Evening", StartTime: models.MustTimeOfDay("14:00"), EndTime: models.MustTimeOfDay("21:00"), Active: true},
		{ID: "retired", DivisionID: division, Name: "Retired", StartTime: models.MustTimeOfDay("09:00"), EndTime: models.MustTimeOfDay("17:00"), Active: false},
	}}
	leaves := &fakeLeaves{}
	audit := &fakeAudit{}
	svc := NewRosterService(RosterServiceParams{
		Roster:    store,
		Employees: employees,
		Leaves:    leaves,
		Editors:   fakeEditors{"editor-1|div-1": true},
		Audit:     audit,
		Location:  time.UTC,
	})
	svc.now = func() time.Time { return at("10:00") }
	return &rosterFixture{svc: svc, store: store, leaves: leaves, audit: audit}
}

func weekRequest(cells ...dto.RosterCellSelection) dto.ReplaceWeekRequest {
	return dto.ReplaceWeekRequest{DivisionID: "div-1", WeekStart: "2024-05-06", Cells: cells}
}

type shiftKey struct {
	Employee string
	Date     string
	Start    string
	Status   models.ShiftStatus
}

func shiftKeys(t *testing.T, f *rosterFixture) []shiftKey {
	t.Helper()
	rows, err := f.store.ListAssignments(context.Background(), models.ShiftFilter{From: testDay, To: testDay.AddDate(0, 0, 6)})
	require.NoError(t, err)
	keys := make([]shiftKey, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, shiftKey{r.EmployeeID, r.ShiftDate.Format(dateLayout), r.StartTime.String(), r.Status})
	}
	return keys
}

func TestReplaceWeekIsIdempotent(t *testing.T) {
	f := newRosterFixture(t)
	ctx := context.Background()
	req := weekRequest(
		dto.RosterCellSelection{EmployeeID: "e1", Date: "2024-05-06", TemplateIDs: []string{"morning", "evening"}},
		dto.RosterCellSelection{EmployeeID: "e2", Date: "2024-05-07", TemplateIDs: []string{"morning", "morning"}},
	)

	first, err := f.svc.ReplaceWeek(ctx, testManager, req)
	require.NoError(t, err)
	assert.Equal(t, 3, first.ShiftsSaved)
	assert.Equal(t, models.ShiftStatusApproved, first.Status)
	before := shiftKeys(t, f)

	_, err = f.svc.ReplaceWeek(ctx, testManager, req)
	require.NoError(t, err)
	assert.Equal(t, before, shiftKeys(t, f))
	assert.Len(t, before, 3)
}

func TestReplaceWeekClearsAndRewritesCells(t *testing.T) {
	f := newRosterFixture(t)
	ctx := context.Background()

	_, err := f.svc.ReplaceWeek(ctx, testManager, weekRequest(
		dto.RosterCellSelection{EmployeeID: "e1", Date: "2024-05-06", TemplateIDs: []string{"morning"}},
		dto.RosterCellSelection{EmployeeID: "e2", Date: "2024-05-06", TemplateIDs: []string{"evening"}},
	))
	require.NoError(t, err)

	resp, err := f.svc.ReplaceWeek(ctx, testManager, weekRequest(
		dto.RosterCellSelection{EmployeeID: "e1", Date: "2024-05-06", TemplateIDs: nil},
	))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.CellsCleared)
	assert.Equal(t, 0, resp.ShiftsSaved)
	assert.Equal(t, []shiftKey{{"e2", "2024-05-06", "14:00", models.ShiftStatusApproved}}, shiftKeys(t, f))
}

func TestReplaceWeekEditorSubmitsForApproval(t *testing.T) {
	f := newRosterFixture(t)
	ctx := context.Background()

	resp, err := f.svc.ReplaceWeek(ctx, testEditor, weekRequest(
		dto.RosterCellSelection{EmployeeID: "e1", Date: "2024-05-08", TemplateIDs: []string{"morning"}},
	))
	require.NoError(t, err)
	assert.Equal(t, models.ShiftStatusSubmitted, resp.Status)

	view, err := f.svc.WeekView(ctx, testEditor, "div-1", "2024-05-09")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-06", view.WeekStart)
	assert.Equal(t, "2024-05-12", view.WeekEnd)
	assert.Equal(t, 1, view.PendingCount)
	assert.Len(t, view.Employees, 2)
	assert.Len(t, view.Templates, 2)

	_, err = f.svc.ApproveWeek(ctx, testEditor, dto.ApproveWeekRequest{DivisionID: "div-1", WeekStart: "2024-05-06"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	approved, err := f.svc.ApproveWeek(ctx, testManager, dto.ApproveWeekRequest{DivisionID: "div-1", WeekStart: "2024-05-06"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, approved.Approved)
	assert.Equal(t, []shiftKey{{"e1", "2024-05-08", "07:00", models.ShiftStatusApproved}}, shiftKeys(t, f))
	require.NotNil(t, f.store.rows[0].ApprovedBy)
	assert.Equal(t, "mgr-1", *f.store.rows[0].ApprovedBy)

	assert.Equal(t, []string{models.AuditActionRosterReplace, models.AuditActionRosterApprove}, f.audit.actions())
}

func TestReplaceWeekSkipsApprovedLeave(t *testing.T) {
	f := newRosterFixture(t)
	f.leaves.leaves = []models.LeaveRequest{{
		EmployeeID: "e1",
		DateFrom:   testDay.AddDate(0, 0, 1),
		DateTo:     testDay.AddDate(0, 0, 2),
		Status:     models.LeaveStatusApproved,
	}}

	resp, err := f.svc.ReplaceWeek(context.Background(), testManager, weekRequest(
		dto.RosterCellSelection{EmployeeID: "e1", Date: "2024-05-06", TemplateIDs: []string{"morning"}},
		dto.RosterCellSelection{EmployeeID: "e1", Date: "2024-05-07", TemplateIDs: []string{"morning"}},
	))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ShiftsSaved)
	assert.Equal(t, []dto.RosterCellRef{{EmployeeID: "e1", Date: "2024-05-07"}}, resp.SkippedLeave)
}

func TestReplaceWeekRejections(t *testing.T) {
	tests := []struct {
		name  string
		actor Actor
		req   dto.ReplaceWeekRequest
		want  *appErrors.Error
	}{
		{"non editor", Actor{ID: "stranger"}, weekRequest(), appErrors.ErrForbidden},
		{"unknown division", testManager, dto.ReplaceWeekRequest{DivisionID: "div-x", WeekStart: "2024-05-06"}, appErrors.ErrNotFound},
		{"bad week start", testManager, dto.ReplaceWeekRequest{DivisionID: "div-1", WeekStart: "06/05/2024"}, appErrors.ErrValidation},
		{"employee outside division", testManager, weekRequest(dto.RosterCellSelection{EmployeeID: "e9", Date: "2024-05-06"}), appErrors.ErrValidation},
		{"date outside week", testManager, weekRequest(dto.RosterCellSelection{EmployeeID: "e1", Date: "2024-05-13"}), appErrors.ErrValidation},
		{"inactive template", testManager, weekRequest(dto.RosterCellSelection{EmployeeID: "e1", Date: "2024-05-06", TemplateIDs: []string{"retired"}}), appErrors.ErrValidation},
		{"duplicate cell", testManager, weekRequest(
			dto.RosterCellSelection{EmployeeID: "e1", Date: "2024-05-06"},
			dto.RosterCellSelection{EmployeeID: "e1", Date: "2024-05-06"},
		), appErrors.ErrValidation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newRosterFixture(t)
			_, err := f.svc.ReplaceWeek(context.Background(), tc.actor, tc.req)
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, f.store.rows)
		})
	}
}

func TestCreateTemplate(t *testing.T) {
	f := newRosterFixture(t)
	ctx := context.Background()

	tpl, err := f.svc.CreateTemplate(ctx, testManager, "div-2", dto.CreateTemplateRequest{Name: " Night-ish ", StartTime: "16:00", EndTime: "23:30"})
	require.NoError(t, err)
	assert.Equal(t, "Night-ish", tpl.Name)
	assert.Equal(t, "23:30", tpl.EndTime.String())
	assert.True(t, tpl.Active)

	_, err = f.svc.CreateTemplate(ctx, testManager, "div-2", dto.CreateTemplateRequest{Name: "Overnight", StartTime: "22:00", EndTime: "06:00"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.CreateTemplate(ctx, testEditor, "div-1", dto.CreateTemplateRequest{Name: "x", StartTime: "08:00", EndTime: "09:00"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}
