package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/clinic-attendance-api/internal/models"
)

const (
	templateColumns   = `id, division_id, name, start_time, end_time, is_active, created_at`
	assignmentColumns = `a.id, a.employee_id, a.division_id, a.template_id, a.shift_date, a.start_time, a.end_time, a.status,
       a.entered_by, a.approved_by, a.approved_at, a.created_at, a.updated_at`
)

// RosterCell addresses one (employee, date) roster slot.
type RosterCell struct {
	EmployeeID string
	Date       time.Time
}

// RosterRepository persists shift templates and assignments.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository constructs the repository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// CreateTemplate inserts a shift template.
func (r *RosterRepository) CreateTemplate(ctx context.Context, tpl *models.ShiftTemplate) error {
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO shift_templates (id, division_id, name, start_time, end_time, is_active, created_at)
VALUES (:id, :division_id, :name, :start_time, :end_time, :is_active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tpl); err != nil {
		return fmt.Errorf("create shift template: %w", err)
	}
	return nil
}

// ListTemplates returns a division's templates ordered by start time.
func (r *RosterRepository) ListTemplates(ctx context.Context, divisionID string, activeOnly bool) ([]models.ShiftTemplate, error) {
	query := "SELECT " + templateColumns + " FROM shift_templates WHERE division_id = $1"
	if activeOnly {
		query += " AND is_active = TRUE"
	}
	query += " ORDER BY start_time ASC, name ASC"
	var templates []models.ShiftTemplate
	if err := r.db.SelectContext(ctx, &templates, query, divisionID); err != nil {
		return nil, fmt.Errorf("list shift templates: %w", err)
	}
	return templates, nil
}

// ListAssignments returns assignments in [filter.From, filter.To] with employee names.
func (r *RosterRepository) ListAssignments(ctx context.Context, filter models.ShiftFilter) ([]models.ShiftAssignmentDetail, error) {
	conditions := []string{"a.shift_date >= $1", "a.shift_date <= $2"}
	args := []interface{}{dateParam(filter.From), dateParam(filter.To)}

	if filter.DivisionID != nil {
		args = append(args, *filter.DivisionID)
		conditions = append(conditions, fmt.Sprintf("a.division_id = $%d", len(args)))
	}
	if filter.EmployeeID != nil {
		args = append(args, *filter.EmployeeID)
		conditions = append(conditions, fmt.Sprintf("a.employee_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)))
	}

	query := "SELECT " + assignmentColumns + `, e.name AS employee_name
FROM shift_assignments a
JOIN employees e ON e.id = a.employee_id
WHERE ` + strings.Join(conditions, " AND ") + `
ORDER BY a.shift_date ASC, e.name ASC, a.start_time ASC`

	var rows []models.ShiftAssignmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list shift assignments: %w", err)
	}
	return rows, nil
}

// ReplaceCells deletes every assignment in the given cells and inserts rows in
// their place, all in one transaction. Identical rows collapse on the unique key.
func (r *RosterRepository) ReplaceCells(ctx context.Context, cells []RosterCell, rows []models.ShiftAssignment) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace roster cells: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, cell := range cells {
		if _, err = tx.ExecContext(ctx, `DELETE FROM shift_assignments WHERE employee_id = $1 AND shift_date = $2`, cell.EmployeeID, dateParam(cell.Date)); err != nil {
			return fmt.Errorf("clear roster cell: %w", err)
		}
	}

	const insert = `INSERT INTO shift_assignments (id, employee_id, division_id, template_id, shift_date, start_time, end_time, status, entered_by, approved_by, approved_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (employee_id, shift_date, start_time, end_time) DO NOTHING`
	now := time.Now().UTC()
	for i := range rows {
		row := &rows[i]
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		row.UpdatedAt = now
		if _, err = tx.ExecContext(ctx, insert,
			row.ID, row.EmployeeID, row.DivisionID, row.TemplateID, dateParam(row.ShiftDate),
			row.StartTime, row.EndTime, row.Status, row.EnteredBy, row.ApprovedBy, row.ApprovedAt,
			row.CreatedAt, row.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert shift assignment: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace roster cells: %w", err)
	}
	return nil
}

// ApproveRange moves every DRAFT or SUBMITTED row of the division within
// [from, to] to APPROVED and returns how many rows changed.
func (r *RosterRepository) ApproveRange(ctx context.Context, divisionID string, from, to time.Time, approverID string, at time.Time) (int64, error) {
	const query = `UPDATE shift_assignments
SET status = 'APPROVED', approved_by = $4, approved_at = $5, updated_at = $5
WHERE division_id = $1 AND shift_date >= $2 AND shift_date <= $3 AND status IN ('DRAFT', 'SUBMITTED')`
	res, err := r.db.ExecContext(ctx, query, divisionID, dateParam(from), dateParam(to), approverID, at)
	if err != nil {
		return 0, fmt.Errorf("approve roster range: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("approve roster rows affected: %w", err)
	}
	return affected, nil
}

// CountPending counts DRAFT or SUBMITTED rows in [from, to], optionally per division.
func (r *RosterRepository) CountPending(ctx context.Context, divisionID *string, from, to time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM shift_assignments WHERE shift_date >= $1 AND shift_date <= $2 AND status IN ('DRAFT', 'SUBMITTED')`
	args := []interface{}{dateParam(from), dateParam(to)}
	if divisionID != nil {
		query += " AND division_id = $3"
		args = append(args, *divisionID)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count pending shifts: %w", err)
	}
	return count, nil
}

// dateParam renders a calendar date so DATE comparisons ignore time zones.
func dateParam(t time.Time) string {
	return t.Format("2006-01-02")
}
