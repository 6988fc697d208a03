package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/clinic-attendance-api/internal/models"
)

const leaveColumns = `id, employee_id, date_from, date_to, leave_type, reason, status, requested_by, approved_by, decided_at, created_at`

// LeaveRepository persists leave requests.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs the repository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// Create inserts a leave request.
func (r *LeaveRepository) Create(ctx context.Context, leave *models.LeaveRequest) error {
	if leave.ID == "" {
		leave.ID = uuid.NewString()
	}
	if leave.CreatedAt.IsZero() {
		leave.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO leave_requests (id, employee_id, date_from, date_to, leave_type, reason, status, requested_by, approved_by, decided_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.db.ExecContext(ctx, query,
		leave.ID, leave.EmployeeID, dateParam(leave.DateFrom), dateParam(leave.DateTo), leave.Type, leave.Reason,
		leave.Status, leave.RequestedBy, leave.ApprovedBy, leave.DecidedAt, leave.CreatedAt,
	); err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	return nil
}

// FindByID returns a leave request.
func (r *LeaveRepository) FindByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	query := "SELECT " + leaveColumns + " FROM leave_requests WHERE id = $1"
	var leave models.LeaveRequest
	if err := r.db.GetContext(ctx, &leave, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find leave request: %w", err)
	}
	return &leave, nil
}

// Decide transitions a SUBMITTED request. It returns sql.ErrNoRows when the
// request was already decided.
func (r *LeaveRepository) Decide(ctx context.Context, id string, status models.LeaveStatus, deciderID string, at time.Time) error {
	const query = `UPDATE leave_requests SET status = $2, approved_by = $3, decided_at = $4 WHERE id = $1 AND status = 'SUBMITTED'`
	res, err := r.db.ExecContext(ctx, query, id, status, deciderID, at)
	if err != nil {
		return fmt.Errorf("decide leave request: %w", err)
	}
	return expectAffected(res)
}

// ListApprovedOverlapping returns approved leave intersecting [from, to].
func (r *LeaveRepository) ListApprovedOverlapping(ctx context.Context, from, to time.Time) ([]models.LeaveRequest, error) {
	query := "SELECT " + leaveColumns + ` FROM leave_requests
WHERE status = 'APPROVED' AND date_from <= $2 AND date_to >= $1
ORDER BY employee_id ASC, date_from ASC`
	var leaves []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &leaves, query, dateParam(from), dateParam(to)); err != nil {
		return nil, fmt.Errorf("list approved leave: %w", err)
	}
	return leaves, nil
}
