package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-attendance-api/internal/models"
)

func TestLeaveDecideOnlyFromSubmitted(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)
	at := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = 'SUBMITTED'")).
		WithArgs("leave-1", models.LeaveStatusApproved, "mgr-1", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Decide(context.Background(), "leave-1", models.LeaveStatusApproved, "mgr-1", at)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListApprovedOverlapping(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("status = 'APPROVED' AND date_from <= $2 AND date_to >= $1")).
		WithArgs("2024-05-01", "2024-05-31").
		WillReturnRows(sqlmock.NewRows([]string{"id", "employee_id", "date_from", "date_to", "leave_type", "reason", "status", "requested_by", "approved_by", "decided_at", "created_at"}).
			AddRow("l1", "emp-1", from.AddDate(0, 0, -2), from.AddDate(0, 0, 1), "SICK", "", "APPROVED", nil, "mgr-1", from, from))

	leaves, err := repo.ListApprovedOverlapping(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, leaves, 1)
	assert.True(t, leaves[0].Covers(from))
	assert.NoError(t, mock.ExpectationsWereMet())
}
