package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/clinic-attendance-api/internal/models"
)

var (
	// ErrSessionAlreadyOpen is returned when an IN punch finds an open session.
	ErrSessionAlreadyOpen = errors.New("attendance session already open")
	// ErrNoOpenSession is returned when an OUT punch finds nothing to close.
	ErrNoOpenSession = errors.New("no open attendance session")
)

const uniqueViolation = "23505"

const sessionColumns = `id, employee_id, clock_in_time, clock_out_time, is_open, created_at`

// EventCounts summarises the event log for a period.
type EventCounts struct {
	Total int `db:"total"`
	Proxy int `db:"proxy"`
}

// AttendanceRepository persists sessions and the punch event log.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// FindOpenSession returns the employee's open session or sql.ErrNoRows.
func (r *AttendanceRepository) FindOpenSession(ctx context.Context, employeeID string) (*models.AttendanceSession, error) {
	query := "SELECT " + sessionColumns + " FROM attendance_sessions WHERE employee_id = $1 AND is_open = TRUE LIMIT 1"
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, employeeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find open session: %w", err)
	}
	return &session, nil
}

// LatestSession returns the most recently touched session for the employee.
func (r *AttendanceRepository) LatestSession(ctx context.Context, employeeID string) (*models.AttendanceSession, error) {
	query := "SELECT " + sessionColumns + ` FROM attendance_sessions WHERE employee_id = $1
ORDER BY is_open DESC, COALESCE(clock_out_time, clock_in_time, created_at) DESC LIMIT 1`
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, employeeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find latest session: %w", err)
	}
	return &session, nil
}

// RecordPunch applies the session transition and appends the event in one
// transaction. The employee row lock serialises punches per employee and the
// partial unique index on open sessions backs it up.
func (r *AttendanceRepository) RecordPunch(ctx context.Context, record *models.PunchRecord) (err error) {
	if record == nil || !record.Action.Valid() {
		return fmt.Errorf("record punch: invalid action")
	}
	at := record.Event.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
		record.Event.CreatedAt = at
	}
	employeeID := record.Event.SubjectEmployeeID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin punch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	if err = tx.GetContext(ctx, &locked, `SELECT id FROM employees WHERE id = $1 FOR UPDATE`, employeeID); err != nil {
		return fmt.Errorf("lock employee: %w", err)
	}

	var open models.AttendanceSession
	openErr := tx.GetContext(ctx, &open, "SELECT "+sessionColumns+" FROM attendance_sessions WHERE employee_id = $1 AND is_open = TRUE LIMIT 1 FOR UPDATE", employeeID)
	if openErr != nil && !errors.Is(openErr, sql.ErrNoRows) {
		err = fmt.Errorf("load open session: %w", openErr)
		return err
	}
	hasOpen := openErr == nil

	switch record.Action {
	case models.PunchIn:
		if hasOpen {
			err = ErrSessionAlreadyOpen
			return err
		}
		session := models.AttendanceSession{
			ID:         uuid.NewString(),
			EmployeeID: employeeID,
			ClockIn:    &at,
			IsOpen:     true,
			CreatedAt:  at,
		}
		const insertSession = `INSERT INTO attendance_sessions (id, employee_id, clock_in_time, clock_out_time, is_open, created_at)
VALUES (:id, :employee_id, :clock_in_time, :clock_out_time, :is_open, :created_at)`
		if _, err = tx.NamedExecContext(ctx, insertSession, session); err != nil {
			if isUniqueViolation(err) {
				err = ErrSessionAlreadyOpen
				return err
			}
			return fmt.Errorf("insert session: %w", err)
		}
		record.Session = session
	case models.PunchOut:
		if !hasOpen {
			err = ErrNoOpenSession
			return err
		}
		res, execErr := tx.ExecContext(ctx, `UPDATE attendance_sessions SET clock_out_time = $2, is_open = FALSE WHERE id = $1 AND is_open = TRUE`, open.ID, at)
		if execErr != nil {
			err = fmt.Errorf("close session: %w", execErr)
			return err
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			err = ErrNoOpenSession
			return err
		}
		open.ClockOut = &at
		open.IsOpen = false
		record.Session = open
	}

	if record.Event.ID == "" {
		record.Event.ID = uuid.NewString()
	}
	record.Event.EventType = record.Action
	record.Event.SessionID = record.Session.ID
	const insertEvent = `INSERT INTO attendance_events (id, event_type, session_id, subject_employee_id, witness_employee_id, created_at, photo_path, client_ip, user_agent, is_proxy, note)
VALUES (:id, :event_type, :session_id, :subject_employee_id, :witness_employee_id, :created_at, :photo_path, :client_ip, :user_agent, :is_proxy, :note)`
	if _, err = tx.NamedExecContext(ctx, insertEvent, record.Event); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit punch: %w", err)
	}
	return nil
}

// ListSessionsForRange returns sessions clocked in within [from, to) plus every
// still-open session, ordered by employee then clock-in.
func (r *AttendanceRepository) ListSessionsForRange(ctx context.Context, from, to time.Time) ([]models.AttendanceSession, error) {
	query := "SELECT " + sessionColumns + ` FROM attendance_sessions
WHERE (clock_in_time >= $1 AND clock_in_time < $2) OR is_open = TRUE
ORDER BY employee_id ASC, clock_in_time ASC NULLS LAST`
	var sessions []models.AttendanceSession
	if err := r.db.SelectContext(ctx, &sessions, query, from, to); err != nil {
		return nil, fmt.Errorf("list sessions for range: %w", err)
	}
	return sessions, nil
}

// ListOpenSessions returns open sessions oldest first.
func (r *AttendanceRepository) ListOpenSessions(ctx context.Context) ([]models.AttendanceSessionDetail, error) {
	const query = `SELECT s.id, s.employee_id, s.clock_in_time, s.clock_out_time, s.is_open, s.created_at, e.name AS employee_name
FROM attendance_sessions s
JOIN employees e ON e.id = s.employee_id
WHERE s.is_open = TRUE
ORDER BY s.clock_in_time ASC NULLS LAST`
	var sessions []models.AttendanceSessionDetail
	if err := r.db.SelectContext(ctx, &sessions, query); err != nil {
		return nil, fmt.Errorf("list open sessions: %w", err)
	}
	return sessions, nil
}

// ListEvents returns events in [from, to) newest first.
func (r *AttendanceRepository) ListEvents(ctx context.Context, from, to time.Time, limit int) ([]models.AttendanceEventDetail, error) {
	if limit <= 0 {
		limit = 200
	}
	const query = `SELECT ev.id, ev.event_type, ev.session_id, ev.subject_employee_id, ev.witness_employee_id, ev.created_at,
       ev.photo_path, ev.client_ip, ev.user_agent, ev.is_proxy, ev.note,
       s.name AS subject_name, w.name AS witness_name
FROM attendance_events ev
JOIN employees s ON s.id = ev.subject_employee_id
LEFT JOIN employees w ON w.id = ev.witness_employee_id
WHERE ev.created_at >= $1 AND ev.created_at < $2
ORDER BY ev.created_at DESC
LIMIT $3`
	var events []models.AttendanceEventDetail
	if err := r.db.SelectContext(ctx, &events, query, from, to, limit); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// CountEvents counts all and proxy events in [from, to).
func (r *AttendanceRepository) CountEvents(ctx context.Context, from, to time.Time) (EventCounts, error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE is_proxy) AS proxy
FROM attendance_events WHERE created_at >= $1 AND created_at < $2`
	var counts EventCounts
	if err := r.db.GetContext(ctx, &counts, query, from, to); err != nil {
		return EventCounts{}, fmt.Errorf("count events: %w", err)
	}
	return counts, nil
}

// FindEvent returns a single event by id.
func (r *AttendanceRepository) FindEvent(ctx context.Context, id string) (*models.AttendanceEvent, error) {
	const query = `SELECT id, event_type, session_id, subject_employee_id, witness_employee_id, created_at, photo_path, client_ip, user_agent, is_proxy, note
FROM attendance_events WHERE id = $1`
	var event models.AttendanceEvent
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return &event, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
