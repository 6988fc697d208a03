package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/clinic-attendance-api/internal/models"
)

const employeeColumns = `id, name, pin_hash, is_active, division_id, is_rostered, created_at, updated_at`

// EmployeeRepository manages kiosk employees and their divisions.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository constructs the repository.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// List returns employees ordered by name.
func (r *EmployeeRepository) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, error) {
	var conditions []string
	var args []interface{}

	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}
	if filter.RosteredOnly {
		conditions = append(conditions, "is_rostered = TRUE")
	}
	if filter.DivisionID != nil {
		args = append(args, *filter.DivisionID)
		conditions = append(conditions, fmt.Sprintf("division_id = $%d", len(args)))
	}

	query := "SELECT " + employeeColumns + " FROM employees"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name ASC, id ASC"

	var employees []models.Employee
	if err := r.db.SelectContext(ctx, &employees, query, args...); err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return employees, nil
}

// FindByID returns an employee regardless of active state.
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*models.Employee, error) {
	query := "SELECT " + employeeColumns + " FROM employees WHERE id = $1"
	var employee models.Employee
	if err := r.db.GetContext(ctx, &employee, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find employee: %w", err)
	}
	return &employee, nil
}

// FindActiveByID returns the employee only when active.
func (r *EmployeeRepository) FindActiveByID(ctx context.Context, id string) (*models.Employee, error) {
	query := "SELECT " + employeeColumns + " FROM employees WHERE id = $1 AND is_active = TRUE"
	var employee models.Employee
	if err := r.db.GetContext(ctx, &employee, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find active employee: %w", err)
	}
	return &employee, nil
}

// Create inserts a new employee.
func (r *EmployeeRepository) Create(ctx context.Context, employee *models.Employee) error {
	if employee.ID == "" {
		employee.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if employee.CreatedAt.IsZero() {
		employee.CreatedAt = now
	}
	employee.UpdatedAt = now

	const query = `INSERT INTO employees (id, name, pin_hash, is_active, division_id, is_rostered, created_at, updated_at)
VALUES (:id, :name, :pin_hash, :is_active, :division_id, :is_rostered, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, employee); err != nil {
		return fmt.Errorf("create employee: %w", err)
	}
	return nil
}

// UpdatePIN replaces the stored PIN hash.
func (r *EmployeeRepository) UpdatePIN(ctx context.Context, id, pinHash string, updatedAt time.Time) error {
	const query = `UPDATE employees SET pin_hash = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, pinHash, updatedAt)
	if err != nil {
		return fmt.Errorf("update employee pin: %w", err)
	}
	return expectAffected(res)
}

// Deactivate marks the employee inactive.
func (r *EmployeeRepository) Deactivate(ctx context.Context, id string, updatedAt time.Time) error {
	const query = `UPDATE employees SET is_active = FALSE, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, updatedAt)
	if err != nil {
		return fmt.Errorf("deactivate employee: %w", err)
	}
	return expectAffected(res)
}

// ListDivisions returns divisions ordered by name.
func (r *EmployeeRepository) ListDivisions(ctx context.Context, activeOnly bool) ([]models.Division, error) {
	query := `SELECT id, name, is_active, created_at FROM divisions`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name ASC`
	var divisions []models.Division
	if err := r.db.SelectContext(ctx, &divisions, query); err != nil {
		return nil, fmt.Errorf("list divisions: %w", err)
	}
	return divisions, nil
}

// FindDivision returns a division by id.
func (r *EmployeeRepository) FindDivision(ctx context.Context, id string) (*models.Division, error) {
	const query = `SELECT id, name, is_active, created_at FROM divisions WHERE id = $1`
	var division models.Division
	if err := r.db.GetContext(ctx, &division, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find division: %w", err)
	}
	return &division, nil
}

// UpsertDivision inserts a division by name and returns its id.
func (r *EmployeeRepository) UpsertDivision(ctx context.Context, division *models.Division) error {
	if division.ID == "" {
		division.ID = uuid.NewString()
	}
	if division.CreatedAt.IsZero() {
		division.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO divisions (id, name, is_active, created_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (name) DO UPDATE SET is_active = EXCLUDED.is_active
RETURNING id`
	if err := r.db.GetContext(ctx, &division.ID, query, division.ID, division.Name, division.Active, division.CreatedAt); err != nil {
		return fmt.Errorf("upsert division: %w", err)
	}
	return nil
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
