package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/clinic-attendance-api/internal/dto"
	"github.com/noah-isme/clinic-attendance-api/internal/models"
	appErrors "github.com/noah-isme/clinic-attendance-api/pkg/errors"
)

var pinPattern = regexp.MustCompile(`^\d{6}$`)

// ErrInvalidPIN is returned when a PIN is not exactly six digits.
var ErrInvalidPIN = appErrors.New("INVALID_PIN", http.StatusBadRequest, "PIN must be exactly 6 digits")

type employeeRepository interface {
	List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, error)
	FindByID(ctx context.Context, id string) (*models.Employee, error)
	FindActiveByID(ctx context.Context, id string) (*models.Employee, error)
	Create(ctx context.Context, employee *models.Employee) error
	UpdatePIN(ctx context.Context, id, pinHash string, updatedAt time.Time) error
	Deactivate(ctx context.Context, id string, updatedAt time.Time) error
	FindDivision(ctx context.Context, id string) (*models.Division, error)
	ListDivisions(ctx context.Context, activeOnly bool) ([]models.Division, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// RequestMeta carries the caller identity recorded in audit rows.
type RequestMeta struct {
	ActorID   string
	IP        string
	UserAgent string
}

// HashPIN validates and hashes a kiosk PIN.
func HashPIN(pin string) (string, error) {
	if !pinPattern.MatchString(pin) {
		return "", ErrInvalidPIN
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash PIN")
	}
	return string(hash), nil
}

// VerifyPIN reports whether candidate matches the stored hash. Malformed
// candidates never match.
func VerifyPIN(hash, candidate string) bool {
	if hash == "" || !pinPattern.MatchString(candidate) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}

// EmployeeService manages the kiosk employee directory.
type EmployeeService struct {
	repo      employeeRepository
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEmployeeService creates an instance of EmployeeService.
func NewEmployeeService(repo employeeRepository, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *EmployeeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EmployeeService{repo: repo, audit: audit, validator: validate, logger: logger, now: time.Now}
}

// ListActive returns active employees ordered by name for the kiosk home screen.
func (s *EmployeeService) ListActive(ctx context.Context) ([]dto.KioskEmployee, error) {
	employees, err := s.repo.List(ctx, models.EmployeeFilter{ActiveOnly: true})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list employees")
	}
	out := make([]dto.KioskEmployee, 0, len(employees))
	for _, e := range employees {
		out = append(out, dto.KioskEmployee{ID: e.ID, Name: e.Name})
	}
	return out, nil
}

// ListDivisions returns active divisions for the roster editor picker.
func (s *EmployeeService) ListDivisions(ctx context.Context) ([]models.Division, error) {
	divisions, err := s.repo.ListDivisions(ctx, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list divisions")
	}
	if divisions == nil {
		divisions = []models.Division{}
	}
	return divisions, nil
}

// Create registers a new employee with a hashed PIN.
func (s *EmployeeService) Create(ctx context.Context, req dto.CreateEmployeeRequest, meta RequestMeta) (*models.Employee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid employee payload")
	}
	hash, err := HashPIN(req.PIN)
	if err != nil {
		return nil, err
	}
	if req.DivisionID != nil && *req.DivisionID != "" {
		if _, err := s.repo.FindDivision(ctx, *req.DivisionID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "division not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load division")
		}
	} else {
		req.DivisionID = nil
	}

	now := s.now().UTC()
	employee := &models.Employee{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(req.Name),
		PinHash:    hash,
		Active:     true,
		DivisionID: req.DivisionID,
		IsRostered: req.IsRostered,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, employee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create employee")
	}

	newPayload, _ := json.Marshal(map[string]interface{}{"id": employee.ID, "name": employee.Name, "division_id": employee.DivisionID})
	s.recordAudit(ctx, meta, models.AuditActionEmployeeCreate, employee.ID, nil, newPayload)
	return employee, nil
}

// ResetPIN replaces the employee's PIN.
func (s *EmployeeService) ResetPIN(ctx context.Context, id string, req dto.ResetPINRequest, meta RequestMeta) error {
	hash, err := HashPIN(req.PIN)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePIN(ctx, id, hash, s.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset PIN")
	}
	s.recordAudit(ctx, meta, models.AuditActionEmployeePINReset, id, nil, nil)
	return nil
}

// Deactivate soft-deletes an employee. History stays intact.
func (s *EmployeeService) Deactivate(ctx context.Context, id string, meta RequestMeta) error {
	if err := s.repo.Deactivate(ctx, id, s.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate employee")
	}
	oldPayload, _ := json.Marshal(map[string]interface{}{"active": true})
	newPayload, _ := json.Marshal(map[string]interface{}{"active": false})
	s.recordAudit(ctx, meta, models.AuditActionEmployeeDeactivate, id, oldPayload, newPayload)
	return nil
}

func (s *EmployeeService) recordAudit(ctx context.Context, meta RequestMeta, action, resourceID string, oldValues, newValues []byte) {
	writeAudit(ctx, s.audit, s.logger, meta, action, "employees", resourceID, oldValues, newValues)
}

func writeAudit(ctx context.Context, audit auditWriter, logger *zap.Logger, meta RequestMeta, action, resource, resourceID string, oldValues, newValues []byte) {
	if audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:    action,
		Resource:  resource,
		OldValues: oldValues,
		NewValues: newValues,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	if meta.ActorID != "" {
		actor := meta.ActorID
		entry.UserID = &actor
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if err := audit.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
