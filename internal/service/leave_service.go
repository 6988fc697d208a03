package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/clinic-attendance-api/internal/dto"
	"github.com/noah-isme/clinic-attendance-api/internal/models"
	appErrors "github.com/noah-isme/clinic-attendance-api/pkg/errors"
)

type leaveStore interface {
	Create(ctx context.Context, leave *models.LeaveRequest) error
	FindByID(ctx context.Context, id string) (*models.LeaveRequest, error)
	Decide(ctx context.Context, id string, status models.LeaveStatus, deciderID string, at time.Time) error
}

type leaveEmployeeLookup interface {
	FindActiveByID(ctx context.Context, id string) (*models.Employee, error)
}

// LeaveService handles leave submission and manager decisions.
type LeaveService struct {
	leaves    leaveStore
	employees leaveEmployeeLookup
	roster    *RosterService
	audit     auditWriter
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	loc       *time.Location
	now       func() time.Time
}

// NewLeaveService constructs a LeaveService. roster authorizes non-manager
// submissions against the employee's division.
func NewLeaveService(leaves leaveStore, employees leaveEmployeeLookup, roster *RosterService, audit auditWriter, cache *CacheService, validate *validator.Validate, logger *zap.Logger, loc *time.Location) *LeaveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &LeaveService{
		leaves:    leaves,
		employees: employees,
		roster:    roster,
		audit:     audit,
		cache:     cache,
		validator: validate,
		logger:    logger,
		loc:       loc,
		now:       time.Now,
	}
}

// Submit records a leave request in SUBMITTED state.
func (s *LeaveService) Submit(ctx context.Context, actor Actor, req dto.LeaveRequestPayload) (*models.LeaveRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave payload")
	}
	from, err := time.ParseInLocation(dateLayout, strings.TrimSpace(req.DateFrom), s.loc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date_from must use YYYY-MM-DD")
	}
	to, err := time.ParseInLocation(dateLayout, strings.TrimSpace(req.DateTo), s.loc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date_to must use YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date_to must not be before date_from")
	}

	employee, err := s.employees.FindActiveByID(ctx, req.EmployeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, internalErr(err, "failed to load employee")
	}
	if !actor.Manager {
		if employee.DivisionID == nil || s.roster == nil {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to submit leave for this employee")
		}
		ok, err := s.roster.CanEditDivision(ctx, actor, *employee.DivisionID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to submit leave for this employee")
		}
	}

	leave := &models.LeaveRequest{
		EmployeeID: employee.ID,
		DateFrom:   from,
		DateTo:     to,
		Type:       req.Type,
		Reason:     strings.TrimSpace(req.Reason),
		Status:     models.LeaveStatusSubmitted,
		CreatedAt:  s.now().UTC(),
	}
	if actor.ID != "" {
		requester := actor.ID
		leave.RequestedBy = &requester
	}
	if err := s.leaves.Create(ctx, leave); err != nil {
		return nil, internalErr(err, "failed to create leave request")
	}

	payload, _ := json.Marshal(leave)
	writeAudit(ctx, s.audit, s.logger, actor.Meta(), models.AuditActionLeaveSubmit, "leave_requests", leave.ID, nil, payload)
	return leave, nil
}

// Approve marks a submitted leave request as approved.
func (s *LeaveService) Approve(ctx context.Context, actor Actor, id string) (*dto.LeaveDecisionResponse, error) {
	return s.decide(ctx, actor, id, models.LeaveStatusApproved, models.AuditActionLeaveApprove)
}

// Reject marks a submitted leave request as rejected.
func (s *LeaveService) Reject(ctx context.Context, actor Actor, id string) (*dto.LeaveDecisionResponse, error) {
	return s.decide(ctx, actor, id, models.LeaveStatusRejected, models.AuditActionLeaveReject)
}

func (s *LeaveService) decide(ctx context.Context, actor Actor, id string, status models.LeaveStatus, action string) (*dto.LeaveDecisionResponse, error) {
	if !actor.Manager {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only managers can decide leave requests")
	}
	current, err := s.leaves.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return nil, internalErr(err, "failed to load leave request")
	}
	if current.Status != models.LeaveStatusSubmitted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "leave request already "+strings.ToLower(string(current.Status)))
	}

	decidedAt := s.now().UTC()
	if err := s.leaves.Decide(ctx, id, status, actor.ID, decidedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "leave request already decided")
		}
		return nil, internalErr(err, "failed to decide leave request")
	}
	if status == models.LeaveStatusApproved {
		s.cache.InvalidateDashboards(ctx)
	}

	oldPayload, _ := json.Marshal(map[string]interface{}{"status": current.Status})
	newPayload, _ := json.Marshal(map[string]interface{}{"status": status})
	writeAudit(ctx, s.audit, s.logger, actor.Meta(), action, "leave_requests", id, oldPayload, newPayload)
	s.logger.Info("leave request decided", zap.String("leave_id", id), zap.String("status", string(status)))

	return &dto.LeaveDecisionResponse{ID: id, Status: status, DecidedAt: decidedAt}, nil
}
