package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/clinic-attendance-api/internal/dto"
	"github.com/noah-isme/clinic-attendance-api/internal/models"
	"github.com/noah-isme/clinic-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/clinic-attendance-api/pkg/errors"
)

// Actor is the authenticated back-office caller.
type Actor struct {
	ID        string
	Manager   bool
	IP        string
	UserAgent string
}

// ActorFromClaims builds an Actor from verified access token claims.
func ActorFromClaims(claims *models.JWTClaims, ip, userAgent string) Actor {
	if claims == nil {
		return Actor{IP: ip, UserAgent: userAgent}
	}
	return Actor{ID: claims.UserID, Manager: claims.IsManager(), IP: ip, UserAgent: userAgent}
}

// Meta returns the audit metadata for the actor.
func (a Actor) Meta() RequestMeta {
	return RequestMeta{ActorID: a.ID, IP: a.IP, UserAgent: a.UserAgent}
}

type rosterStore interface {
	CreateTemplate(ctx context.Context, tpl *models.ShiftTemplate) error
	ListTemplates(ctx context.Context, divisionID string, activeOnly bool) ([]models.ShiftTemplate, error)
	ListAssignments(ctx context.Context, filter models.ShiftFilter) ([]models.ShiftAssignmentDetail, error)
	ReplaceCells(ctx context.Context, cells []repository.RosterCell, rows []models.ShiftAssignment) error
	ApproveRange(ctx context.Context, divisionID string, from, to time.Time, approverID string, at time.Time) (int64, error)
	CountPending(ctx context.Context, divisionID *string, from, to time.Time) (int, error)
}

type divisionDirectory interface {
	List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, error)
	FindDivision(ctx context.Context, id string) (*models.Division, error)
}

type rosterEditorChecker interface {
	IsRosterEditor(ctx context.Context, userID, divisionID string) (bool, error)
}

// RosterService implements the weekly roster editor and its approval gate.
type RosterService struct {
	roster    rosterStore
	employees divisionDirectory
	leaves    leaveReader
	editors   rosterEditorChecker
	audit     auditWriter
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	loc       *time.Location
	now       func() time.Time
}

// RosterServiceParams groups constructor dependencies.
type RosterServiceParams struct {
	Roster    rosterStore
	Employees divisionDirectory
	Leaves    leaveReader
	Editors   rosterEditorChecker
	Audit     auditWriter
	Cache     *CacheService
	Validator *validator.Validate
	Logger    *zap.Logger
	Location  *time.Location
}

// NewRosterService constructs a RosterService.
func NewRosterService(params RosterServiceParams) *RosterService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &RosterService{
		roster:    params.Roster,
		employees: params.Employees,
		leaves:    params.Leaves,
		editors:   params.Editors,
		audit:     params.Audit,
		cache:     params.Cache,
		validator: validate,
		logger:    logger,
		loc:       loc,
		now:       time.Now,
	}
}

// CanEditDivision reports whether the actor may edit the division's roster.
// Managers may edit every division.
func (s *RosterService) CanEditDivision(ctx context.Context, actor Actor, divisionID string) (bool, error) {
	if actor.Manager {
		return true, nil
	}
	if actor.ID == "" || s.editors == nil {
		return false, nil
	}
	ok, err := s.editors.IsRosterEditor(ctx, actor.ID, divisionID)
	if err != nil {
		return false, internalErr(err, "failed to check roster permission")
	}
	return ok, nil
}

// WeekView returns the editor grid for a division week.
func (s *RosterService) WeekView(ctx context.Context, actor Actor, divisionID, weekStart string) (*dto.RosterWeekResponse, error) {
	start, err := s.parseWeekStart(weekStart)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeDivision(ctx, actor, divisionID); err != nil {
		return nil, err
	}
	end := start.AddDate(0, 0, 6)

	employees, err := s.employees.List(ctx, models.EmployeeFilter{DivisionID: &divisionID, ActiveOnly: true, RosteredOnly: true})
	if err != nil {
		return nil, internalErr(err, "failed to list division employees")
	}
	templates, err := s.roster.ListTemplates(ctx, divisionID, true)
	if err != nil {
		return nil, internalErr(err, "failed to list shift templates")
	}
	assignments, err := s.roster.ListAssignments(ctx, models.ShiftFilter{DivisionID: &divisionID, From: start, To: end})
	if err != nil {
		return nil, internalErr(err, "failed to list assignments")
	}
	pending, err := s.roster.CountPending(ctx, &divisionID, start, end)
	if err != nil {
		return nil, internalErr(err, "failed to count pending shifts")
	}

	if employees == nil {
		employees = []models.Employee{}
	}
	if templates == nil {
		templates = []models.ShiftTemplate{}
	}
	if assignments == nil {
		assignments = []models.ShiftAssignmentDetail{}
	}
	return &dto.RosterWeekResponse{
		DivisionID:   divisionID,
		WeekStart:    start.Format(dateLayout),
		WeekEnd:      end.Format(dateLayout),
		Employees:    employees,
		Templates:    templates,
		Assignments:  assignments,
		PendingCount: pending,
	}, nil
}

// ReplaceWeek replaces every submitted (employee, date) cell with the chosen
// templates. Managers write APPROVED rows; roster editors write SUBMITTED rows.
// Cells of employees on approved leave are cleared and left empty.
func (s *RosterService) ReplaceWeek(ctx context.Context, actor Actor, req dto.ReplaceWeekRequest) (*dto.ReplaceWeekResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster payload")
	}
	start, err := s.parseWeekStart(req.WeekStart)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeDivision(ctx, actor, req.DivisionID); err != nil {
		return nil, err
	}
	end := start.AddDate(0, 0, 6)

	members, err := s.employees.List(ctx, models.EmployeeFilter{DivisionID: &req.DivisionID, ActiveOnly: true, RosteredOnly: true})
	if err != nil {
		return nil, internalErr(err, "failed to list division employees")
	}
	memberSet := make(map[string]struct{}, len(members))
	for _, m := range members {
		memberSet[m.ID] = struct{}{}
	}

	templates, err := s.roster.ListTemplates(ctx, req.DivisionID, true)
	if err != nil {
		return nil, internalErr(err, "failed to list shift templates")
	}
	templateByID := make(map[string]models.ShiftTemplate, len(templates))
	for _, tpl := range templates {
		templateByID[tpl.ID] = tpl
	}

	leaves, err := s.leaves.ListApprovedOverlapping(ctx, start, end)
	if err != nil {
		return nil, internalErr(err, "failed to load leave")
	}
	leaveByEmployee := make(map[string][]models.LeaveRequest)
	for _, l := range leaves {
		leaveByEmployee[l.EmployeeID] = append(leaveByEmployee[l.EmployeeID], l)
	}

	status := models.ShiftStatusSubmitted
	var approvedBy *string
	var approvedAt *time.Time
	now := s.now().UTC()
	if actor.Manager {
		status = models.ShiftStatusApproved
		approver := actor.ID
		approvedBy = &approver
		approvedAt = &now
	}
	var enteredBy *string
	if actor.ID != "" {
		entered := actor.ID
		enteredBy = &entered
	}

	resp := &dto.ReplaceWeekResponse{
		DivisionID:   req.DivisionID,
		WeekStart:    start.Format(dateLayout),
		Status:       status,
		SkippedLeave: []dto.RosterCellRef{},
	}
	seenCells := make(map[string]struct{}, len(req.Cells))
	cells := make([]repository.RosterCell, 0, len(req.Cells))
	rows := make([]models.ShiftAssignment, 0, len(req.Cells))

	for _, sel := range req.Cells {
		date, err := s.parseDate(sel.Date)
		if err != nil {
			return nil, err
		}
		if date.Before(start) || date.After(end) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "cell date "+sel.Date+" is outside the roster week")
		}
		if _, ok := memberSet[sel.EmployeeID]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "employee "+sel.EmployeeID+" is not rostered in this division")
		}
		cellKey := sel.EmployeeID + "|" + sel.Date
		if _, dup := seenCells[cellKey]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate roster cell "+cellKey)
		}
		seenCells[cellKey] = struct{}{}
		cells = append(cells, repository.RosterCell{EmployeeID: sel.EmployeeID, Date: date})
		resp.CellsCleared++

		if onLeave(leaveByEmployee[sel.EmployeeID], date) {
			if len(sel.TemplateIDs) > 0 {
				resp.SkippedLeave = append(resp.SkippedLeave, dto.RosterCellRef{EmployeeID: sel.EmployeeID, Date: sel.Date})
			}
			continue
		}

		for _, templateID := range uniqueStrings(sel.TemplateIDs) {
			tpl, ok := templateByID[templateID]
			if !ok {
				return nil, appErrors.Clone(appErrors.ErrValidation, "unknown or inactive shift template "+templateID)
			}
			tplID := tpl.ID
			rows = append(rows, models.ShiftAssignment{
				EmployeeID: sel.EmployeeID,
				DivisionID: req.DivisionID,
				TemplateID: &tplID,
				ShiftDate:  date,
				StartTime:  tpl.StartTime,
				EndTime:    tpl.EndTime,
				Status:     status,
				EnteredBy:  enteredBy,
				ApprovedBy: approvedBy,
				ApprovedAt: approvedAt,
			})
		}
	}

	if len(cells) == 0 {
		return resp, nil
	}
	if err := s.roster.ReplaceCells(ctx, cells, rows); err != nil {
		return nil, internalErr(err, "failed to save roster")
	}
	resp.ShiftsSaved = len(rows)

	s.cache.InvalidateDashboards(ctx)
	payload, _ := json.Marshal(map[string]interface{}{"week_start": resp.WeekStart, "cells": len(cells), "shifts": len(rows), "status": status})
	writeAudit(ctx, s.audit, s.logger, actor.Meta(), models.AuditActionRosterReplace, "shift_assignments", req.DivisionID, nil, payload)
	s.logger.Info("roster week replaced",
		zap.String("division_id", req.DivisionID),
		zap.String("week_start", resp.WeekStart),
		zap.Int("cells", len(cells)),
		zap.Int("shifts", len(rows)),
		zap.String("status", string(status)),
	)
	return resp, nil
}

// ApproveWeek moves every pending row of the division week to APPROVED.
func (s *RosterService) ApproveWeek(ctx context.Context, actor Actor, req dto.ApproveWeekRequest) (*dto.ApproveWeekResponse, error) {
	if !actor.Manager {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only managers can approve rosters")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}
	start, err := s.parseWeekStart(req.WeekStart)
	if err != nil {
		return nil, err
	}
	if err := s.ensureDivision(ctx, req.DivisionID); err != nil {
		return nil, err
	}
	end := start.AddDate(0, 0, 6)

	approved, err := s.roster.ApproveRange(ctx, req.DivisionID, start, end, actor.ID, s.now().UTC())
	if err != nil {
		return nil, internalErr(err, "failed to approve roster")
	}
	if approved > 0 {
		s.cache.InvalidateDashboards(ctx)
	}
	payload, _ := json.Marshal(map[string]interface{}{"week_start": start.Format(dateLayout), "approved": approved})
	writeAudit(ctx, s.audit, s.logger, actor.Meta(), models.AuditActionRosterApprove, "shift_assignments", req.DivisionID, nil, payload)

	return &dto.ApproveWeekResponse{DivisionID: req.DivisionID, WeekStart: start.Format(dateLayout), Approved: approved}, nil
}

// CreateTemplate adds a shift template to a division. Templates never span midnight.
func (s *RosterService) CreateTemplate(ctx context.Context, actor Actor, divisionID string, req dto.CreateTemplateRequest) (*models.ShiftTemplate, error) {
	if !actor.Manager {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only managers can create shift templates")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload")
	}
	startTime, err := models.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start_time")
	}
	endTime, err := models.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end_time")
	}
	if endTime <= startTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	if err := s.ensureDivision(ctx, divisionID); err != nil {
		return nil, err
	}

	tpl := &models.ShiftTemplate{
		DivisionID: divisionID,
		Name:       strings.TrimSpace(req.Name),
		StartTime:  startTime,
		EndTime:    endTime,
		Active:     true,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.roster.CreateTemplate(ctx, tpl); err != nil {
		return nil, internalErr(err, "failed to create shift template")
	}
	payload, _ := json.Marshal(tpl)
	writeAudit(ctx, s.audit, s.logger, actor.Meta(), models.AuditActionTemplateCreate, "shift_templates", tpl.ID, nil, payload)
	return tpl, nil
}

func (s *RosterService) authorizeDivision(ctx context.Context, actor Actor, divisionID string) error {
	if err := s.ensureDivision(ctx, divisionID); err != nil {
		return err
	}
	ok, err := s.CanEditDivision(ctx, actor, divisionID)
	if err != nil {
		return err
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to edit this division's roster")
	}
	return nil
}

func (s *RosterService) ensureDivision(ctx context.Context, divisionID string) error {
	if strings.TrimSpace(divisionID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "division_id is required")
	}
	if _, err := s.employees.FindDivision(ctx, divisionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "division not found")
		}
		return internalErr(err, "failed to load division")
	}
	return nil
}

func (s *RosterService) parseDate(raw string) (time.Time, error) {
	date, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), s.loc)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "dates must use YYYY-MM-DD")
	}
	return date, nil
}

// parseWeekStart snaps the date back to the Monday of its week.
func (s *RosterService) parseWeekStart(raw string) (time.Time, error) {
	date, err := s.parseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	offset := (int(date.Weekday()) + 6) % 7
	return date.AddDate(0, 0, -offset), nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
