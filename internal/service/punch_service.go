package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/noah-isme/clinic-attendance-api/internal/dto"
	"github.com/noah-isme/clinic-attendance-api/internal/models"
	"github.com/noah-isme/clinic-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/clinic-attendance-api/pkg/errors"
	"github.com/noah-isme/clinic-attendance-api/pkg/imaging"
	"github.com/noah-isme/clinic-attendance-api/pkg/tracing"
)

const proxyNote = "PROXY"

type punchEmployeeStore interface {
	FindActiveByID(ctx context.Context, id string) (*models.Employee, error)
}

type punchSessionStore interface {
	FindOpenSession(ctx context.Context, employeeID string) (*models.AttendanceSession, error)
	LatestSession(ctx context.Context, employeeID string) (*models.AttendanceSession, error)
	RecordPunch(ctx context.Context, record *models.PunchRecord) error
}

type photoStore interface {
	Save(filename string, data []byte) (string, error)
	Delete(filename string) error
}

type tokenValidator interface {
	Valid(token string) bool
}

// PunchConfig bounds photo intake.
type PunchConfig struct {
	MaxUploadBytes int64
	MaxSide        int
	JPEGQuality    int
	Location       *time.Location
}

// PunchService runs the clock in/out state machine.
type PunchService struct {
	employees punchEmployeeStore
	sessions  punchSessionStore
	photos    photoStore
	tokens    tokenValidator
	cache     *CacheService
	metrics   *MetricsService
	cfg       PunchConfig
	locks     *keyedMutex
	logger    *zap.Logger
	now       func() time.Time
}

// NewPunchService wires the punch pipeline.
func NewPunchService(employees punchEmployeeStore, sessions punchSessionStore, photos photoStore, tokens tokenValidator, cache *CacheService, metrics *MetricsService, cfg PunchConfig, logger *zap.Logger) *PunchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &PunchService{
		employees: employees,
		sessions:  sessions,
		photos:    photos,
		tokens:    tokens,
		cache:     cache,
		metrics:   metrics,
		cfg:       cfg,
		locks:     newKeyedMutex(),
		logger:    logger,
		now:       time.Now,
	}
}

// Punch validates and applies one clock action. Every rejection leaves
// sessions and the event log untouched.
func (s *PunchService) Punch(ctx context.Context, req dto.PunchRequest) (resp *dto.PunchResponse, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "attendance.punch")
	span.SetAttributes(
		attribute.String("punch.action", string(req.Action)),
		attribute.Bool("punch.proxy", req.IsProxy),
	)
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = appErrors.FromError(err).Code
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
		s.metrics.RecordPunch(string(req.Action), outcome, req.IsProxy)
	}()

	if err := s.gate(ctx, req); err != nil {
		s.logRejection(req, err)
		return nil, err
	}

	unlock := s.locks.Lock(req.SubjectEmployeeID)
	defer unlock()

	if err := s.checkState(ctx, req); err != nil {
		s.logRejection(req, err)
		return nil, err
	}

	photo, err := imaging.Normalize(req.Photo, imaging.Options{MaxSide: s.cfg.MaxSide, Quality: s.cfg.JPEGQuality})
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupportedImage) {
			err = appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "photo could not be decoded")
			s.logRejection(req, err)
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to process photo")
	}
	s.metrics.ObservePhotoSize(len(photo.Data))

	now := s.now().UTC()
	relPath, err := s.photos.Save(photoName(req.SubjectEmployeeID, req.Action, now.In(s.cfg.Location)), photo.Data)
	if err != nil {
		s.logger.Error("store punch photo failed", zap.String("employee_id", req.SubjectEmployeeID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store photo")
	}

	record := &models.PunchRecord{
		Action: req.Action,
		Event: models.AttendanceEvent{
			SubjectEmployeeID: req.SubjectEmployeeID,
			CreatedAt:         now,
			PhotoPath:         relPath,
			UserAgent:         req.UserAgent,
			IsProxy:           req.IsProxy,
		},
	}
	if req.ClientIP != "" {
		ip := req.ClientIP
		record.Event.ClientIP = &ip
	}
	if req.IsProxy {
		witness := req.WitnessEmployeeID
		record.Event.WitnessEmployeeID = &witness
		record.Event.Note = proxyNote
	}

	if err := s.sessions.RecordPunch(ctx, record); err != nil {
		if delErr := s.photos.Delete(relPath); delErr != nil {
			s.logger.Warn("remove orphan punch photo failed", zap.String("path", relPath), zap.Error(delErr))
		}
		switch {
		case errors.Is(err, repository.ErrSessionAlreadyOpen):
			err = appErrors.ErrAlreadyClockedIn
		case errors.Is(err, repository.ErrNoOpenSession):
			err = appErrors.ErrNoOpenSession
		default:
			s.logger.Error("record punch failed", zap.String("employee_id", req.SubjectEmployeeID), zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record punch")
		}
		s.logRejection(req, err)
		return nil, err
	}

	s.cache.InvalidateDashboards(ctx)
	span.SetAttributes(attribute.String("punch.event_id", record.Event.ID))
	s.logger.Info("punch recorded",
		zap.String("event_id", record.Event.ID),
		zap.String("employee_id", req.SubjectEmployeeID),
		zap.String("action", string(req.Action)),
		zap.Bool("proxy", req.IsProxy),
	)

	message := "Clock-in recorded"
	if req.Action == models.PunchOut {
		message = "Clock-out recorded"
	}
	return &dto.PunchResponse{OK: true, Message: message, Time: now, EventID: record.Event.ID}, nil
}

// gate runs the stateless checks in order and stops at the first failure.
func (s *PunchService) gate(ctx context.Context, req dto.PunchRequest) error {
	if !req.Action.Valid() {
		return appErrors.ErrInvalidAction
	}
	if !s.tokens.Valid(req.QRToken) {
		return appErrors.ErrTokenExpired
	}

	size := req.PhotoSize
	if n := int64(len(req.Photo)); n > size {
		size = n
	}
	switch {
	case size == 0:
		return appErrors.ErrPhotoMissing
	case size > s.cfg.MaxUploadBytes:
		return appErrors.ErrPhotoTooLarge
	case len(req.Photo) == 0:
		return appErrors.ErrPhotoMissing
	}

	subject, err := s.lookupEmployee(ctx, req.SubjectEmployeeID, appErrors.ErrEmployeeNotFound)
	if err != nil {
		return err
	}
	if !VerifyPIN(subject.PinHash, req.SubjectPIN) {
		return appErrors.ErrWrongSecret
	}

	if !req.IsProxy {
		return nil
	}
	if req.WitnessEmployeeID == "" || req.WitnessPIN == "" {
		return appErrors.ErrWitnessRequired
	}
	witness, err := s.lookupEmployee(ctx, req.WitnessEmployeeID, appErrors.ErrWitnessNotFound)
	if err != nil {
		return err
	}
	if !VerifyPIN(witness.PinHash, req.WitnessPIN) {
		return appErrors.ErrWrongWitnessSecret
	}
	if witness.ID == subject.ID {
		return appErrors.ErrWitnessIsSubject
	}
	return nil
}

func (s *PunchService) lookupEmployee(ctx context.Context, id string, notFound *appErrors.Error) (*models.Employee, error) {
	if id == "" {
		return nil, notFound
	}
	employee, err := s.employees.FindActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	return employee, nil
}

// checkState rejects impossible transitions before any photo work. The
// transaction in RecordPunch re-checks under a row lock.
func (s *PunchService) checkState(ctx context.Context, req dto.PunchRequest) error {
	open, err := s.sessions.FindOpenSession(ctx, req.SubjectEmployeeID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	hasOpen := err == nil && open != nil
	switch {
	case req.Action == models.PunchIn && hasOpen:
		return appErrors.ErrAlreadyClockedIn
	case req.Action == models.PunchOut && !hasOpen:
		return appErrors.ErrNoOpenSession
	}
	return nil
}

// Status reports the employee's current state and the action the kiosk should offer.
func (s *PunchService) Status(ctx context.Context, employeeID string) (*dto.EmployeeStatusResponse, error) {
	employee, err := s.lookupEmployee(ctx, employeeID, appErrors.ErrEmployeeNotFound)
	if err != nil {
		return nil, err
	}
	resp := &dto.EmployeeStatusResponse{
		EmployeeID:   employee.ID,
		EmployeeName: employee.Name,
		CurrentState: models.PunchOut,
		NextAction:   models.PunchIn,
	}

	open, err := s.sessions.FindOpenSession(ctx, employee.ID)
	switch {
	case err == nil && open != nil:
		resp.CurrentState = models.PunchIn
		resp.NextAction = models.PunchOut
		resp.Since = open.ClockIn
		return resp, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	latest, err := s.sessions.LatestSession(ctx, employee.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return resp, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	resp.Since = latest.ClockOut
	return resp, nil
}

func (s *PunchService) logRejection(req dto.PunchRequest, err error) {
	appErr := appErrors.FromError(err)
	s.logger.Info("punch rejected",
		zap.String("kind", appErr.Code),
		zap.String("employee_id", req.SubjectEmployeeID),
		zap.String("action", string(req.Action)),
		zap.Bool("proxy", req.IsProxy),
	)
}

// photoName lays photos out by local capture date.
func photoName(employeeID string, action models.PunchAction, at time.Time) string {
	return fmt.Sprintf("attendance_photos/%s/%s_%s_%s.jpg", at.Format("2006/01/02"), employeeID, at.Format("20060102_150405"), action)
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns its release func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedLock{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
