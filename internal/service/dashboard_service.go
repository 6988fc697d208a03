package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/noah-isme/clinic-attendance-api/internal/dto"
	"github.com/noah-isme/clinic-attendance-api/internal/models"
	"github.com/noah-isme/clinic-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/clinic-attendance-api/pkg/errors"
	"github.com/noah-isme/clinic-attendance-api/pkg/tracing"
)

const dateLayout = "2006-01-02"

type dashboardAttendanceReader interface {
	ListSessionsForRange(ctx context.Context, from, to time.Time) ([]models.AttendanceSession, error)
	ListOpenSessions(ctx context.Context) ([]models.AttendanceSessionDetail, error)
	ListEvents(ctx context.Context, from, to time.Time, limit int) ([]models.AttendanceEventDetail, error)
	CountEvents(ctx context.Context, from, to time.Time) (repository.EventCounts, error)
}

type dashboardRosterReader interface {
	ListAssignments(ctx context.Context, filter models.ShiftFilter) ([]models.ShiftAssignmentDetail, error)
	CountPending(ctx context.Context, divisionID *string, from, to time.Time) (int, error)
}

type leaveReader interface {
	ListApprovedOverlapping(ctx context.Context, from, to time.Time) ([]models.LeaveRequest, error)
}

type photoLinker interface {
	Generate(ownerID, relPath string) (string, time.Time, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL     time.Duration
	RankingSize  int
	EventLimit   int
	StaleAfter   time.Duration
	Policy       PunctualityPolicy
	Location     *time.Location
	PhotoURLBase string
}

// DashboardService composes the manager dashboard.
type DashboardService struct {
	attendance dashboardAttendanceReader
	roster     dashboardRosterReader
	leaves     leaveReader
	photos     photoLinker
	cache      *CacheService
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
	cfg        DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Attendance dashboardAttendanceReader
	Roster     dashboardRosterReader
	Leaves     leaveReader
	Photos     photoLinker
	Cache      *CacheService
	Metrics    *MetricsService
	Logger     *zap.Logger
	Config     DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	if cfg.RankingSize <= 0 {
		cfg.RankingSize = 5
	}
	if cfg.EventLimit <= 0 {
		cfg.EventLimit = 200
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 10 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	cfg.Policy = cfg.Policy.withDefaults()
	cfg.PhotoURLBase = strings.TrimRight(cfg.PhotoURLBase, "/")
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		attendance: params.Attendance,
		roster:     params.Roster,
		leaves:     params.Leaves,
		photos:     params.Photos,
		cache:      params.Cache,
		metrics:    params.Metrics,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// Today returns the facility-local calendar date for now.
func (s *DashboardService) Today() time.Time {
	y, m, d := s.now().In(s.cfg.Location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.cfg.Location)
}

// Manager returns the dashboard for date and reports whether it came from cache.
func (s *DashboardService) Manager(ctx context.Context, date time.Time) (*dto.DashboardResponse, bool, error) {
	if date.IsZero() {
		date = s.Today()
	}
	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, s.cfg.Location)
	key := fmt.Sprintf("dash:%s", day.Format(dateLayout))

	return cachedLoad(ctx, s.cache, key, s.cfg.CacheTTL, func(ctx context.Context) (*dto.DashboardResponse, error) {
		return s.compose(ctx, day)
	})
}

func (s *DashboardService) compose(ctx context.Context, day time.Time) (*dto.DashboardResponse, error) {
	ctx, span := tracing.Tracer().Start(ctx, "dashboard.compose")
	defer span.End()
	span.SetAttributes(attribute.String("dashboard.date", day.Format(dateLayout)))

	now := s.now().In(s.cfg.Location)
	nextDay := day.AddDate(0, 0, 1)
	monthStart := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, s.cfg.Location)

	// One fetch covers both periods; the day before the month start feeds
	// overnight candidates.
	shifts, err := s.roster.ListAssignments(ctx, models.ShiftFilter{From: monthStart, To: day, Status: statusPtr(models.ShiftStatusApproved)})
	if err != nil {
		return nil, internalErr(err, "failed to load roster")
	}
	sessions, err := s.attendance.ListSessionsForRange(ctx, monthStart.AddDate(0, 0, -1), nextDay.AddDate(0, 0, 1))
	if err != nil {
		return nil, internalErr(err, "failed to load sessions")
	}
	leaves, err := s.leaves.ListApprovedOverlapping(ctx, monthStart, day)
	if err != nil {
		return nil, internalErr(err, "failed to load leave")
	}

	started := time.Now()
	daily := Reconcile(ReconcileInput{
		Shifts:   shiftsOn(shifts, day),
		Sessions: sessions,
		Leaves:   leaves,
		Now:      now,
		Location: s.cfg.Location,
		Policy:   s.cfg.Policy,
	})
	s.metrics.ObserveReconciliation("daily", time.Since(started), statusCounts(daily.Outcomes))

	started = time.Now()
	monthly := Reconcile(ReconcileInput{
		Shifts:   shifts,
		Sessions: sessions,
		Leaves:   leaves,
		Now:      now,
		Location: s.cfg.Location,
		Policy:   s.cfg.Policy,
	})
	s.metrics.ObserveReconciliation("monthly", time.Since(started), nil)

	open, err := s.attendance.ListOpenSessions(ctx)
	if err != nil {
		return nil, internalErr(err, "failed to load open sessions")
	}
	openViews := FlagOpenSessions(open, now, s.cfg.StaleAfter)
	stale := 0
	for _, v := range openViews {
		if v.Stale {
			stale++
		}
	}
	s.metrics.SetStaleSessions(stale)

	events, err := s.eventSection(ctx, day, nextDay)
	if err != nil {
		return nil, err
	}

	pending, err := s.roster.CountPending(ctx, nil, monthStart, day.AddDate(0, 0, 28))
	if err != nil {
		return nil, internalErr(err, "failed to count pending shifts")
	}

	resp := &dto.DashboardResponse{
		Date:        day.Format(dateLayout),
		GeneratedAt: now,
		Daily: dto.DailySection{
			KPI:      dto.KPI(daily.Totals),
			Rows:     punctualityRows(daily.Outcomes),
			OnLeave:  daily.OnLeave,
			Upcoming: daily.Upcoming,
		},
		Monthly: dto.MonthlySection{
			From:        monthStart.Format(dateLayout),
			To:          day.Format(dateLayout),
			KPI:         dto.KPI(monthly.Totals),
			PerEmployee: employeeRows(monthly.PerEmployee),
			TopLateness: employeeRows(RankByLateness(monthly.PerEmployee, s.cfg.RankingSize)),
			TopNoShow:   employeeRows(RankByNoShow(monthly.PerEmployee, s.cfg.RankingSize)),
		},
		OpenSessions: openSessionRows(openViews),
		Events:       events,
		Pending:      dto.PendingApprovals{Shifts: pending},
	}
	return resp, nil
}

// Period reconciles approved shifts dated from through to, optionally limited
// to one division. Report exports use it for whole months.
func (s *DashboardService) Period(ctx context.Context, from, to time.Time, divisionID *string) (Reconciliation, error) {
	ctx, span := tracing.Tracer().Start(ctx, "dashboard.period")
	defer span.End()

	shifts, err := s.roster.ListAssignments(ctx, models.ShiftFilter{From: from, To: to, DivisionID: divisionID, Status: statusPtr(models.ShiftStatusApproved)})
	if err != nil {
		return Reconciliation{}, internalErr(err, "failed to load roster")
	}
	sessions, err := s.attendance.ListSessionsForRange(ctx, from.AddDate(0, 0, -1), to.AddDate(0, 0, 2))
	if err != nil {
		return Reconciliation{}, internalErr(err, "failed to load sessions")
	}
	leaves, err := s.leaves.ListApprovedOverlapping(ctx, from, to)
	if err != nil {
		return Reconciliation{}, internalErr(err, "failed to load leave")
	}

	started := time.Now()
	result := Reconcile(ReconcileInput{
		Shifts:   shifts,
		Sessions: sessions,
		Leaves:   leaves,
		Now:      s.now().In(s.cfg.Location),
		Location: s.cfg.Location,
		Policy:   s.cfg.Policy,
	})
	s.metrics.ObserveReconciliation("period", time.Since(started), nil)
	return result, nil
}

// EventLog returns punch events in [from, to), newest first, up to limit.
func (s *DashboardService) EventLog(ctx context.Context, from, to time.Time, limit int) ([]models.AttendanceEventDetail, error) {
	events, err := s.attendance.ListEvents(ctx, from, to, limit)
	if err != nil {
		return nil, internalErr(err, "failed to load events")
	}
	return events, nil
}

// Location returns the facility clock.
func (s *DashboardService) Location() *time.Location {
	return s.cfg.Location
}

func (s *DashboardService) eventSection(ctx context.Context, from, to time.Time) (dto.EventSection, error) {
	counts, err := s.attendance.CountEvents(ctx, from, to)
	if err != nil {
		return dto.EventSection{}, internalErr(err, "failed to count events")
	}
	events, err := s.attendance.ListEvents(ctx, from, to, s.cfg.EventLimit)
	if err != nil {
		return dto.EventSection{}, internalErr(err, "failed to load events")
	}
	section := dto.EventSection{Total: counts.Total, Proxy: counts.Proxy, Items: make([]dto.EventEntry, 0, len(events))}
	for _, ev := range events {
		section.Items = append(section.Items, dto.EventEntry{
			ID:          ev.ID,
			EventType:   ev.EventType,
			SubjectID:   ev.SubjectEmployeeID,
			SubjectName: ev.SubjectName,
			WitnessID:   ev.WitnessEmployeeID,
			WitnessName: ev.WitnessName,
			CreatedAt:   ev.CreatedAt.In(s.cfg.Location),
			IsProxy:     ev.IsProxy,
			Note:        ev.Note,
			PhotoURL:    s.photoURL(ev.ID, ev.PhotoPath),
		})
	}
	return section, nil
}

func (s *DashboardService) photoURL(eventID, relPath string) string {
	if s.photos == nil || relPath == "" {
		return ""
	}
	token, _, err := s.photos.Generate(eventID, relPath)
	if err != nil {
		s.logger.Warn("sign photo link failed", zap.String("event_id", eventID), zap.Error(err))
		return ""
	}
	return s.cfg.PhotoURLBase + "/attendance/photos/" + token
}

func shiftsOn(shifts []models.ShiftAssignmentDetail, day time.Time) []models.ShiftAssignmentDetail {
	want := day.Format(dateLayout)
	out := make([]models.ShiftAssignmentDetail, 0)
	for _, shift := range shifts {
		if shift.ShiftDate.Format(dateLayout) == want {
			out = append(out, shift)
		}
	}
	return out
}

func statusCounts(outcomes []ShiftOutcome) map[string]int {
	counts := make(map[string]int)
	for _, o := range outcomes {
		counts[string(o.Status)]++
	}
	return counts
}

func punctualityRows(outcomes []ShiftOutcome) []dto.PunctualityRow {
	rows := make([]dto.PunctualityRow, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, dto.PunctualityRow{
			AssignmentID: o.AssignmentID,
			EmployeeID:   o.EmployeeID,
			EmployeeName: o.EmployeeName,
			ShiftStart:   o.Start,
			ShiftEnd:     o.End,
			Status:       o.Status,
			MinutesLate:  o.MinutesLate,
			ClockIn:      o.MatchedIn,
		})
	}
	return rows
}

func employeeRows(rows []EmployeeKPI) []dto.EmployeeKPI {
	out := make([]dto.EmployeeKPI, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.EmployeeKPI{EmployeeID: r.EmployeeID, EmployeeName: r.EmployeeName, KPI: dto.KPI(r.KPI)})
	}
	return out
}

func openSessionRows(views []OpenSessionView) []dto.OpenSession {
	out := make([]dto.OpenSession, 0, len(views))
	for _, v := range views {
		out = append(out, dto.OpenSession(v))
	}
	return out
}

func statusPtr(status models.ShiftStatus) *models.ShiftStatus {
	return &status
}

func internalErr(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
