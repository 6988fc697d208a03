package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/clinic-attendance-api/internal/dto"
	"github.com/noah-isme/clinic-attendance-api/internal/models"
	"github.com/noah-isme/clinic-attendance-api/internal/service"
	appErrors "github.com/noah-isme/clinic-attendance-api/pkg/errors"
)

type staticTokens map[string]*models.JWTClaims

func (s staticTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type stubAuth struct{}

func (stubAuth) Login(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
	return &models.LoginResponse{AccessToken: "mgr"}, nil
}

type stubEmployees struct{}

func (stubEmployees) Create(_ context.Context, req dto.CreateEmployeeRequest, _ service.RequestMeta) (*models.Employee, error) {
	return &models.Employee{ID: "emp-9", Name: req.Name}, nil
}

func (stubEmployees) ResetPIN(context.Context, string, dto.ResetPINRequest, service.RequestMeta) error {
	return nil
}

func (stubEmployees) Deactivate(context.Context, string, service.RequestMeta) error { return nil }

func (stubEmployees) ListDivisions(context.Context) ([]models.Division, error) {
	return []models.Division{{ID: "div-1", Name: "Front Desk", Active: true}}, nil
}

type stubRoster struct{ actor service.Actor }

func (s *stubRoster) WeekView(_ context.Context, actor service.Actor, divisionID, _ string) (*dto.RosterWeekResponse, error) {
	s.actor = actor
	return &dto.RosterWeekResponse{DivisionID: divisionID}, nil
}

func (s *stubRoster) ReplaceWeek(_ context.Context, actor service.Actor, req dto.ReplaceWeekRequest) (*dto.ReplaceWeekResponse, error) {
	s.actor = actor
	return &dto.ReplaceWeekResponse{DivisionID: req.DivisionID}, nil
}

func (s *stubRoster) ApproveWeek(_ context.Context, actor service.Actor, req dto.ApproveWeekRequest) (*dto.ApproveWeekResponse, error) {
	s.actor = actor
	return &dto.ApproveWeekResponse{DivisionID: req.DivisionID}, nil
}

func (s *stubRoster) CreateTemplate(_ context.Context, actor service.Actor, divisionID string, req dto.CreateTemplateRequest) (*models.ShiftTemplate, error) {
	s.actor = actor
	return &models.ShiftTemplate{ID: "tpl-1", DivisionID: divisionID, Name: req.Name}, nil
}

type stubLeaves struct{}

func (stubLeaves) Submit(context.Context, service.Actor, dto.LeaveRequestPayload) (*models.LeaveRequest, error) {
	return &models.LeaveRequest{ID: "leave-1"}, nil
}

func (stubLeaves) Approve(_ context.Context, _ service.Actor, id string) (*dto.LeaveDecisionResponse, error) {
	return &dto.LeaveDecisionResponse{ID: id, Status: models.LeaveStatusApproved, DecidedAt: time.Now()}, nil
}

func (stubLeaves) Reject(_ context.Context, _ service.Actor, id string) (*dto.LeaveDecisionResponse, error) {
	return &dto.LeaveDecisionResponse{ID: id, Status: models.LeaveStatusRejected, DecidedAt: time.Now()}, nil
}

type stubPhotos struct{}

func (stubPhotos) Resolve(context.Context, string) (*service.PhotoDownload, error) {
	return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired photo link")
}

func buildTestRouter(roster *stubRoster) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"), Handlers{
		Auth:      NewAuthHandler(stubAuth{}),
		Kiosk:     NewKioskHandler(fakeQR{}, &fakePunches{}, fakeKioskDirectory{}, 1024),
		Employees: NewEmployeeHandler(stubEmployees{}),
		Roster:    NewRosterHandler(roster),
		Leaves:    NewLeaveHandler(stubLeaves{}),
		Dashboard: NewDashboardHandler(&fakeDashboardSrv{resp: &dto.DashboardResponse{}}),
		Reports:   NewReportHandler(&reportServiceMock{createResp: &dto.ReportJobResponse{ID: "job-1"}}),
		Photos:    NewPhotoHandler(stubPhotos{}),
	}, RouteDeps{
		Tokens: staticTokens{
			"mgr":    {UserID: "mgr-1", Role: models.RoleManager},
			"editor": {UserID: "editor-1", Role: models.RoleRosterEditor},
		},
		Logger: zap.NewNop(),
	})
	return router
}

func TestRoutesAccessControl(t *testing.T) {
	roster := &stubRoster{}
	router := buildTestRouter(roster)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		want   int
	}{
		{"kiosk qr is public", http.MethodGet, "/api/v1/qr", "", "", http.StatusOK},
		{"qr check is public", http.MethodGet, "/api/v1/qr/check?token=1715000000.abc", "", "", http.StatusOK},
		{"active employees is public", http.MethodGet, "/api/v1/employees/active", "", "", http.StatusOK},
		{"employee status is public", http.MethodGet, "/api/v1/employees/emp-1/status", "", "", http.StatusOK},
		{"unknown employee status", http.MethodGet, "/api/v1/employees/ghost/status", "", "", http.StatusNotFound},
		{"login is public", http.MethodPost, "/api/v1/auth/login", "", `{"email":"a@b.test","password":"x"}`, http.StatusOK},
		{"dashboard needs token", http.MethodGet, "/api/v1/dashboard", "", "", http.StatusUnauthorized},
		{"dashboard rejects bad token", http.MethodGet, "/api/v1/dashboard", "nope", "", http.StatusUnauthorized},
		{"dashboard forbids editors", http.MethodGet, "/api/v1/dashboard", "editor", "", http.StatusForbidden},
		{"dashboard for managers", http.MethodGet, "/api/v1/dashboard", "mgr", "", http.StatusOK},
		{"editor lists divisions", http.MethodGet, "/api/v1/divisions", "editor", "", http.StatusOK},
		{"manager lists reports", http.MethodGet, "/api/v1/reports", "mgr", "", http.StatusOK},
		{"editor views roster", http.MethodGet, "/api/v1/roster/week?division_id=div-1", "editor", "", http.StatusOK},
		{"editor replaces roster", http.MethodPut, "/api/v1/roster/week", "editor", `{"division_id":"div-1","week_start":"2024-05-06","cells":[]}`, http.StatusOK},
		{"editor submits leave", http.MethodPost, "/api/v1/leaves", "editor", `{"employee_id":"emp-1","date_from":"2024-05-06","date_to":"2024-05-06","leave_type":"SICK"}`, http.StatusCreated},
		{"editor cannot approve week", http.MethodPost, "/api/v1/roster/week/approve", "editor", `{"division_id":"div-1","week_start":"2024-05-06"}`, http.StatusForbidden},
		{"manager approves week", http.MethodPost, "/api/v1/roster/week/approve", "mgr", `{"division_id":"div-1","week_start":"2024-05-06"}`, http.StatusOK},
		{"manager approves leave", http.MethodPost, "/api/v1/leaves/leave-1/approve", "mgr", "", http.StatusOK},
		{"editor cannot reject leave", http.MethodPost, "/api/v1/leaves/leave-1/reject", "editor", "", http.StatusForbidden},
		{"manager creates employee", http.MethodPost, "/api/v1/employees", "mgr", `{"name":"Citra","pin":"123456"}`, http.StatusCreated},
		{"manager resets pin", http.MethodPut, "/api/v1/employees/emp-1/pin", "mgr", `{"pin":"654321"}`, http.StatusNoContent},
		{"manager deactivates", http.MethodDelete, "/api/v1/employees/emp-1", "mgr", "", http.StatusNoContent},
		{"manager creates template", http.MethodPost, "/api/v1/divisions/div-1/templates", "mgr", `{"name":"Pagi","start_time":"07:00","end_time":"14:00"}`, http.StatusCreated},
		{"manager requests report", http.MethodPost, "/api/v1/reports", "mgr", `{"type":"monthly_attendance","month":"2024-05","format":"csv"}`, http.StatusAccepted},
		{"editor cannot request report", http.MethodPost, "/api/v1/reports", "editor", `{"type":"monthly_attendance","month":"2024-05","format":"csv"}`, http.StatusForbidden},
		{"photo link is checked by signature", http.MethodGet, "/api/v1/attendance/photos/forged", "", "", http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body *bytes.Buffer
			if tc.body != "" {
				body = bytes.NewBufferString(tc.body)
			} else {
				body = &bytes.Buffer{}
			}
			req, err := http.NewRequest(tc.method, tc.path, body)
			require.NoError(t, err)
			if tc.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRoutesPassEditorIdentityToRoster(t *testing.T) {
	roster := &stubRoster{}
	router := buildTestRouter(roster)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/roster/week?division_id=div-1", nil)
	req.Header.Set("Authorization", "Bearer editor")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "editor-1", roster.actor.ID)
	assert.False(t, roster.actor.Manager)
}
