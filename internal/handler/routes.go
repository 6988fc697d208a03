package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/clinic-attendance-api/internal/middleware"
	"github.com/noah-isme/clinic-attendance-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth      *AuthHandler
	Kiosk     *KioskHandler
	Employees *EmployeeHandler
	Roster    *RosterHandler
	Leaves    *LeaveHandler
	Dashboard *DashboardHandler
	Reports   *ReportHandler
	Photos    *PhotoHandler
}

// RouteDeps carries the cross-cutting collaborators used by route middleware.
type RouteDeps struct {
	Tokens middleware.TokenValidator
	Audit  middleware.AuditStore
	Logger *zap.Logger
}

// RegisterRoutes mounts the API on api. Kiosk routes are public; everything
// else requires a bearer token. Report routes are skipped when h.Reports is nil.
func RegisterRoutes(api gin.IRouter, h Handlers, deps RouteDeps) {
	api.GET("/qr", h.Kiosk.QRToken)
	api.GET("/qr/check", h.Kiosk.QRCheck)
	api.GET("/employees/active", h.Kiosk.ActiveEmployees)
	api.GET("/employees/:id/status", h.Kiosk.Status)
	api.POST("/attendance/clock", h.Kiosk.Clock)

	api.POST("/auth/login", h.Auth.Login)

	api.GET("/attendance/photos/:token",
		middleware.Audit(deps.Audit, deps.Logger, models.AuditActionPhotoView, "attendance_events"),
		h.Photos.Download)
	if h.Reports != nil {
		api.GET("/export/:token",
			middleware.Audit(deps.Audit, deps.Logger, models.AuditActionExportDownload, "report_jobs"),
			h.Reports.Download)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(deps.Tokens))
	authed.GET("/auth/me", h.Auth.Me)

	editors := authed.Group("")
	editors.Use(middleware.RequireRoles(models.RoleManager, models.RoleRosterEditor))
	editors.GET("/divisions", h.Employees.Divisions)
	editors.GET("/roster/week", h.Roster.Week)
	editors.PUT("/roster/week", h.Roster.ReplaceWeek)
	editors.POST("/leaves", h.Leaves.Submit)

	managers := authed.Group("")
	managers.Use(middleware.ManagerOnly())
	managers.GET("/dashboard", middleware.WithResponseMeta(), h.Dashboard.Manager)
	managers.POST("/roster/week/approve", h.Roster.ApproveWeek)
	managers.POST("/leaves/:id/approve", h.Leaves.Approve)
	managers.POST("/leaves/:id/reject", h.Leaves.Reject)
	managers.POST("/employees", h.Employees.Create)
	managers.PUT("/employees/:id/pin", h.Employees.ResetPIN)
	managers.DELETE("/employees/:id", h.Employees.Deactivate)
	managers.POST("/divisions/:id/templates", h.Roster.CreateTemplate)
	if h.Reports != nil {
		managers.GET("/reports", h.Reports.List)
		managers.POST("/reports", h.Reports.Create)
		managers.GET("/reports/:id", h.Reports.Status)
	}
}
