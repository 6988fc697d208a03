package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-attendance-api/internal/dto"
	"github.com/noah-isme/clinic-attendance-api/internal/models"
	"github.com/noah-isme/clinic-attendance-api/internal/service"
	appErrors "github.com/noah-isme/clinic-attendance-api/pkg/errors"
	"github.com/noah-isme/clinic-attendance-api/pkg/response"
)

type rosterService interface {
	WeekView(ctx context.Context, actor service.Actor, divisionID, weekStart string) (*dto.RosterWeekResponse, error)
	ReplaceWeek(ctx context.Context, actor service.Actor, req dto.ReplaceWeekRequest) (*dto.ReplaceWeekResponse, error)
	ApproveWeek(ctx context.Context, actor service.Actor, req dto.ApproveWeekRequest) (*dto.ApproveWeekResponse, error)
	CreateTemplate(ctx context.Context, actor service.Actor, divisionID string, req dto.CreateTemplateRequest) (*models.ShiftTemplate, error)
}

// RosterHandler exposes the weekly roster editor and approval gate.
type RosterHandler struct {
	service rosterService
}

// NewRosterHandler constructs the handler.
func NewRosterHandler(svc rosterService) *RosterHandler {
	return &RosterHandler{service: svc}
}

// Week godoc
// @Summary Roster week view
// @Tags Roster
// @Produce json
// @Param division_id query string true "Division ID"
// @Param week_start query string false "Any date in the week (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /roster/week [get]
func (h *RosterHandler) Week(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	divisionID := strings.TrimSpace(c.Query("division_id"))
	if divisionID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "division_id is required"))
		return
	}
	view, err := h.service.WeekView(c.Request.Context(), actor, divisionID, strings.TrimSpace(c.Query("week_start")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// ReplaceWeek godoc
// @Summary Replace roster cells for a week
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body dto.ReplaceWeekRequest true "Cells"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /roster/week [put]
func (h *RosterHandler) ReplaceWeek(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ReplaceWeekRequest
	if !bindJSON(c, &req, "invalid roster payload") {
		return
	}
	resp, err := h.service.ReplaceWeek(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// ApproveWeek godoc
// @Summary Approve submitted shifts for a week
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body dto.ApproveWeekRequest true "Week"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /roster/week/approve [post]
func (h *RosterHandler) ApproveWeek(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ApproveWeekRequest
	if !bindJSON(c, &req, "invalid approval payload") {
		return
	}
	resp, err := h.service.ApproveWeek(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}

// CreateTemplate godoc
// @Summary Create a shift template
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path string true "Division ID"
// @Param payload body dto.CreateTemplateRequest true "Template"
// @Success 201 {object} response.Envelope
// @Router /divisions/{id}/templates [post]
func (h *RosterHandler) CreateTemplate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateTemplateRequest
	if !bindJSON(c, &req, "invalid template payload") {
		return
	}
	tpl, err := h.service.CreateTemplate(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tpl)
}
