package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-attendance-api/internal/dto"
	"github.com/noah-isme/clinic-attendance-api/internal/models"
	"github.com/noah-isme/clinic-attendance-api/internal/service"
	"github.com/noah-isme/clinic-attendance-api/pkg/response"
)

type employeeAdmin interface {
	Create(ctx context.Context, req dto.CreateEmployeeRequest, meta service.RequestMeta) (*models.Employee, error)
	ResetPIN(ctx context.Context, id string, req dto.ResetPINRequest, meta service.RequestMeta) error
	Deactivate(ctx context.Context, id string, meta service.RequestMeta) error
	ListDivisions(ctx context.Context) ([]models.Division, error)
}

// EmployeeHandler exposes employee administration and the division list.
type EmployeeHandler struct {
	service employeeAdmin
}

// NewEmployeeHandler constructs the handler.
func NewEmployeeHandler(svc employeeAdmin) *EmployeeHandler {
	return &EmployeeHandler{service: svc}
}

// Create godoc
// @Summary Create employee
// @Tags Employees
// @Accept json
// @Produce json
// @Param payload body dto.CreateEmployeeRequest true "Employee"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /employees [post]
func (h *EmployeeHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateEmployeeRequest
	if !bindJSON(c, &req, "invalid employee payload") {
		return
	}
	employee, err := h.service.Create(c.Request.Context(), req, actor.Meta())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, employee)
}

// ResetPIN godoc
// @Summary Reset employee PIN
// @Tags Employees
// @Accept json
// @Param id path string true "Employee ID"
// @Param payload body dto.ResetPINRequest true "New PIN"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /employees/{id}/pin [put]
func (h *EmployeeHandler) ResetPIN(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ResetPINRequest
	if !bindJSON(c, &req, "invalid PIN payload") {
		return
	}
	if err := h.service.ResetPIN(c.Request.Context(), c.Param("id"), req, actor.Meta()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Deactivate godoc
// @Summary Deactivate employee
// @Tags Employees
// @Param id path string true "Employee ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /employees/{id} [delete]
func (h *EmployeeHandler) Deactivate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Deactivate(c.Request.Context(), c.Param("id"), actor.Meta()); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Divisions godoc
// @Summary Active divisions
// @Tags Employees
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /divisions [get]
func (h *EmployeeHandler) Divisions(c *gin.Context) {
	divisions, err := h.service.ListDivisions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, divisions)
}
