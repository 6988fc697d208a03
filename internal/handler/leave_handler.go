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

type leaveService interface {
	Submit(ctx context.Context, actor service.Actor, req dto.LeaveRequestPayload) (*models.LeaveRequest, error)
	Approve(ctx context.Context, actor service.Actor, id string) (*dto.LeaveDecisionResponse, error)
	Reject(ctx context.Context, actor service.Actor, id string) (*dto.LeaveDecisionResponse, error)
}

// LeaveHandler exposes leave submission and decisions.
type LeaveHandler struct {
	service leaveService
}

// NewLeaveHandler constructs the handler.
func NewLeaveHandler(svc leaveService) *LeaveHandler {
	return &LeaveHandler{service: svc}
}

// Submit godoc
// @Summary Submit a leave request
// @Tags Leave
// @Accept json
// @Produce json
// @Param payload body dto.LeaveRequestPayload true "Leave"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /leaves [post]
func (h *LeaveHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.LeaveRequestPayload
	if !bindJSON(c, &req, "invalid leave payload") {
		return
	}
	leave, err := h.service.Submit(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, leave)
}

// Approve godoc
// @Summary Approve a leave request
// @Tags Leave
// @Produce json
// @Param id path string true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leaves/{id}/approve [post]
func (h *LeaveHandler) Approve(c *gin.Context) {
	h.decide(c, h.service.Approve)
}

// Reject godoc
// @Summary Reject a leave request
// @Tags Leave
// @Produce json
// @Param id path string true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leaves/{id}/reject [post]
func (h *LeaveHandler) Reject(c *gin.Context) {
	h.decide(c, h.service.Reject)
}

func (h *LeaveHandler) decide(c *gin.Context, fn func(context.Context, service.Actor, string) (*dto.LeaveDecisionResponse, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	resp, err := fn(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp)
}
