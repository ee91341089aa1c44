// internal/handlers/plan/plan_handler.go
package plan

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"mattepass-service/internal/domain/plan"
	xerrors "mattepass-service/internal/pkg/errors"
	"mattepass-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PlanService interface {
	ListPlans(ctx context.Context) ([]plan.Plan, error)
	GetPlan(ctx context.Context, id int64) (*plan.Plan, error)
	CreatePlan(ctx context.Context, req *plan.CreatePlanRequest) (*plan.Plan, error)
	UpdatePlan(ctx context.Context, id int64, req *plan.UpdatePlanRequest) (*plan.Plan, error)
	DeletePlan(ctx context.Context, id int64) error
}

type PlanHandler struct {
	service PlanService
	logger  *zap.Logger
}

func NewPlanHandler(service PlanService, logger *zap.Logger) *PlanHandler {
	return &PlanHandler{
		service: service,
		logger:  logger,
	}
}

// ========== Public ==========

func (h *PlanHandler) List(c *gin.Context) {
	plans, err := h.service.ListPlans(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "plans retrieved", plans)
}

func (h *PlanHandler) Get(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		response.FromError(c, err)
		return
	}

	p, err := h.service.GetPlan(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "plan retrieved", p)
}

// ========== Admin ==========

func (h *PlanHandler) Create(c *gin.Context) {
	var req plan.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	p, err := h.service.CreatePlan(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, "plan created", p)
}

func (h *PlanHandler) Update(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		response.FromError(c, err)
		return
	}

	var req plan.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	p, err := h.service.UpdatePlan(c.Request.Context(), id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "plan updated", p)
}

func (h *PlanHandler) Delete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		response.FromError(c, err)
		return
	}

	if err := h.service.DeletePlan(c.Request.Context(), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "plan deleted", nil)
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id must be a positive integer", xerrors.ErrInvalidInput)
	}
	return id, nil
}
