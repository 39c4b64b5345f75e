package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	plandomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/plan"
)

type PlanService interface {
	Create(ctx context.Context, in plandomain.CreateInput) (*plandomain.Entity, error)
	Update(ctx context.Context, planID string, in plandomain.UpdateInput) (*plandomain.Entity, error)
	Delete(ctx context.Context, planID string) error
	List(ctx context.Context, activeOnly bool) ([]plandomain.Entity, error)
}

type PlanHandler struct {
	planService PlanService
}

func NewPlanHandler(planService PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

type planFeaturesRequest struct {
	AdvancedAnalytics bool `json:"advancedAnalytics"`
	PrioritySupport   bool `json:"prioritySupport"`
}

type createPlanRequest struct {
	Name           string               `json:"name" binding:"required"`
	Description    string               `json:"description"`
	DurationMonths int32                `json:"durationMonths" binding:"required"`
	MonthlyPrice   int64                `json:"monthlyPrice" binding:"required"`
	Features       *planFeaturesRequest `json:"features"`
}

func (h *PlanHandler) Create(c *gin.Context) {
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}

	in := plandomain.CreateInput{
		Name:           strings.TrimSpace(req.Name),
		Description:    strings.TrimSpace(req.Description),
		DurationMonths: req.DurationMonths,
		MonthlyPrice:   req.MonthlyPrice,
	}
	if req.Features != nil {
		in.Features = plandomain.Features{
			AdvancedAnalytics: req.Features.AdvancedAnalytics,
			PrioritySupport:   req.Features.PrioritySupport,
		}
	}

	plan, err := h.planService.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, "plan created", plan)
}

type updatePlanRequest struct {
	Name           *string              `json:"name"`
	Description    *string              `json:"description"`
	DurationMonths *int32               `json:"durationMonths"`
	MonthlyPrice   *int64               `json:"monthlyPrice"`
	Features       *planFeaturesRequest `json:"features"`
	Active         *bool                `json:"active"`
}

func (h *PlanHandler) Update(c *gin.Context) {
	var req updatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}

	in := plandomain.UpdateInput{
		Name:           req.Name,
		Description:    req.Description,
		DurationMonths: req.DurationMonths,
		MonthlyPrice:   req.MonthlyPrice,
		Active:         req.Active,
	}
	if req.Features != nil {
		in.Features = &plandomain.Features{
			AdvancedAnalytics: req.Features.AdvancedAnalytics,
			PrioritySupport:   req.Features.PrioritySupport,
		}
	}

	plan, err := h.planService.Update(c.Request.Context(), strings.TrimSpace(c.Param("planId")), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "plan updated", plan)
}

func (h *PlanHandler) Delete(c *gin.Context) {
	if err := h.planService.Delete(c.Request.Context(), strings.TrimSpace(c.Param("planId"))); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "plan deactivated", nil)
}

func (h *PlanHandler) ListAll(c *gin.Context) {
	plans, err := h.planService.List(c.Request.Context(), false)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "plans", plans)
}

func (h *PlanHandler) ListActive(c *gin.Context) {
	plans, err := h.planService.List(c.Request.Context(), true)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "plans", plans)
}
