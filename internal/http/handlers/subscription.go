package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	plandomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/plan"
)

type SubscriptionService interface {
	SubscriptionStatus(ctx context.Context, lenderID string) (*plandomain.SubscriptionStatus, error)
	CreatePurchaseOrder(ctx context.Context, lenderID, planID string) (*plandomain.PurchaseOrder, error)
	VerifyPurchase(ctx context.Context, lenderID string, in plandomain.VerifyPurchaseInput) (*plandomain.SubscriptionStatus, error)
}

type SubscriptionHandler struct {
	planService SubscriptionService
}

func NewSubscriptionHandler(planService SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{planService: planService}
}

func (h *SubscriptionHandler) Status(c *gin.Context) {
	uid, ok := mustUserID(c)
	if !ok {
		return
	}
	status, err := h.planService.SubscriptionStatus(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "subscription status", status)
}

type purchaseOrderRequest struct {
	PlanID string `json:"planId" binding:"required"`
}

func (h *SubscriptionHandler) CreateOrder(c *gin.Context) {
	uid, ok := mustUserID(c)
	if !ok {
		return
	}
	var req purchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}
	order, err := h.planService.CreatePurchaseOrder(c.Request.Context(), uid, strings.TrimSpace(req.PlanID))
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, "purchase order created", order)
}

type verifyPurchaseRequest struct {
	PlanID    string `json:"planId" binding:"required"`
	OrderID   string `json:"orderId" binding:"required"`
	PaymentID string `json:"paymentId" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

func (h *SubscriptionHandler) VerifyPurchase(c *gin.Context) {
	uid, ok := mustUserID(c)
	if !ok {
		return
	}
	var req verifyPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}
	status, err := h.planService.VerifyPurchase(c.Request.Context(), uid, plandomain.VerifyPurchaseInput{
		PlanID:    strings.TrimSpace(req.PlanID),
		OrderID:   strings.TrimSpace(req.OrderID),
		PaymentID: strings.TrimSpace(req.PaymentID),
		Signature: strings.TrimSpace(req.Signature),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "subscription activated", status)
}
