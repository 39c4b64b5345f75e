package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	loandomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/loan"
)

type BorrowerLoanService interface {
	ListForBorrower(ctx context.Context, borrowerID string, limit, offset int32) ([]loandomain.Entity, int64, error)
	RecordAcceptance(ctx context.Context, borrowerID, loanID string, decision loandomain.AcceptanceStatus) (*loandomain.Entity, error)
	SubmitPayment(ctx context.Context, borrowerID, loanID string, in loandomain.SubmitPaymentInput) (*loandomain.Entity, *loandomain.PaymentProjection, error)
}

type BorrowerHandler struct {
	loanService BorrowerLoanService
}

func NewBorrowerHandler(loanService BorrowerLoanService) *BorrowerHandler {
	return &BorrowerHandler{loanService: loanService}
}

func (h *BorrowerHandler) ListLoans(c *gin.Context) {
	uid, ok := mustUserID(c)
	if !ok {
		return
	}
	page, limit := parsePage(c)
	items, total, err := h.loanService.ListForBorrower(c.Request.Context(), uid, limit, (page-1)*limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "loans", items, newPagination(total, page, limit))
}

type decisionRequest struct {
	Decision string `json:"decision" binding:"required"`
}

func (h *BorrowerHandler) Decide(c *gin.Context) {
	uid, ok := mustUserID(c)
	if !ok {
		return
	}
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}

	decision := loandomain.AcceptanceStatus(strings.ToLower(strings.TrimSpace(req.Decision)))
	if decision != loandomain.AcceptanceAccepted && decision != loandomain.AcceptanceRejected {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "decision must be accepted or rejected", "code": "INVALID_DECISION"})
		return
	}

	loan, err := h.loanService.RecordAcceptance(c.Request.Context(), uid, strings.TrimSpace(c.Param("loanId")), decision)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "decision recorded", loan)
}

type submitPaymentRequest struct {
	Amount            int64  `json:"amount" binding:"required"`
	Mode              string `json:"mode" binding:"required"`
	Type              string `json:"type"`
	InstallmentNumber int32  `json:"installmentNumber"`
	TransactionRef    string `json:"transactionRef"`
	ProofURL          string `json:"proofUrl"`
}

func (h *BorrowerHandler) SubmitPayment(c *gin.Context) {
	uid, ok := mustUserID(c)
	if !ok {
		return
	}
	var req submitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}

	loan, projection, err := h.loanService.SubmitPayment(c.Request.Context(), uid, strings.TrimSpace(c.Param("loanId")), loandomain.SubmitPaymentInput{
		Amount:            req.Amount,
		Mode:              loandomain.PaymentMode(req.Mode),
		Type:              loandomain.PaymentType(req.Type),
		InstallmentNumber: req.InstallmentNumber,
		TransactionRef:    strings.TrimSpace(req.TransactionRef),
		ProofURL:          strings.TrimSpace(req.ProofURL),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "payment submitted, awaiting lender confirmation", gin.H{
		"loan":       loan,
		"projection": projection,
	})
}
