package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	loandomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/loan"
)

const dateLayout = "2006-01-02"

type LoanService interface {
	Create(ctx context.Context, lenderID string, in loandomain.CreateInput) (*loandomain.Entity, error)
	VerifyCode(ctx context.Context, lenderID, loanID, code string) (*loandomain.Entity, error)
	ResendCode(ctx context.Context, lenderID, loanID string) (*loandomain.Entity, error)
	EditTerms(ctx context.Context, lenderID, loanID string, in loandomain.EditInput) (*loandomain.Entity, error)
	Delete(ctx context.Context, lenderID, loanID string) error
	Get(ctx context.Context, lenderID, loanID string) (*loandomain.Entity, error)
	List(ctx context.Context, f loandomain.ListFilter) ([]loandomain.Entity, int64, error)
	Dashboard(ctx context.Context, lenderID string) (*loandomain.DashboardSummary, error)
	ConfirmPayment(ctx context.Context, lenderID, loanID, paymentID, notes string) (*loandomain.Entity, error)
	RejectPayment(ctx context.Context, lenderID, loanID, paymentID, reason string) (*loandomain.Entity, error)
}

type LoanHandler struct {
	loanService LoanService
}

func NewLoanHandler(loanService LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

type installmentRequest struct {
	TotalInstallments int32  `json:"totalInstallments"`
	Frequency         string `json:"frequency"`
}

type createLoanRequest struct {
	BorrowerName     string              `json:"name" binding:"required"`
	IDNumber         string              `json:"idNumber" binding:"required"`
	Mobile           string              `json:"mobileNumber" binding:"required"`
	Address          string              `json:"address"`
	Amount           int64               `json:"amount" binding:"required"`
	Purpose          string              `json:"purpose"`
	GivenDate        string              `json:"givenDate" binding:"required"`
	EndDate          string              `json:"endDate" binding:"required"`
	DisbursementMode string              `json:"mode" binding:"required"`
	PaymentType      string              `json:"paymentType"`
	Installments     *installmentRequest `json:"installments"`
}

func (h *LoanHandler) CreateLoan(c *gin.Context) {
	uid, ok := mustUserID(c)
	if !ok {
		return
	}
	var req createLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}

	givenDate, err := time.Parse(dateLayout, req.GivenDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "givenDate must be YYYY-MM-DD", "code": "INVALID_DATE"})
		return
	}
	endDate, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "endDate must be YYYY-MM-DD", "code": "INVALID_DATE"})
		return
	}

	in := loandomain.CreateInput{
		BorrowerName:     strings.TrimSpace(req.BorrowerName),
		IDNumber:         strings.TrimSpace(req.IDNumber),
		Mobile:           strings.TrimSpace(req.Mobile),
		Address:          strings.TrimSpace(req.Address),
		Amount:           req.Amount,
		Purpose:          strings.TrimSpace(req.Purpose),
		GivenDate:        givenDate,
		EndDate:          endDate,
		DisbursementMode: loandomain.PaymentMode(req.DisbursementMode),
		PaymentType:      loandomain.PaymentType(req.PaymentType),
	}
	if req.Installments != nil {
		in.Installments = &loandomain.InstallmentInput{
			TotalInstallments: req.Installments.TotalInstallments,
			Frequency:         loandomain.Frequency(req.Installments.Frequency),
		}
	}

	loan, err := h.loanService.Create(c.Request.Context(), uid, in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, "loan created, confirmation code sent to borrower", loan)
}

func (h *LoanHandler) ListLoans(c *gin.Context) {
	uid, ok := mustUserID(c)
	if !ok {
		return
	}
	page, limit := parsePage(c)
	items, total, err := h.loanService.List(c.Request.Context(), loandomain.ListFilter{
		LenderID:      uid,
		IDNumber:      strings.TrimSpace(c.Query("idNumber")),
		PaymentStatus: strings.TrimSpace(c.Query("paymentStatus")),
		Acceptance:    strings.TrimSpace(c.Query("acceptance")),
		Limit:         limit,
		Offset:        (page - 1) * limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, "loans", items, newPagination(total, page, limit))
}

func (h *LoanHandler) GetLoan(c *gin.Context) {
	uid, ok := mustUserID(c)
	if !ok {
		return
	}
	loan, err := h.loanService.Get(c.Request.Context(), uid, strings.TrimSpace(c.Param("loanId")))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "loan", loan)
}

type editLoanRequest struct {
	BorrowerName *string `json:"name"`
	Mobile       *string `json:"mobileNumber"`
	Address      *string `json:"address"`
	Amount       *int64  `json:"amount"`
	Purpose      *string `json:"purpose"`
	GivenDate    *string `json:"givenDate"`
	EndDate      *string `json:"endDate"`
	Mode         *string `json:"mode"`
}

func (h *LoanHandler) EditLoan(c *gin.Context) {
	uid, ok := mustUserID(c)
	if !ok {
		return
	}
	var req editLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}

	in := loandomain.EditInput{
		BorrowerName: req.BorrowerName,
		Mobile:       req.Mobile,
		Address:      req.Address,
		Amount:       req.Amount,
		Purpose:      req.Purpose,
	}
	if req.GivenDate != nil {
		t, err := time.Parse(dateLayout, *req.GivenDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "givenDate must be YYYY-MM-DD", "code": "INVALID_DATE"})
			return
		}
		in.GivenDate = &t
	}
	if req.EndDate != nil {
		t, err := time.Parse(dateLayout, *req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "endDate must be YYYY-MM-DD", "code": "INVALID_DATE"})
			return
		}
		in.EndDate = &t
	}
	if req.Mode != nil {
		mode := loandomain.PaymentMode(*req.Mode)
		in.DisbursementMode = &mode
	}

	loan, err := h.loanService.EditTerms(c.Request.Context(), uid, strings.TrimSpace(c.Param("loanId")), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "loan updated, borrower must confirm the new terms", loan)
}

func (h *LoanHandler) DeleteLoan(c *gin.Context) {
	uid, ok := mustUserID(c)
	if !ok {
		return
	}
	if err := h.loanService.Delete(c.Request.Context(), uid, strings.TrimSpace(c.Param("loanId"))); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "loan deleted", nil)
}

type verifyCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *LoanHandler) VerifyCode(c *gin.Context) {
	uid, ok := mustUserID(c)
	if !ok {
		return
	}
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}
	loan, err := h.loanService.VerifyCode(c.Request.Context(), uid, strings.TrimSpace(c.Param("loanId")), strings.TrimSpace(req.Code))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "loan confirmed", loan)
}

func (h *LoanHandler) ResendCode(c *gin.Context) {
	uid, ok := mustUserID(c)
	if !ok {
		return
	}
	loan, err := h.loanService.ResendCode(c.Request.Context(), uid, strings.TrimSpace(c.Param("loanId")))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "confirmation code resent", gin.H{"loanId": loan.ID, "codeExpiresAt": loan.CodeExpiresAt})
}

func (h *LoanHandler) Dashboard(c *gin.Context) {
	uid, ok := mustUserID(c)
	if !ok {
		return
	}
	summary, err := h.loanService.Dashboard(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "dashboard", summary)
}

type resolvePaymentRequest struct {
	Notes  string `json:"notes"`
	Reason string `json:"reason"`
}

func (h *LoanHandler) ConfirmPayment(c *gin.Context) {
	uid, ok := mustUserID(c)
	if !ok {
		return
	}
	var req resolvePaymentRequest
	_ = c.ShouldBindJSON(&req)
	loan, err := h.loanService.ConfirmPayment(c.Request.Context(), uid,
		strings.TrimSpace(c.Param("loanId")), strings.TrimSpace(c.Param("paymentId")), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "payment confirmed", loan)
}

func (h *LoanHandler) RejectPayment(c *gin.Context) {
	uid, ok := mustUserID(c)
	if !ok {
		return
	}
	var req resolvePaymentRequest
	_ = c.ShouldBindJSON(&req)
	loan, err := h.loanService.RejectPayment(c.Request.Context(), uid,
		strings.TrimSpace(c.Param("loanId")), strings.TrimSpace(c.Param("paymentId")), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "payment rejected", loan)
}
