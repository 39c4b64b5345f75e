package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codecraftwt/loan-backend-sub000/internal/domain/apperr"
	frauddomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/fraud"
	reputationdomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/reputation"
)

type FraudService interface {
	ScoreBorrower(ctx context.Context, idNumber string) (*frauddomain.Assessment, error)
	PersistStatus(ctx context.Context, idNumber string) (*frauddomain.Assessment, error)
}

type ReputationService interface {
	ScoreBorrower(ctx context.Context, idNumber string) (*reputationdomain.Summary, error)
}

type RiskHandler struct {
	fraud      FraudService
	reputation ReputationService
}

func NewRiskHandler(fraud FraudService, reputation ReputationService) *RiskHandler {
	return &RiskHandler{fraud: fraud, reputation: reputation}
}

// BorrowerRisk serves the lender's pre-lending check page. The fraud score is
// recomputed and persisted on every view so the stored history tracks actual
// lookups. Borrowers without an account still get a computed score, there is
// just no user record to persist it on.
func (h *RiskHandler) BorrowerRisk(c *gin.Context) {
	idNumber := strings.TrimSpace(c.Param("idNumber"))
	if len(idNumber) != 12 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "id number must be 12 digits", "code": "INVALID_ID_NUMBER"})
		return
	}

	assessment, err := h.fraud.PersistStatus(c.Request.Context(), idNumber)
	if err != nil {
		var ae *apperr.Error
		if !errors.As(err, &ae) || ae.Code != "BORROWER_NOT_FOUND" {
			respondError(c, err)
			return
		}
		assessment, err = h.fraud.ScoreBorrower(c.Request.Context(), idNumber)
		if err != nil {
			respondError(c, err)
			return
		}
	}

	reputation, err := h.reputation.ScoreBorrower(c.Request.Context(), idNumber)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "borrower risk profile", gin.H{
		"fraud":      assessment,
		"reputation": reputation,
	})
}
