package loan

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/codecraftwt/loan-backend-sub000/internal/domain/apperr"
)

type SubmitPaymentInput struct {
	Amount            int64
	Mode              PaymentMode
	Type              PaymentType
	InstallmentNumber int32
	TransactionRef    string
	ProofURL          string
}

// PaymentProjection is what the borrower sees after submitting: the totals
// the loan would carry once the lender confirms. Nothing on the loan ledger
// has moved yet.
type PaymentProjection struct {
	EntryID            string        `json:"entry_id"`
	ProjectedTotalPaid int64         `json:"projected_total_paid"`
	ProjectedRemaining int64         `json:"projected_remaining"`
	ProjectedStatus    PaymentStatus `json:"projected_status"`
}

// SubmitPayment appends a pending entry to the payment log. Loan totals are
// untouched until the lender confirms; the due-date schedule also only moves
// at confirmation, so a later rejection leaves no trace on either.
func (s *Service) SubmitPayment(ctx context.Context, borrowerID, loanID string, in SubmitPaymentInput) (*Entity, *PaymentProjection, error) {
	if in.Amount <= 0 {
		return nil, nil, apperr.Validation("INVALID_AMOUNT", "payment amount must be positive")
	}
	if in.Mode != ModeCash && in.Mode != ModeOnline {
		return nil, nil, apperr.Validation("INVALID_MODE", "payment mode must be cash or online")
	}
	if in.Type != TypeOneTime && in.Type != TypeInstallment {
		return nil, nil, apperr.Validation("INVALID_PAYMENT_TYPE", "payment type must be one-time or installment")
	}

	borrower, err := s.users.GetByID(ctx, borrowerID)
	if err != nil {
		return nil, nil, apperr.NotFound("USER_NOT_FOUND", "user not found")
	}
	e, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, nil, apperr.NotFound("LOAN_NOT_FOUND", "loan not found")
	}
	if borrower.IDNumber == "" || borrower.IDNumber != e.IDNumber {
		return nil, nil, apperr.Forbidden("loan is registered against a different id number")
	}
	if e.PaymentStatus == PaymentPaid {
		return nil, nil, apperr.Conflict("ALREADY_PAID", "loan is already fully repaid")
	}

	now := s.now()
	entry := PaymentEntry{
		ID:                uuid.NewString(),
		Amount:            in.Amount,
		Mode:              in.Mode,
		Type:              in.Type,
		InstallmentNumber: in.InstallmentNumber,
		TransactionRef:    in.TransactionRef,
		ProofURL:          in.ProofURL,
		SubmittedAt:       now,
		Status:            EntryPending,
	}
	e.PaymentHistory = append(e.PaymentHistory, entry)
	e.LastPaymentConfirmation = EntryPending
	if e.BorrowerID == nil {
		e.BorrowerID = &borrower.ID
	}

	s.applyOverdue(e)

	if err := s.loanRepo.Update(ctx, e); err != nil {
		return nil, nil, err
	}

	s.notifier.Dispatch(e.LenderID, "payment_submitted", "Payment submitted",
		fmt.Sprintf("%s submitted a payment of %d awaiting your confirmation", e.BorrowerName, in.Amount), e.ID)

	projTotal := e.TotalPaid + in.Amount
	projRemaining := e.Amount - projTotal
	projStatus := PaymentPartPaid
	if projRemaining <= 0 {
		projStatus = PaymentPaid
	}
	return e, &PaymentProjection{
		EntryID:            entry.ID,
		ProjectedTotalPaid: projTotal,
		ProjectedRemaining: projRemaining,
		ProjectedStatus:    projStatus,
	}, nil
}

// ConfirmPayment is the only place loan totals move. remaining is always
// recomputed as amount minus totalPaid, never stored as a delta.
func (s *Service) ConfirmPayment(ctx context.Context, lenderID, loanID, paymentID, notes string) (*Entity, error) {
	e, err := s.getOwned(ctx, lenderID, loanID)
	if err != nil {
		return nil, err
	}
	entry := e.FindPayment(paymentID)
	if entry == nil {
		return nil, apperr.NotFound("PAYMENT_NOT_FOUND", "payment entry not found")
	}
	if entry.Status != EntryPending {
		return nil, apperr.Conflict("PAYMENT_RESOLVED", fmt.Sprintf("payment is already %s", entry.Status))
	}

	now := s.now()
	entry.Status = EntryConfirmed
	entry.ResolvedBy = lenderID
	entry.ResolvedAt = &now
	entry.Notes = notes

	e.TotalPaid += entry.Amount
	e.RemainingAmount = e.Amount - e.TotalPaid
	if e.RemainingAmount <= 0 {
		e.PaymentStatus = PaymentPaid
		e.Overdue = OverdueDetails{}
	} else {
		e.PaymentStatus = PaymentPartPaid
	}
	e.LastPaymentConfirmation = EntryConfirmed

	if entry.Type == TypeInstallment && e.Installments != nil {
		e.Installments.PaidInstallments++
		if e.Installments.NextDueDate != nil {
			next := e.Installments.NextDueDate.AddDate(0, 0, e.Installments.Frequency.Days())
			e.Installments.NextDueDate = &next
		}
	}

	if err := s.loanRepo.Update(ctx, e); err != nil {
		return nil, err
	}

	if e.BorrowerID != nil {
		s.notifier.Dispatch(*e.BorrowerID, "payment_confirmed", "Payment confirmed",
			fmt.Sprintf("Payment of %d confirmed; %d remaining", entry.Amount, e.RemainingAmount), e.ID)
	}
	return e, nil
}

func (s *Service) RejectPayment(ctx context.Context, lenderID, loanID, paymentID, reason string) (*Entity, error) {
	if reason == "" {
		return nil, apperr.Validation("REASON_REQUIRED", "a rejection reason is required")
	}
	e, err := s.getOwned(ctx, lenderID, loanID)
	if err != nil {
		return nil, err
	}
	entry := e.FindPayment(paymentID)
	if entry == nil {
		return nil, apperr.NotFound("PAYMENT_NOT_FOUND", "payment entry not found")
	}
	if entry.Status != EntryPending {
		return nil, apperr.Conflict("PAYMENT_RESOLVED", fmt.Sprintf("payment is already %s", entry.Status))
	}

	now := s.now()
	entry.Status = EntryRejected
	entry.ResolvedBy = lenderID
	entry.ResolvedAt = &now
	entry.Notes = "rejected: " + reason
	e.LastPaymentConfirmation = EntryRejected

	if err := s.loanRepo.Update(ctx, e); err != nil {
		return nil, err
	}

	if e.BorrowerID != nil {
		s.notifier.Dispatch(*e.BorrowerID, "payment_rejected", "Payment rejected",
			fmt.Sprintf("Payment of %d was rejected: %s", entry.Amount, reason), e.ID)
	}
	return e, nil
}

// applyOverdue flips the overdue sub-state in place when the loan is past
// its end date with money outstanding.
func (s *Service) applyOverdue(e *Entity) bool {
	now := s.now()
	if e.PaymentStatus == PaymentPaid || e.RemainingAmount <= 0 || !now.After(e.EndDate) {
		return false
	}
	days := int32(now.Sub(e.EndDate).Hours() / 24)
	e.PaymentStatus = PaymentOverdue
	e.Overdue = OverdueDetails{
		IsOverdue:     true,
		OverdueAmount: e.RemainingAmount,
		OverdueDays:   days,
	}
	return true
}

// SweepOverdue scans confirmed, accepted loans past their end date and marks
// them overdue. The scan is idempotent; re-running it recomputes the same
// end state.
func (s *Service) SweepOverdue(ctx context.Context) (int, error) {
	candidates, err := s.loanRepo.ListOverdueCandidates(ctx, s.now())
	if err != nil {
		return 0, err
	}

	flipped := 0
	for i := range candidates {
		e := &candidates[i]
		if !e.Confirmed || e.Acceptance != AcceptanceAccepted {
			continue
		}
		if !s.applyOverdue(e) {
			continue
		}
		if err := s.loanRepo.Update(ctx, e); err != nil {
			if err == ErrVersionConflict {
				// A concurrent request already moved the loan; the
				// next sweep will pick it up if it still qualifies.
				continue
			}
			return flipped, err
		}
		flipped++
		if e.BorrowerID != nil {
			s.notifier.Dispatch(*e.BorrowerID, "loan_overdue", "Loan overdue",
				fmt.Sprintf("Loan of %d is overdue by %d day(s); %d outstanding", e.Amount, e.Overdue.OverdueDays, e.Overdue.OverdueAmount), e.ID)
		}
	}
	return flipped, nil
}
