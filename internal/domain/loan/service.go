package loan

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/codecraftwt/loan-backend-sub000/internal/domain/apperr"
	userdomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/user"
)

// ErrVersionConflict is returned by repositories when an optimistic write
// loses the race against a concurrent update of the same loan.
var ErrVersionConflict = errors.New("loan version conflict")

type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*userdomain.Entity, error)
	GetByIDNumber(ctx context.Context, idNumber string) (*userdomain.Entity, error)
}

type PlanGate interface {
	CanCreateLoan(ctx context.Context, lenderID string) (bool, string, error)
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (string, error)
}

// Notifier delivery is best-effort: implementations log failures and never
// block or fail the calling operation.
type Notifier interface {
	Dispatch(userID, kind, title, body, loanID string)
}

type Service struct {
	loanRepo Repository
	users    UserDirectory
	gate     PlanGate
	gateway  OrderCreator
	notifier Notifier
	logger   *slog.Logger

	minPrincipal int64
	codeTTL      time.Duration

	now     func() time.Time
	newCode func() string
}

func NewService(
	loanRepo Repository,
	users UserDirectory,
	gate PlanGate,
	gateway OrderCreator,
	notifier Notifier,
	logger *slog.Logger,
	minPrincipal int64,
	codeTTL time.Duration,
) *Service {
	return &Service{
		loanRepo:     loanRepo,
		users:        users,
		gate:         gate,
		gateway:      gateway,
		notifier:     notifier,
		logger:       logger,
		minPrincipal: minPrincipal,
		codeTTL:      codeTTL,
		now:          func() time.Time { return time.Now().UTC() },
		newCode:      newConfirmationCode,
	}
}

func newConfirmationCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "000000"
	}
	return fmt.Sprintf("%06d", n.Int64())
}

type InstallmentInput struct {
	TotalInstallments int32     `json:"total_installments"`
	Frequency         Frequency `json:"frequency"`
}

type CreateInput struct {
	BorrowerName     string
	IDNumber         string
	Mobile           string
	Address          string
	Amount           int64
	Purpose          string
	GivenDate        time.Time
	EndDate          time.Time
	DisbursementMode PaymentMode
	PaymentType      PaymentType
	Installments     *InstallmentInput
}

func (s *Service) validateTerms(in CreateInput) error {
	if !isDigits(in.IDNumber, 12) {
		return apperr.Validation("INVALID_ID_NUMBER", "id number must be 12 digits")
	}
	if !isDigits(in.Mobile, 10) {
		return apperr.Validation("INVALID_MOBILE", "mobile number must be 10 digits")
	}
	if in.BorrowerName == "" {
		return apperr.Validation("INVALID_NAME", "borrower name is required")
	}
	if in.Amount < s.minPrincipal {
		return apperr.Validation("INVALID_AMOUNT", fmt.Sprintf("amount must be at least %d", s.minPrincipal))
	}
	if in.EndDate.Before(startOfDay(s.now())) {
		return apperr.Validation("INVALID_END_DATE", "loan end date must not be in the past")
	}
	if in.DisbursementMode != ModeCash && in.DisbursementMode != ModeOnline {
		return apperr.Validation("INVALID_MODE", "disbursement mode must be cash or online")
	}
	switch in.PaymentType {
	case TypeOneTime:
	case TypeInstallment:
		if in.Installments == nil || in.Installments.TotalInstallments < 1 {
			return apperr.Validation("INVALID_INSTALLMENTS", "installment count is required")
		}
		if !in.Installments.Frequency.Valid() {
			return apperr.Validation("INVALID_FREQUENCY", "frequency must be weekly, monthly or quarterly")
		}
	default:
		return apperr.Validation("INVALID_PAYMENT_TYPE", "payment type must be one-time or installment")
	}
	return nil
}

// Create registers a loan in the unconfirmed/pending/pending state and
// returns it together with the confirmation code. The code substitutes for
// an SMS one-time password in this trust model, so handing it back to the
// lender is intentional.
func (s *Service) Create(ctx context.Context, lenderID string, in CreateInput) (*Entity, error) {
	if err := s.validateTerms(in); err != nil {
		return nil, err
	}

	allowed, reason, err := s.gate.CanCreateLoan(ctx, lenderID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperr.Forbidden(reason)
	}

	lender, err := s.users.GetByID(ctx, lenderID)
	if err != nil {
		return nil, apperr.NotFound("LENDER_NOT_FOUND", "lender not found")
	}
	if lender.IDNumber != "" && lender.IDNumber == in.IDNumber {
		return nil, apperr.Validation("SELF_LOAN", "a lender cannot register a loan against their own id number")
	}

	now := s.now()
	e := &Entity{
		LenderID:                lenderID,
		BorrowerName:            in.BorrowerName,
		IDNumber:                in.IDNumber,
		Mobile:                  in.Mobile,
		Address:                 in.Address,
		Amount:                  in.Amount,
		Purpose:                 in.Purpose,
		GivenDate:               in.GivenDate,
		EndDate:                 in.EndDate,
		DisbursementMode:        in.DisbursementMode,
		ConfirmationCode:        s.newCode(),
		CodeExpiresAt:           now.Add(s.codeTTL),
		Acceptance:              AcceptancePending,
		PaymentStatus:           PaymentPending,
		PaymentType:             in.PaymentType,
		RemainingAmount:         in.Amount,
		PaymentHistory:          []PaymentEntry{},
		LastPaymentConfirmation: EntryPending,
	}
	if in.GivenDate.IsZero() {
		e.GivenDate = now
	}

	// Borrowers register on their own schedule; an unresolved reference
	// is a valid state, not an error.
	borrower, err := s.users.GetByIDNumber(ctx, in.IDNumber)
	if err == nil && borrower.Role == userdomain.RoleBorrower {
		e.BorrowerID = &borrower.ID
	}

	if in.PaymentType == TypeInstallment {
		nextDue := e.GivenDate.AddDate(0, 0, in.Installments.Frequency.Days())
		perPeriod := (in.Amount + int64(in.Installments.TotalInstallments) - 1) / int64(in.Installments.TotalInstallments)
		e.Installments = &InstallmentPlan{
			TotalInstallments: in.Installments.TotalInstallments,
			AmountPerPeriod:   perPeriod,
			Frequency:         in.Installments.Frequency,
			NextDueDate:       &nextDue,
		}
	}

	if in.DisbursementMode == ModeOnline {
		orderID, err := s.gateway.CreateOrder(ctx, in.Amount, "INR", "loan-disbursement", map[string]string{
			"lender_id": lenderID,
			"id_number": in.IDNumber,
		})
		if err != nil {
			return nil, fmt.Errorf("create gateway order: %w", err)
		}
		e.GatewayOrderID = orderID
	}

	e.Agreement = renderAgreement(lender.Name, e)

	created, err := s.loanRepo.Create(ctx, e)
	if err != nil {
		return nil, err
	}

	s.notifier.Dispatch(lenderID, "loan_created", "Loan registered",
		fmt.Sprintf("Loan of %d for %s awaits confirmation", created.Amount, created.BorrowerName), created.ID)
	if created.BorrowerID != nil {
		s.notifier.Dispatch(*created.BorrowerID, "loan_created", "New loan offer",
			fmt.Sprintf("%s registered a loan of %d against your id number", lender.Name, created.Amount), created.ID)
	}
	return created, nil
}

func (s *Service) getOwned(ctx context.Context, lenderID, loanID string) (*Entity, error) {
	e, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, apperr.NotFound("LOAN_NOT_FOUND", "loan not found")
	}
	if e.LenderID != lenderID {
		return nil, apperr.Forbidden("loan belongs to another lender")
	}
	return e, nil
}

// VerifyCode confirms the loan and accepts it on the borrower's behalf; code
// delivery is assumed to reach the borrower's phone.
func (s *Service) VerifyCode(ctx context.Context, lenderID, loanID, code string) (*Entity, error) {
	e, err := s.getOwned(ctx, lenderID, loanID)
	if err != nil {
		return nil, err
	}
	if e.Confirmed {
		return nil, apperr.Conflict("ALREADY_CONFIRMED", "loan is already confirmed")
	}
	now := s.now()
	if now.After(e.CodeExpiresAt) {
		return nil, apperr.Validation("CODE_EXPIRED", "confirmation code has expired")
	}
	if code == "" || code != e.ConfirmationCode {
		return nil, apperr.Validation("INVALID_CODE", "confirmation code does not match")
	}

	e.Confirmed = true
	e.VerifiedAt = &now
	e.Acceptance = AcceptanceAccepted
	e.PaymentStatus = PaymentPending
	if err := s.loanRepo.Update(ctx, e); err != nil {
		return nil, err
	}

	if e.BorrowerID != nil {
		s.notifier.Dispatch(*e.BorrowerID, "loan_confirmed", "Loan confirmed",
			fmt.Sprintf("Loan of %d is now active", e.Amount), e.ID)
	}
	return e, nil
}

func (s *Service) ResendCode(ctx context.Context, lenderID, loanID string) (*Entity, error) {
	e, err := s.getOwned(ctx, lenderID, loanID)
	if err != nil {
		return nil, err
	}
	if e.Confirmed {
		return nil, apperr.Conflict("ALREADY_CONFIRMED", "loan is already confirmed")
	}
	e.ConfirmationCode = s.newCode()
	e.CodeExpiresAt = s.now().Add(s.codeTTL)
	e.Confirmed = false
	if err := s.loanRepo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// RecordAcceptance applies the borrower's accept/reject decision. The caller
// is authorized by id-number match, not by reference equality, because the
// borrower reference may still be unresolved.
func (s *Service) RecordAcceptance(ctx context.Context, borrowerID, loanID string, decision AcceptanceStatus) (*Entity, error) {
	if decision != AcceptanceAccepted && decision != AcceptanceRejected {
		return nil, apperr.Validation("INVALID_DECISION", "decision must be accepted or rejected")
	}
	borrower, err := s.users.GetByID(ctx, borrowerID)
	if err != nil {
		return nil, apperr.NotFound("USER_NOT_FOUND", "user not found")
	}
	e, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, apperr.NotFound("LOAN_NOT_FOUND", "loan not found")
	}
	if borrower.IDNumber == "" || borrower.IDNumber != e.IDNumber {
		return nil, apperr.Forbidden("loan is registered against a different id number")
	}
	if e.Confirmed && e.Acceptance == AcceptanceAccepted {
		return nil, apperr.Conflict("LOAN_ACCEPTED", "loan was accepted via code verification and cannot be overridden")
	}
	if e.Acceptance == decision {
		return nil, apperr.Conflict("SAME_STATE", fmt.Sprintf("loan is already %s", decision))
	}

	e.Acceptance = decision
	if e.BorrowerID == nil {
		e.BorrowerID = &borrower.ID
	}
	if err := s.loanRepo.Update(ctx, e); err != nil {
		return nil, err
	}

	s.notifier.Dispatch(e.LenderID, "loan_status", "Borrower decision",
		fmt.Sprintf("%s has %s the loan of %d", e.BorrowerName, decision, e.Amount), e.ID)
	return e, nil
}

type EditInput struct {
	BorrowerName     *string
	Mobile           *string
	Address          *string
	Amount           *int64
	Purpose          *string
	GivenDate        *time.Time
	EndDate          *time.Time
	DisbursementMode *PaymentMode
}

// EditTerms mutates the terms axis only. Any edit invalidates the prior
// confirmation and acceptance: terms changed, so both must be redone.
func (s *Service) EditTerms(ctx context.Context, lenderID, loanID string, in EditInput) (*Entity, error) {
	e, err := s.getOwned(ctx, lenderID, loanID)
	if err != nil {
		return nil, err
	}
	if e.Confirmed && e.Acceptance == AcceptanceAccepted {
		return nil, apperr.Conflict("LOAN_ACCEPTED", "an accepted loan's terms cannot be edited")
	}

	if in.BorrowerName != nil {
		if *in.BorrowerName == "" {
			return nil, apperr.Validation("INVALID_NAME", "borrower name is required")
		}
		e.BorrowerName = *in.BorrowerName
	}
	if in.Mobile != nil {
		if !isDigits(*in.Mobile, 10) {
			return nil, apperr.Validation("INVALID_MOBILE", "mobile number must be 10 digits")
		}
		e.Mobile = *in.Mobile
	}
	if in.Address != nil {
		e.Address = *in.Address
	}
	if in.Amount != nil {
		if *in.Amount < s.minPrincipal {
			return nil, apperr.Validation("INVALID_AMOUNT", fmt.Sprintf("amount must be at least %d", s.minPrincipal))
		}
		e.Amount = *in.Amount
		e.RemainingAmount = e.Amount - e.TotalPaid
	}
	if in.Purpose != nil {
		e.Purpose = *in.Purpose
	}
	if in.GivenDate != nil {
		e.GivenDate = *in.GivenDate
	}
	if in.EndDate != nil {
		if in.EndDate.Before(startOfDay(s.now())) {
			return nil, apperr.Validation("INVALID_END_DATE", "loan end date must not be in the past")
		}
		e.EndDate = *in.EndDate
	}
	if in.DisbursementMode != nil {
		if *in.DisbursementMode != ModeCash && *in.DisbursementMode != ModeOnline {
			return nil, apperr.Validation("INVALID_MODE", "disbursement mode must be cash or online")
		}
		e.DisbursementMode = *in.DisbursementMode
	}

	e.Acceptance = AcceptancePending
	e.Confirmed = false
	e.VerifiedAt = nil
	e.ConfirmationCode = s.newCode()
	e.CodeExpiresAt = s.now().Add(s.codeTTL)

	lender, lerr := s.users.GetByID(ctx, lenderID)
	lenderName := ""
	if lerr == nil {
		lenderName = lender.Name
	}
	e.Agreement = renderAgreement(lenderName, e)

	if err := s.loanRepo.Update(ctx, e); err != nil {
		return nil, err
	}

	if e.BorrowerID != nil {
		s.notifier.Dispatch(*e.BorrowerID, "loan_status", "Loan terms updated",
			"Loan terms have changed and require fresh acceptance", e.ID)
	}
	return e, nil
}

// Delete hard-deletes a loan. A loan with confirmed repayments is part of the
// financial record and stays.
func (s *Service) Delete(ctx context.Context, lenderID, loanID string) error {
	e, err := s.getOwned(ctx, lenderID, loanID)
	if err != nil {
		return err
	}
	for i := range e.PaymentHistory {
		if e.PaymentHistory[i].Status == EntryConfirmed {
			return apperr.Conflict("LOAN_HAS_PAYMENTS", "a loan with confirmed payments cannot be deleted")
		}
	}
	return s.loanRepo.Delete(ctx, loanID)
}

func (s *Service) Get(ctx context.Context, lenderID, loanID string) (*Entity, error) {
	return s.getOwned(ctx, lenderID, loanID)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Entity, int64, error) {
	return s.loanRepo.List(ctx, f)
}

// ListForBorrower resolves by national-ID equality, the loan's canonical
// borrower key.
func (s *Service) ListForBorrower(ctx context.Context, borrowerID string, limit, offset int32) ([]Entity, int64, error) {
	borrower, err := s.users.GetByID(ctx, borrowerID)
	if err != nil {
		return nil, 0, apperr.NotFound("USER_NOT_FOUND", "user not found")
	}
	if borrower.IDNumber == "" {
		return []Entity{}, 0, nil
	}
	return s.loanRepo.List(ctx, ListFilter{IDNumber: borrower.IDNumber, Limit: limit, Offset: offset})
}

func (s *Service) Dashboard(ctx context.Context, lenderID string) (*DashboardSummary, error) {
	return s.loanRepo.GetDashboardSummary(ctx, lenderID)
}

// startOfDay strips the clock so date-only end dates compare against the
// calendar day. A loan due today is not yet in the past.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
