package plan

import (
	"context"
	"fmt"
	"time"

	"github.com/codecraftwt/loan-backend-sub000/internal/domain/apperr"
	userdomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/user"
)

var validDurations = map[int32]bool{1: true, 2: true, 3: true, 6: true, 12: true}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*userdomain.Entity, error)
	SetPlan(ctx context.Context, userID, planID string, purchasedAt, expiresAt time.Time) error
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (string, error)
}

type SignatureVerifier interface {
	Verify(orderID, paymentID, signature string) bool
}

type Service struct {
	planRepo Repository
	userRepo UserRepository
	gateway  OrderCreator
	verifier SignatureVerifier
	now      func() time.Time
}

func NewService(planRepo Repository, userRepo UserRepository, gateway OrderCreator, verifier SignatureVerifier) *Service {
	return &Service{
		planRepo: planRepo,
		userRepo: userRepo,
		gateway:  gateway,
		verifier: verifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) validate(name string, durationMonths int32, monthlyPrice int64) error {
	if name == "" {
		return apperr.Validation("INVALID_NAME", "plan name is required")
	}
	if !validDurations[durationMonths] {
		return apperr.Validation("INVALID_DURATION", "duration must be 1, 2, 3, 6 or 12 months")
	}
	if monthlyPrice <= 0 {
		return apperr.Validation("INVALID_PRICE", "monthly price must be positive")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Entity, error) {
	if err := s.validate(in.Name, in.DurationMonths, in.MonthlyPrice); err != nil {
		return nil, err
	}
	in.Features.UnlimitedLoans = true
	dup, err := s.planRepo.ExistsDuplicate(ctx, in.Name, in.MonthlyPrice, in.Features, "")
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, apperr.Conflict("PLAN_EXISTS", "a plan with the same name, price and features already exists")
	}
	return s.planRepo.Create(ctx, in)
}

func (s *Service) Update(ctx context.Context, planID string, in UpdateInput) (*Entity, error) {
	e, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, apperr.NotFound("PLAN_NOT_FOUND", "plan not found")
	}
	if in.Name != nil {
		e.Name = *in.Name
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.DurationMonths != nil {
		e.DurationMonths = *in.DurationMonths
	}
	if in.MonthlyPrice != nil {
		e.MonthlyPrice = *in.MonthlyPrice
	}
	if in.Features != nil {
		e.Features = *in.Features
		e.Features.UnlimitedLoans = true
	}
	if in.Active != nil {
		e.Active = *in.Active
	}
	if err := s.validate(e.Name, e.DurationMonths, e.MonthlyPrice); err != nil {
		return nil, err
	}
	dup, err := s.planRepo.ExistsDuplicate(ctx, e.Name, e.MonthlyPrice, e.Features, e.ID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, apperr.Conflict("PLAN_EXISTS", "a plan with the same name, price and features already exists")
	}
	if err := s.planRepo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Delete(ctx context.Context, planID string) error {
	if _, err := s.planRepo.GetByID(ctx, planID); err != nil {
		return apperr.NotFound("PLAN_NOT_FOUND", "plan not found")
	}
	return s.planRepo.Delete(ctx, planID)
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]Entity, error) {
	return s.planRepo.List(ctx, activeOnly)
}

// CanCreateLoan is the subscription gate: the lender needs a referenced plan
// whose expiry is strictly in the future. An expired plan reference stays on
// the user for display until a new purchase overwrites it.
func (s *Service) CanCreateLoan(ctx context.Context, lenderID string) (bool, string, error) {
	u, err := s.userRepo.GetByID(ctx, lenderID)
	if err != nil {
		return false, "", err
	}
	if u.PlanID == nil {
		return false, "an active subscription plan is required to create loans", nil
	}
	if u.PlanExpiresAt == nil || !u.PlanExpiresAt.After(s.now()) {
		return false, "subscription plan has expired", nil
	}
	return true, "", nil
}

type SubscriptionStatus struct {
	HasPlan   bool       `json:"has_plan"`
	Active    bool       `json:"active"`
	PlanID    *string    `json:"plan_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

func (s *Service) SubscriptionStatus(ctx context.Context, lenderID string) (*SubscriptionStatus, error) {
	u, err := s.userRepo.GetByID(ctx, lenderID)
	if err != nil {
		return nil, apperr.NotFound("USER_NOT_FOUND", "user not found")
	}
	st := &SubscriptionStatus{HasPlan: u.PlanID != nil, PlanID: u.PlanID, ExpiresAt: u.PlanExpiresAt}
	allowed, reason, err := s.CanCreateLoan(ctx, lenderID)
	if err != nil {
		return nil, err
	}
	st.Active = allowed
	st.Reason = reason
	return st, nil
}

type PurchaseOrder struct {
	OrderID string `json:"order_id"`
	PlanID  string `json:"plan_id"`
	Amount  int64  `json:"amount"`
}

// CreatePurchaseOrder opens a gateway order for the plan's full price
// (monthly price times duration). One active plan at a time: no stacking or
// mid-term upgrading.
func (s *Service) CreatePurchaseOrder(ctx context.Context, lenderID, planID string) (*PurchaseOrder, error) {
	u, err := s.userRepo.GetByID(ctx, lenderID)
	if err != nil {
		return nil, apperr.NotFound("USER_NOT_FOUND", "user not found")
	}
	if u.PlanID != nil && u.PlanExpiresAt != nil && u.PlanExpiresAt.After(s.now()) {
		return nil, apperr.Conflict("ACTIVE_PLAN_EXISTS", "an unexpired plan is already active")
	}
	p, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, apperr.NotFound("PLAN_NOT_FOUND", "plan not found")
	}
	if !p.Active {
		return nil, apperr.Validation("PLAN_INACTIVE", "the plan is not available for purchase")
	}

	amount := p.MonthlyPrice * int64(p.DurationMonths)
	orderID, err := s.gateway.CreateOrder(ctx, amount, "INR", "plan-purchase", map[string]string{
		"lender_id": lenderID,
		"plan_id":   planID,
	})
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}
	return &PurchaseOrder{OrderID: orderID, PlanID: planID, Amount: amount}, nil
}

type VerifyPurchaseInput struct {
	PlanID    string
	OrderID   string
	PaymentID string
	Signature string
}

// VerifyPurchase checks the gateway signature and activates the plan. Expiry
// uses calendar month arithmetic, not fixed day counts.
func (s *Service) VerifyPurchase(ctx context.Context, lenderID string, in VerifyPurchaseInput) (*SubscriptionStatus, error) {
	u, err := s.userRepo.GetByID(ctx, lenderID)
	if err != nil {
		return nil, apperr.NotFound("USER_NOT_FOUND", "user not found")
	}
	if u.PlanID != nil && u.PlanExpiresAt != nil && u.PlanExpiresAt.After(s.now()) {
		return nil, apperr.Conflict("ACTIVE_PLAN_EXISTS", "an unexpired plan is already active")
	}
	p, err := s.planRepo.GetByID(ctx, in.PlanID)
	if err != nil {
		return nil, apperr.NotFound("PLAN_NOT_FOUND", "plan not found")
	}
	if !s.verifier.Verify(in.OrderID, in.PaymentID, in.Signature) {
		return nil, apperr.Validation("INVALID_SIGNATURE", "payment signature verification failed")
	}

	purchasedAt := s.now()
	expiresAt := purchasedAt.AddDate(0, int(p.DurationMonths), 0)
	if err := s.userRepo.SetPlan(ctx, lenderID, p.ID, purchasedAt, expiresAt); err != nil {
		return nil, err
	}
	return &SubscriptionStatus{HasPlan: true, Active: true, PlanID: &p.ID, ExpiresAt: &expiresAt}, nil
}
