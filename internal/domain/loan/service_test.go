package loan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/codecraftwt/loan-backend-sub000/internal/domain/apperr"
	userdomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/user"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type memLoanRepo struct {
	loans  map[string]*Entity
	nextID int
}

func newMemLoanRepo() *memLoanRepo {
	return &memLoanRepo{loans: map[string]*Entity{}}
}

func cloneLoan(e *Entity) *Entity {
	c := *e
	c.PaymentHistory = append([]PaymentEntry(nil), e.PaymentHistory...)
	if e.Installments != nil {
		p := *e.Installments
		c.Installments = &p
	}
	return &c
}

func (r *memLoanRepo) Create(_ context.Context, e *Entity) (*Entity, error) {
	r.nextID++
	c := cloneLoan(e)
	c.ID = fmt.Sprintf("loan-%d", r.nextID)
	c.Version = 1
	c.CreatedAt = testNow
	c.UpdatedAt = testNow
	r.loans[c.ID] = c
	return cloneLoan(c), nil
}

func (r *memLoanRepo) GetByID(_ context.Context, id string) (*Entity, error) {
	e, ok := r.loans[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return cloneLoan(e), nil
}

func (r *memLoanRepo) Update(_ context.Context, e *Entity) error {
	stored, ok := r.loans[e.ID]
	if !ok {
		return errors.New("no rows")
	}
	if stored.Version != e.Version {
		return ErrVersionConflict
	}
	e.Version++
	r.loans[e.ID] = cloneLoan(e)
	return nil
}

func (r *memLoanRepo) Delete(_ context.Context, id string) error {
	delete(r.loans, id)
	return nil
}

func (r *memLoanRepo) List(_ context.Context, f ListFilter) ([]Entity, int64, error) {
	out := []Entity{}
	for _, e := range r.loans {
		if f.LenderID != "" && e.LenderID != f.LenderID {
			continue
		}
		if f.IDNumber != "" && e.IDNumber != f.IDNumber {
			continue
		}
		out = append(out, *cloneLoan(e))
	}
	return out, int64(len(out)), nil
}

func (r *memLoanRepo) ListAcceptedByIDNumber(_ context.Context, idNumber string) ([]Entity, error) {
	out := []Entity{}
	for _, e := range r.loans {
		if e.IDNumber == idNumber && e.Acceptance == AcceptanceAccepted {
			out = append(out, *cloneLoan(e))
		}
	}
	return out, nil
}

func (r *memLoanRepo) ListByIDNumber(_ context.Context, idNumber string) ([]Entity, error) {
	out := []Entity{}
	for _, e := range r.loans {
		if e.IDNumber == idNumber {
			out = append(out, *cloneLoan(e))
		}
	}
	return out, nil
}

func (r *memLoanRepo) ListOverdueCandidates(_ context.Context, now time.Time) ([]Entity, error) {
	out := []Entity{}
	for _, e := range r.loans {
		if e.PaymentStatus == PaymentPaid {
			continue
		}
		if e.EndDate.Before(now) {
			out = append(out, *cloneLoan(e))
		}
	}
	return out, nil
}

func (r *memLoanRepo) DistinctAcceptedIDNumbers(_ context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	out := []string{}
	for _, e := range r.loans {
		if e.Acceptance != AcceptanceAccepted {
			continue
		}
		if _, ok := seen[e.IDNumber]; ok {
			continue
		}
		seen[e.IDNumber] = struct{}{}
		out = append(out, e.IDNumber)
	}
	return out, nil
}

func (r *memLoanRepo) GetDashboardSummary(_ context.Context, lenderID string) (*DashboardSummary, error) {
	out := &DashboardSummary{LenderID: lenderID}
	for _, e := range r.loans {
		if e.LenderID != lenderID {
			continue
		}
		out.TotalLoans++
		out.TotalLent += e.Amount
		out.TotalCollected += e.TotalPaid
		out.TotalOutstanding += e.RemainingAmount
	}
	return out, nil
}

type memUsers struct {
	byID map[string]*userdomain.Entity
}

func (m *memUsers) GetByID(_ context.Context, id string) (*userdomain.Entity, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, errors.New("no rows")
}

func (m *memUsers) GetByIDNumber(_ context.Context, idNumber string) (*userdomain.Entity, error) {
	for _, u := range m.byID {
		if u.Role == userdomain.RoleBorrower && u.IDNumber == idNumber {
			return u, nil
		}
	}
	return nil, errors.New("no rows")
}

type stubGate struct {
	allowed bool
	reason  string
}

func (g stubGate) CanCreateLoan(context.Context, string) (bool, string, error) {
	return g.allowed, g.reason, nil
}

type stubOrders struct{}

func (stubOrders) CreateOrder(context.Context, int64, string, string, map[string]string) (string, error) {
	return "order_test_1", nil
}

type recordingNotifier struct {
	kinds []string
}

func (n *recordingNotifier) Dispatch(userID, kind, title, body, loanID string) {
	n.kinds = append(n.kinds, kind)
}

const (
	borrowerIDNumber = "123456789012"
	otherIDNumber    = "999999999999"
)

func newTestService(gate PlanGate) (*Service, *memLoanRepo, *memUsers, *recordingNotifier) {
	repo := newMemLoanRepo()
	users := &memUsers{byID: map[string]*userdomain.Entity{
		"lender-1": {ID: "lender-1", Name: "Asha Lender", Role: userdomain.RoleLender, IDNumber: "111111111111"},
		"borrower-1": {
			ID: "borrower-1", Name: "Ravi Borrower", Role: userdomain.RoleBorrower,
			IDNumber: borrowerIDNumber,
		},
	}}
	notifier := &recordingNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, users, gate, stubOrders{}, notifier, logger, 100, 10*time.Minute)
	svc.now = func() time.Time { return testNow }
	svc.newCode = func() string { return "424242" }
	return svc, repo, users, notifier
}

func validCreateInput() CreateInput {
	return CreateInput{
		BorrowerName:     "Ravi Borrower",
		IDNumber:         borrowerIDNumber,
		Mobile:           "9876543210",
		Address:          "12 Lake Road",
		Amount:           5000,
		Purpose:          "school fees",
		GivenDate:        testNow,
		EndDate:          testNow.AddDate(0, 1, 0),
		DisbursementMode: ModeCash,
		PaymentType:      TypeOneTime,
	}
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected error with code %s, got %v", code, err)
	}
	if ae.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, ae.Code, ae.Message)
	}
}

func TestCreateLoanValidation(t *testing.T) {
	svc, _, _, _ := newTestService(stubGate{allowed: true})
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateInput)
		code   string
	}{
		{"short id number", func(in *CreateInput) { in.IDNumber = "12345" }, "INVALID_ID_NUMBER"},
		{"letters in id number", func(in *CreateInput) { in.IDNumber = "12345678901x" }, "INVALID_ID_NUMBER"},
		{"short mobile", func(in *CreateInput) { in.Mobile = "12345" }, "INVALID_MOBILE"},
		{"empty name", func(in *CreateInput) { in.BorrowerName = "" }, "INVALID_NAME"},
		{"amount below minimum", func(in *CreateInput) { in.Amount = 99 }, "INVALID_AMOUNT"},
		{"end date in past", func(in *CreateInput) { in.EndDate = testNow.AddDate(0, 0, -1) }, "INVALID_END_DATE"},
		{"bad mode", func(in *CreateInput) { in.DisbursementMode = "cheque" }, "INVALID_MODE"},
		{"bad payment type", func(in *CreateInput) { in.PaymentType = "weekly" }, "INVALID_PAYMENT_TYPE"},
		{"installment without plan", func(in *CreateInput) { in.PaymentType = TypeInstallment }, "INVALID_INSTALLMENTS"},
		{"installment bad frequency", func(in *CreateInput) {
			in.PaymentType = TypeInstallment
			in.Installments = &InstallmentInput{TotalInstallments: 4, Frequency: "daily"}
		}, "INVALID_FREQUENCY"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validCreateInput()
			tc.mutate(&in)
			_, err := svc.Create(ctx, "lender-1", in)
			wantCode(t, err, tc.code)
		})
	}
}

func TestCreateLoanInitialState(t *testing.T) {
	svc, _, _, notifier := newTestService(stubGate{allowed: true})

	created, err := svc.Create(context.Background(), "lender-1", validCreateInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Confirmed {
		t.Fatalf("new loan must start unconfirmed")
	}
	if created.Acceptance != AcceptancePending {
		t.Fatalf("expected pending acceptance, got %s", created.Acceptance)
	}
	if created.PaymentStatus != PaymentPending {
		t.Fatalf("expected pending payment status, got %s", created.PaymentStatus)
	}
	if created.RemainingAmount != 5000 || created.TotalPaid != 0 {
		t.Fatalf("expected remaining 5000 / paid 0, got %d / %d", created.RemainingAmount, created.TotalPaid)
	}
	if created.ConfirmationCode != "424242" {
		t.Fatalf("expected the generated code on the entity, got %q", created.ConfirmationCode)
	}
	if created.CodeExpiresAt != testNow.Add(10*time.Minute) {
		t.Fatalf("unexpected code expiry: %v", created.CodeExpiresAt)
	}
	if created.BorrowerID == nil || *created.BorrowerID != "borrower-1" {
		t.Fatalf("registered borrower should resolve, got %v", created.BorrowerID)
	}
	if created.Agreement == "" {
		t.Fatalf("agreement snapshot must be rendered at creation")
	}
	if len(notifier.kinds) != 2 {
		t.Fatalf("expected lender and borrower notifications, got %v", notifier.kinds)
	}
}

func TestCreateLoanEndDateDueToday(t *testing.T) {
	svc, _, _, _ := newTestService(stubGate{allowed: true})
	ctx := context.Background()

	// Date-only input parses as midnight, which is earlier in the day than
	// the creation instant and must still be accepted.
	today := time.Date(testNow.Year(), testNow.Month(), testNow.Day(), 0, 0, 0, 0, time.UTC)
	in := validCreateInput()
	in.EndDate = today
	if _, err := svc.Create(ctx, "lender-1", in); err != nil {
		t.Fatalf("a loan due today must be accepted: %v", err)
	}

	// The same rule applies when terms are edited.
	created, _ := svc.Create(ctx, "lender-1", validCreateInput())
	if _, err := svc.EditTerms(ctx, "lender-1", created.ID, EditInput{EndDate: &today}); err != nil {
		t.Fatalf("editing the end date to today must be accepted: %v", err)
	}
}

func TestCreateLoanUnregisteredBorrower(t *testing.T) {
	svc, _, _, _ := newTestService(stubGate{allowed: true})

	in := validCreateInput()
	in.IDNumber = otherIDNumber
	created, err := svc.Create(context.Background(), "lender-1", in)
	if err != nil {
		t.Fatalf("loan against an unregistered borrower must still be created: %v", err)
	}
	if created.BorrowerID != nil {
		t.Fatalf("borrower reference should stay unresolved, got %v", *created.BorrowerID)
	}
}

func TestCreateLoanSelfLoan(t *testing.T) {
	svc, _, _, _ := newTestService(stubGate{allowed: true})

	in := validCreateInput()
	in.IDNumber = "111111111111"
	_, err := svc.Create(context.Background(), "lender-1", in)
	wantCode(t, err, "SELF_LOAN")
}

func TestCreateLoanGateDenied(t *testing.T) {
	svc, _, _, _ := newTestService(stubGate{allowed: false, reason: "no active subscription plan"})

	_, err := svc.Create(context.Background(), "lender-1", validCreateInput())
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.KindForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
	if ae.Message != "no active subscription plan" {
		t.Fatalf("gate reason should surface verbatim, got %q", ae.Message)
	}
}

func TestCreateLoanInstallmentPlan(t *testing.T) {
	svc, _, _, _ := newTestService(stubGate{allowed: true})

	in := validCreateInput()
	in.PaymentType = TypeInstallment
	in.Installments = &InstallmentInput{TotalInstallments: 3, Frequency: FrequencyMonthly}
	created, err := svc.Create(context.Background(), "lender-1", in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Installments == nil {
		t.Fatalf("installment plan missing")
	}
	// 5000 over 3 periods rounds up so the plan always covers the principal.
	if created.Installments.AmountPerPeriod != 1667 {
		t.Fatalf("expected per-period 1667, got %d", created.Installments.AmountPerPeriod)
	}
	wantDue := testNow.AddDate(0, 0, 30)
	if created.Installments.NextDueDate == nil || !created.Installments.NextDueDate.Equal(wantDue) {
		t.Fatalf("expected first due date %v, got %v", wantDue, created.Installments.NextDueDate)
	}
}

func TestVerifyCodeConfirmsAndAccepts(t *testing.T) {
	svc, _, _, _ := newTestService(stubGate{allowed: true})
	ctx := context.Background()
	created, _ := svc.Create(ctx, "lender-1", validCreateInput())

	got, err := svc.VerifyCode(ctx, "lender-1", created.ID, "424242")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !got.Confirmed || got.VerifiedAt == nil {
		t.Fatalf("loan should be confirmed with a verification timestamp")
	}
	if got.Acceptance != AcceptanceAccepted {
		t.Fatalf("code verification must auto-accept, got %s", got.Acceptance)
	}
}

func TestVerifyCodeFailures(t *testing.T) {
	svc, _, _, _ := newTestService(stubGate{allowed: true})
	ctx := context.Background()
	created, _ := svc.Create(ctx, "lender-1", validCreateInput())

	_, err := svc.VerifyCode(ctx, "lender-1", created.ID, "000000")
	wantCode(t, err, "INVALID_CODE")

	svc.now = func() time.Time { return testNow.Add(11 * time.Minute) }
	_, err = svc.VerifyCode(ctx, "lender-1", created.ID, "424242")
	wantCode(t, err, "CODE_EXPIRED")

	svc.now = func() time.Time { return testNow }
	if _, err := svc.VerifyCode(ctx, "lender-1", created.ID, "424242"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	_, err = svc.VerifyCode(ctx, "lender-1", created.ID, "424242")
	wantCode(t, err, "ALREADY_CONFIRMED")
}

func TestVerifyCodeOwnership(t *testing.T) {
	svc, _, users, _ := newTestService(stubGate{allowed: true})
	ctx := context.Background()
	users.byID["lender-2"] = &userdomain.Entity{ID: "lender-2", Name: "Other", Role: userdomain.RoleLender}
	created, _ := svc.Create(ctx, "lender-1", validCreateInput())

	_, err := svc.VerifyCode(ctx, "lender-2", created.ID, "424242")
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.KindForbidden {
		t.Fatalf("expected forbidden for another lender's loan, got %v", err)
	}
}

func TestResendCodeRotates(t *testing.T) {
	svc, _, _, _ := newTestService(stubGate{allowed: true})
	ctx := context.Background()
	created, _ := svc.Create(ctx, "lender-1", validCreateInput())

	svc.newCode = func() string { return "777777" }
	svc.now = func() time.Time { return testNow.Add(5 * time.Minute) }
	got, err := svc.ResendCode(ctx, "lender-1", created.ID)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if got.ConfirmationCode != "777777" {
		t.Fatalf("code should rotate, got %q", got.ConfirmationCode)
	}
	if got.CodeExpiresAt != testNow.Add(15*time.Minute) {
		t.Fatalf("expiry should restart from resend time, got %v", got.CodeExpiresAt)
	}

	// The old code is dead.
	_, err = svc.VerifyCode(ctx, "lender-1", created.ID, "424242")
	wantCode(t, err, "INVALID_CODE")
}

func TestRecordAcceptance(t *testing.T) {
	svc, _, _, notifier := newTestService(stubGate{allowed: true})
	ctx := context.Background()
	created, _ := svc.Create(ctx, "lender-1", validCreateInput())

	got, err := svc.RecordAcceptance(ctx, "borrower-1", created.ID, AcceptanceAccepted)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got.Acceptance != AcceptanceAccepted {
		t.Fatalf("expected accepted, got %s", got.Acceptance)
	}

	_, err = svc.RecordAcceptance(ctx, "borrower-1", created.ID, AcceptanceAccepted)
	wantCode(t, err, "SAME_STATE")

	if _, err := svc.RecordAcceptance(ctx, "borrower-1", created.ID, AcceptanceRejected); err != nil {
		t.Fatalf("flip to rejected: %v", err)
	}

	found := false
	for _, k := range notifier.kinds {
		if k == "loan_status" {
			found = true
		}
	}
	if !found {
		t.Fatalf("lender should be notified of the decision, got %v", notifier.kinds)
	}
}

func TestRecordAcceptanceLockedAfterCodeVerification(t *testing.T) {
	svc, _, _, _ := newTestService(stubGate{allowed: true})
	ctx := context.Background()
	created, _ := svc.Create(ctx, "lender-1", validCreateInput())
	if _, err := svc.VerifyCode(ctx, "lender-1", created.ID, "424242"); err != nil {
		t.Fatalf("verify: %v", err)
	}

	_, err := svc.RecordAcceptance(ctx, "borrower-1", created.ID, AcceptanceRejected)
	wantCode(t, err, "LOAN_ACCEPTED")
}

func TestRecordAcceptanceWrongBorrower(t *testing.T) {
	svc, _, users, _ := newTestService(stubGate{allowed: true})
	ctx := context.Background()
	users.byID["borrower-2"] = &userdomain.Entity{
		ID: "borrower-2", Role: userdomain.RoleBorrower, IDNumber: otherIDNumber,
	}
	created, _ := svc.Create(ctx, "lender-1", validCreateInput())

	_, err := svc.RecordAcceptance(ctx, "borrower-2", created.ID, AcceptanceAccepted)
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.KindForbidden {
		t.Fatalf("expected forbidden for id-number mismatch, got %v", err)
	}
}

func TestEditTermsResetsConfirmation(t *testing.T) {
	svc, _, _, _ := newTestService(stubGate{allowed: true})
	ctx := context.Background()
	created, _ := svc.Create(ctx, "lender-1", validCreateInput())
	if _, err := svc.RecordAcceptance(ctx, "borrower-1", created.ID, AcceptanceAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}

	svc.newCode = func() string { return "555555" }
	amount := int64(8000)
	got, err := svc.EditTerms(ctx, "lender-1", created.ID, EditInput{Amount: &amount})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got.Amount != 8000 || got.RemainingAmount != 8000 {
		t.Fatalf("amount and remaining should move together, got %d / %d", got.Amount, got.RemainingAmount)
	}
	if got.Confirmed || got.VerifiedAt != nil {
		t.Fatalf("edit must invalidate confirmation")
	}
	if got.Acceptance != AcceptancePending {
		t.Fatalf("edit must reset acceptance, got %s", got.Acceptance)
	}
	if got.ConfirmationCode != "555555" {
		t.Fatalf("edit must issue a fresh code, got %q", got.ConfirmationCode)
	}
}

func TestEditTermsBlockedWhenAccepted(t *testing.T) {
	svc, _, _, _ := newTestService(stubGate{allowed: true})
	ctx := context.Background()
	created, _ := svc.Create(ctx, "lender-1", validCreateInput())
	if _, err := svc.VerifyCode(ctx, "lender-1", created.ID, "424242"); err != nil {
		t.Fatalf("verify: %v", err)
	}

	amount := int64(8000)
	_, err := svc.EditTerms(ctx, "lender-1", created.ID, EditInput{Amount: &amount})
	wantCode(t, err, "LOAN_ACCEPTED")
}

func TestDeleteBlockedByConfirmedPayments(t *testing.T) {
	svc, repo, _, _ := newTestService(stubGate{allowed: true})
	ctx := context.Background()
	created, _ := svc.Create(ctx, "lender-1", validCreateInput())
	if _, err := svc.VerifyCode(ctx, "lender-1", created.ID, "424242"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, _, err := svc.SubmitPayment(ctx, "borrower-1", created.ID, SubmitPaymentInput{
		Amount: 1000, Mode: ModeCash, Type: TypeOneTime,
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// A pending entry does not protect the loan.
	if err := svc.Delete(ctx, "lender-1", created.ID); err != nil {
		t.Fatalf("delete with only pending payments should pass: %v", err)
	}

	created2, _ := svc.Create(ctx, "lender-1", validCreateInput())
	if _, err := svc.VerifyCode(ctx, "lender-1", created2.ID, "424242"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	_, proj, err := svc.SubmitPayment(ctx, "borrower-1", created2.ID, SubmitPaymentInput{
		Amount: 1000, Mode: ModeCash, Type: TypeOneTime,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.ConfirmPayment(ctx, "lender-1", created2.ID, proj.EntryID, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	err = svc.Delete(ctx, "lender-1", created2.ID)
	wantCode(t, err, "LOAN_HAS_PAYMENTS")
	if _, ok := repo.loans[created2.ID]; !ok {
		t.Fatalf("loan must survive the blocked delete")
	}
}

func TestListForBorrowerWithoutIDNumber(t *testing.T) {
	svc, _, users, _ := newTestService(stubGate{allowed: true})
	users.byID["borrower-3"] = &userdomain.Entity{ID: "borrower-3", Role: userdomain.RoleBorrower}

	items, total, err := svc.ListForBorrower(context.Background(), "borrower-3", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 || total != 0 {
		t.Fatalf("a borrower without an id number has no loans, got %d", len(items))
	}
}
