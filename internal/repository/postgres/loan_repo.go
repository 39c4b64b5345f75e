package postgres

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codecraftwt/loan-backend-sub000/internal/domain/loan"
)

const loanColumns = `id, lender_id, borrower_id, borrower_name, id_number, mobile, address,
       amount, purpose, given_date, end_date, disbursement_mode, gateway_order_id,
       confirmation_code, code_expires_at, confirmed, verified_at, acceptance,
       payment_status, payment_type, total_paid, remaining_amount, payment_history,
       last_payment_confirmation, installment_plan, overdue_details, agreement,
       version, created_at, updated_at`

type LoanRepository struct {
	pool *pgxpool.Pool
}

func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{pool: pool}
}

func (r *LoanRepository) Create(ctx context.Context, e *loan.Entity) (*loan.Entity, error) {
	history, plan, overdue, err := marshalLoanDocs(e)
	if err != nil {
		return nil, err
	}

	q := `
INSERT INTO loans (
  lender_id, borrower_id, borrower_name, id_number, mobile, address,
  amount, purpose, given_date, end_date, disbursement_mode, gateway_order_id,
  confirmation_code, code_expires_at, confirmed, verified_at, acceptance,
  payment_status, payment_type, total_paid, remaining_amount, payment_history,
  last_payment_confirmation, installment_plan, overdue_details, agreement
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)
RETURNING ` + loanColumns

	row := r.pool.QueryRow(ctx, q,
		e.LenderID, e.BorrowerID, e.BorrowerName, e.IDNumber, e.Mobile, e.Address,
		e.Amount, e.Purpose, e.GivenDate, e.EndDate, e.DisbursementMode, e.GatewayOrderID,
		e.ConfirmationCode, nullableTime(e.CodeExpiresAt), e.Confirmed, e.VerifiedAt, e.Acceptance,
		e.PaymentStatus, e.PaymentType, e.TotalPaid, e.RemainingAmount, history,
		e.LastPaymentConfirmation, plan, overdue, e.Agreement,
	)
	return scanLoan(row)
}

func (r *LoanRepository) GetByID(ctx context.Context, id string) (*loan.Entity, error) {
	q := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	return scanLoan(r.pool.QueryRow(ctx, q, id))
}

// Update writes every mutable column guarded by the stored version. A zero
// row count means another writer got there first.
func (r *LoanRepository) Update(ctx context.Context, e *loan.Entity) error {
	history, plan, overdue, err := marshalLoanDocs(e)
	if err != nil {
		return err
	}

	q := `
UPDATE loans SET
  borrower_id = $1, borrower_name = $2, id_number = $3, mobile = $4, address = $5,
  amount = $6, purpose = $7, given_date = $8, end_date = $9, disbursement_mode = $10,
  gateway_order_id = $11, confirmation_code = $12, code_expires_at = $13, confirmed = $14,
  verified_at = $15, acceptance = $16, payment_status = $17, payment_type = $18,
  total_paid = $19, remaining_amount = $20, payment_history = $21,
  last_payment_confirmation = $22, installment_plan = $23, overdue_details = $24,
  agreement = $25, version = version + 1, updated_at = NOW()
WHERE id = $26 AND version = $27`

	tag, err := r.pool.Exec(ctx, q,
		e.BorrowerID, e.BorrowerName, e.IDNumber, e.Mobile, e.Address,
		e.Amount, e.Purpose, e.GivenDate, e.EndDate, e.DisbursementMode,
		e.GatewayOrderID, e.ConfirmationCode, nullableTime(e.CodeExpiresAt), e.Confirmed,
		e.VerifiedAt, e.Acceptance, e.PaymentStatus, e.PaymentType,
		e.TotalPaid, e.RemainingAmount, history,
		e.LastPaymentConfirmation, plan, overdue,
		e.Agreement, e.ID, e.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return loan.ErrVersionConflict
	}
	e.Version++
	return nil
}

func (r *LoanRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM loans WHERE id = $1`, id)
	return err
}

func (r *LoanRepository) List(ctx context.Context, f loan.ListFilter) ([]loan.Entity, int64, error) {
	if f.Limit <= 0 {
		f.Limit = 10
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	where := strings.Builder{}
	where.WriteString(" FROM loans WHERE 1=1")
	args := []any{}
	argPos := 1
	if strings.TrimSpace(f.LenderID) != "" {
		where.WriteString(" AND lender_id = $")
		where.WriteString(strconv.Itoa(argPos))
		args = append(args, f.LenderID)
		argPos++
	}
	if strings.TrimSpace(f.IDNumber) != "" {
		where.WriteString(" AND id_number = $")
		where.WriteString(strconv.Itoa(argPos))
		args = append(args, f.IDNumber)
		argPos++
	}
	if strings.TrimSpace(f.PaymentStatus) != "" {
		where.WriteString(" AND payment_status = $")
		where.WriteString(strconv.Itoa(argPos))
		args = append(args, f.PaymentStatus)
		argPos++
	}
	if strings.TrimSpace(f.Acceptance) != "" {
		where.WriteString(" AND acceptance = $")
		where.WriteString(strconv.Itoa(argPos))
		args = append(args, f.Acceptance)
		argPos++
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*)"+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := "SELECT " + loanColumns + where.String() +
		" ORDER BY created_at DESC LIMIT $" + strconv.Itoa(argPos) +
		" OFFSET $" + strconv.Itoa(argPos+1)
	args = append(args, f.Limit, f.Offset)

	items, err := r.queryLoans(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *LoanRepository) ListAcceptedByIDNumber(ctx context.Context, idNumber string) ([]loan.Entity, error) {
	q := `SELECT ` + loanColumns + `
FROM loans WHERE id_number = $1 AND acceptance = 'accepted'
ORDER BY created_at DESC`
	return r.queryLoans(ctx, q, idNumber)
}

func (r *LoanRepository) ListByIDNumber(ctx context.Context, idNumber string) ([]loan.Entity, error) {
	q := `SELECT ` + loanColumns + `
FROM loans WHERE id_number = $1
ORDER BY created_at DESC`
	return r.queryLoans(ctx, q, idNumber)
}

func (r *LoanRepository) ListOverdueCandidates(ctx context.Context, now time.Time) ([]loan.Entity, error) {
	q := `SELECT ` + loanColumns + `
FROM loans
WHERE confirmed AND acceptance = 'accepted' AND payment_status <> 'paid'
  AND (end_date < $1 OR (installment_plan ->> 'next_due_date')::timestamptz < $1)
ORDER BY end_date`
	return r.queryLoans(ctx, q, now)
}

func (r *LoanRepository) DistinctAcceptedIDNumbers(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT id_number FROM loans WHERE acceptance = 'accepted'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var idNumber string
		if err := rows.Scan(&idNumber); err != nil {
			return nil, err
		}
		out = append(out, idNumber)
	}
	return out, rows.Err()
}

func (r *LoanRepository) GetDashboardSummary(ctx context.Context, lenderID string) (*loan.DashboardSummary, error) {
	q := `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE payment_status IN ('pending', 'part paid', 'overdue') AND acceptance = 'accepted'),
       COUNT(*) FILTER (WHERE payment_status = 'paid'),
       COUNT(*) FILTER (WHERE payment_status = 'overdue'),
       COALESCE(SUM(amount), 0),
       COALESCE(SUM(total_paid), 0),
       COALESCE(SUM(remaining_amount), 0)
FROM loans WHERE lender_id = $1`

	out := &loan.DashboardSummary{LenderID: lenderID}
	err := r.pool.QueryRow(ctx, q, lenderID).Scan(
		&out.TotalLoans, &out.ActiveLoans, &out.PaidLoans, &out.OverdueLoans,
		&out.TotalLent, &out.TotalCollected, &out.TotalOutstanding,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *LoanRepository) queryLoans(ctx context.Context, q string, args ...any) ([]loan.Entity, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]loan.Entity, 0)
	for rows.Next() {
		item, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoan(row rowScanner) (*loan.Entity, error) {
	out := &loan.Entity{}
	var (
		historyRaw    []byte
		planRaw       []byte
		overdueRaw    []byte
		codeExpiresAt *time.Time
	)
	err := row.Scan(
		&out.ID, &out.LenderID, &out.BorrowerID, &out.BorrowerName, &out.IDNumber, &out.Mobile, &out.Address,
		&out.Amount, &out.Purpose, &out.GivenDate, &out.EndDate, &out.DisbursementMode, &out.GatewayOrderID,
		&out.ConfirmationCode, &codeExpiresAt, &out.Confirmed, &out.VerifiedAt, &out.Acceptance,
		&out.PaymentStatus, &out.PaymentType, &out.TotalPaid, &out.RemainingAmount, &historyRaw,
		&out.LastPaymentConfirmation, &planRaw, &overdueRaw, &out.Agreement,
		&out.Version, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if codeExpiresAt != nil {
		out.CodeExpiresAt = *codeExpiresAt
	}
	if len(historyRaw) > 0 {
		if err := json.Unmarshal(historyRaw, &out.PaymentHistory); err != nil {
			return nil, err
		}
	}
	if len(planRaw) > 0 {
		out.Installments = &loan.InstallmentPlan{}
		if err := json.Unmarshal(planRaw, out.Installments); err != nil {
			return nil, err
		}
	}
	if len(overdueRaw) > 0 {
		if err := json.Unmarshal(overdueRaw, &out.Overdue); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func marshalLoanDocs(e *loan.Entity) (history, plan, overdue []byte, err error) {
	entries := e.PaymentHistory
	if entries == nil {
		entries = []loan.PaymentEntry{}
	}
	history, err = json.Marshal(entries)
	if err != nil {
		return nil, nil, nil, err
	}
	if e.Installments != nil {
		plan, err = json.Marshal(e.Installments)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	overdue, err = json.Marshal(e.Overdue)
	if err != nil {
		return nil, nil, nil, err
	}
	return history, plan, overdue, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
