package loan

import (
	"context"
	"time"
)

type AcceptanceStatus string

const (
	AcceptancePending  AcceptanceStatus = "pending"
	AcceptanceAccepted AcceptanceStatus = "accepted"
	AcceptanceRejected AcceptanceStatus = "rejected"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPartPaid PaymentStatus = "part paid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentOverdue  PaymentStatus = "overdue"
)

type PaymentMode string

const (
	ModeCash   PaymentMode = "cash"
	ModeOnline PaymentMode = "online"
)

type PaymentType string

const (
	TypeOneTime     PaymentType = "one-time"
	TypeInstallment PaymentType = "installment"
)

type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
)

// Days until the next installment falls due.
func (f Frequency) Days() int {
	switch f {
	case FrequencyWeekly:
		return 7
	case FrequencyQuarterly:
		return 90
	default:
		return 30
	}
}

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly:
		return true
	}
	return false
}

type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntryConfirmed EntryStatus = "confirmed"
	EntryRejected  EntryStatus = "rejected"
)

// PaymentEntry is one row in the loan's append-only payment log. Status
// moves pending->confirmed or pending->rejected and never changes again.
type PaymentEntry struct {
	ID                string      `json:"id"`
	Amount            int64       `json:"amount"`
	Mode              PaymentMode `json:"mode"`
	Type              PaymentType `json:"type"`
	InstallmentNumber int32       `json:"installment_number,omitempty"`
	TransactionRef    string      `json:"transaction_ref,omitempty"`
	ProofURL          string      `json:"proof_url,omitempty"`
	SubmittedAt       time.Time   `json:"submitted_at"`
	Status            EntryStatus `json:"status"`
	ResolvedBy        string      `json:"resolved_by,omitempty"`
	ResolvedAt        *time.Time  `json:"resolved_at,omitempty"`
	Notes             string      `json:"notes,omitempty"`
}

type InstallmentPlan struct {
	TotalInstallments int32      `json:"total_installments"`
	AmountPerPeriod   int64      `json:"amount_per_period"`
	Frequency         Frequency  `json:"frequency"`
	NextDueDate       *time.Time `json:"next_due_date,omitempty"`
	PaidInstallments  int32      `json:"paid_installments"`
}

type OverdueDetails struct {
	IsOverdue     bool  `json:"is_overdue"`
	OverdueAmount int64 `json:"overdue_amount"`
	OverdueDays   int32 `json:"overdue_days"`
}

type Entity struct {
	ID       string
	LenderID string

	// BorrowerID is a weak reference: nil until a registered borrower
	// matches IDNumber. The loan is valid without it.
	BorrowerID   *string
	BorrowerName string
	IDNumber     string
	Mobile       string
	Address      string

	Amount           int64
	Purpose          string
	GivenDate        time.Time
	EndDate          time.Time
	DisbursementMode PaymentMode
	GatewayOrderID   string

	ConfirmationCode string
	CodeExpiresAt    time.Time
	Confirmed        bool
	VerifiedAt       *time.Time

	Acceptance AcceptanceStatus

	PaymentStatus           PaymentStatus
	PaymentType             PaymentType
	TotalPaid               int64
	RemainingAmount         int64
	PaymentHistory          []PaymentEntry
	LastPaymentConfirmation EntryStatus
	Installments            *InstallmentPlan
	Overdue                 OverdueDetails

	Agreement string

	// Version guards read-modify-write updates; the repository refuses a
	// write whose version no longer matches the stored row.
	Version int32

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e *Entity) FindPayment(paymentID string) *PaymentEntry {
	for i := range e.PaymentHistory {
		if e.PaymentHistory[i].ID == paymentID {
			return &e.PaymentHistory[i]
		}
	}
	return nil
}

type ListFilter struct {
	LenderID      string
	IDNumber      string
	PaymentStatus string
	Acceptance    string
	Limit         int32
	Offset        int32
}

type DashboardSummary struct {
	LenderID         string `json:"lender_id"`
	TotalLoans       int64  `json:"total_loans"`
	ActiveLoans      int64  `json:"active_loans"`
	PaidLoans        int64  `json:"paid_loans"`
	OverdueLoans     int64  `json:"overdue_loans"`
	TotalLent        int64  `json:"total_lent"`
	TotalCollected   int64  `json:"total_collected"`
	TotalOutstanding int64  `json:"total_outstanding"`
}

type Repository interface {
	Create(ctx context.Context, e *Entity) (*Entity, error)
	GetByID(ctx context.Context, id string) (*Entity, error)
	// Update persists every mutable field and bumps Version; it returns
	// ErrVersionConflict when the stored version has moved on.
	Update(ctx context.Context, e *Entity) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ListFilter) ([]Entity, int64, error)
	// ListAcceptedByIDNumber feeds the fraud scorer: accepted loans only.
	ListAcceptedByIDNumber(ctx context.Context, idNumber string) ([]Entity, error)
	// ListByIDNumber feeds the reputation scorer: the borrower's full set.
	ListByIDNumber(ctx context.Context, idNumber string) ([]Entity, error)
	ListOverdueCandidates(ctx context.Context, now time.Time) ([]Entity, error)
	DistinctAcceptedIDNumbers(ctx context.Context) ([]string, error)
	GetDashboardSummary(ctx context.Context, lenderID string) (*DashboardSummary, error)
}
