package fraud

import (
	"time"

	loandomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/loan"
)

type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

type Assessment struct {
	Score          int32    `json:"score"`
	Level          Level    `json:"level"`
	Flags          []string `json:"flags"`
	Recommendation string   `json:"recommendation"`

	LoansLast30Days  int   `json:"loans_last_30_days"`
	LoansLast90Days  int   `json:"loans_last_90_days"`
	LoansLast180Days int   `json:"loans_last_180_days"`
	PendingLoans     int   `json:"pending_loans"`
	PendingAmount    int64 `json:"pending_amount"`
	OverdueLoans     int   `json:"overdue_loans"`
	OverdueAmount    int64 `json:"overdue_amount"`
	MaxOverdueDays   int32 `json:"max_overdue_days"`
	SevereOverdue    int   `json:"severe_overdue"`
	CriticalOverdue  int   `json:"critical_overdue"`

	GeneratedAt time.Time `json:"generated_at"`
}

var recommendations = map[Level]string{
	LevelLow:      "Low risk. Standard lending terms may apply.",
	LevelMedium:   "Medium risk. Verify repayment capacity before lending further.",
	LevelHigh:     "High risk. Lend only with strong collateral or guarantees.",
	LevelCritical: "Critical risk. Lending to this borrower is not advisable.",
}

// Score evaluates a borrower's accepted loan history. It is a pure function
// of its inputs; persistence lives in Service.
func Score(loans []loandomain.Entity, now time.Time) Assessment {
	a := Assessment{Flags: []string{}, GeneratedAt: now}

	for i := range loans {
		l := &loans[i]

		age := now.Sub(l.GivenDate)
		if age >= 0 {
			if age <= 30*24*time.Hour {
				a.LoansLast30Days++
			}
			if age <= 90*24*time.Hour {
				a.LoansLast90Days++
			}
			if age <= 180*24*time.Hour {
				a.LoansLast180Days++
			}
		}

		switch l.PaymentStatus {
		case loandomain.PaymentPending:
			a.PendingLoans++
			a.PendingAmount += l.RemainingAmount
		case loandomain.PaymentOverdue:
			a.OverdueLoans++
			a.OverdueAmount += l.Overdue.OverdueAmount
			if l.Overdue.OverdueDays > a.MaxOverdueDays {
				a.MaxOverdueDays = l.Overdue.OverdueDays
			}
			if l.Overdue.OverdueDays >= 60 {
				a.SevereOverdue++
			}
			if l.Overdue.OverdueDays >= 30 {
				a.CriticalOverdue++
			}
		}
	}

	score := 0
	if a.LoansLast30Days >= 3 {
		score += 20
		a.Flags = append(a.Flags, "high_velocity_30d")
	}
	if a.LoansLast90Days >= 5 {
		score += 15
		a.Flags = append(a.Flags, "high_velocity_90d")
	}
	if a.LoansLast180Days >= 8 {
		a.Flags = append(a.Flags, "high_velocity_180d")
	}
	score += 10 * a.PendingLoans
	score += 25 * a.OverdueLoans
	score += 50 * a.SevereOverdue
	if a.OverdueLoans > 0 {
		a.Flags = append(a.Flags, "overdue_loans")
	}
	if a.SevereOverdue > 0 {
		a.Flags = append(a.Flags, "severe_overdue")
	}
	if score > 100 {
		score = 100
	}
	a.Score = int32(score)

	switch {
	case score >= 90:
		a.Level = LevelCritical
	case score >= 60:
		a.Level = LevelHigh
	case score >= 30:
		a.Level = LevelMedium
	default:
		a.Level = LevelLow
	}
	a.Recommendation = recommendations[a.Level]
	return a
}
