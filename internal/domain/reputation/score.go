package reputation

import (
	"time"

	loandomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/loan"
)

type Level string

const (
	LevelExcellent    Level = "Excellent"
	LevelGood         Level = "Good"
	LevelFair         Level = "Fair"
	LevelBelowAverage Level = "Below Average"
	LevelPoor         Level = "Poor"
)

// A borrower with no history starts in the middle of the scale.
const defaultScore = 50

type Summary struct {
	Score int32 `json:"score"`
	Level Level `json:"level"`

	TotalLoans        int     `json:"total_loans"`
	PaidLoans         int     `json:"paid_loans"`
	PartPaidLoans     int     `json:"part_paid_loans"`
	OverdueLoans      int     `json:"overdue_loans"`
	PendingLoans      int     `json:"pending_loans"`
	OnTimeRate        float64 `json:"on_time_rate"`
	AverageOverdueDay float64 `json:"average_overdue_days"`
}

// Score rates a borrower's full loan set, accepted or not. Positive
// components reward punctual and complete repayment; penalties scale with
// delinquency. The result is clamped to [0, 100].
func Score(loans []loandomain.Entity, now time.Time) Summary {
	sum := Summary{TotalLoans: len(loans)}
	if len(loans) == 0 {
		sum.Score = defaultScore
		sum.Level = levelFor(defaultScore)
		return sum
	}

	var confirmedPayments, onTimePayments int
	var overdueDayTotal int64

	for i := range loans {
		l := &loans[i]
		switch l.PaymentStatus {
		case loandomain.PaymentPaid:
			sum.PaidLoans++
		case loandomain.PaymentPartPaid:
			sum.PartPaidLoans++
		case loandomain.PaymentOverdue:
			sum.OverdueLoans++
			overdueDayTotal += int64(l.Overdue.OverdueDays)
		case loandomain.PaymentPending:
			sum.PendingLoans++
		}

		for j := range l.PaymentHistory {
			entry := &l.PaymentHistory[j]
			if entry.Status != loandomain.EntryConfirmed {
				continue
			}
			confirmedPayments++
			if paidOnTime(l, entry) {
				onTimePayments++
			}
		}
	}

	total := float64(len(loans))
	score := 0.0

	if confirmedPayments > 0 {
		sum.OnTimeRate = float64(onTimePayments) / float64(confirmedPayments)
		score += 40 * sum.OnTimeRate
	}
	score += 30 * float64(sum.PaidLoans) / total
	score += 10 * float64(sum.PartPaidLoans) / total

	score -= 30 * float64(sum.OverdueLoans) / total
	if sum.OverdueLoans > 0 {
		sum.AverageOverdueDay = float64(overdueDayTotal) / float64(sum.OverdueLoans)
		penalty := sum.AverageOverdueDay / 30 * 20
		if penalty > 20 {
			penalty = 20
		}
		score -= penalty
	}
	score -= 10 * float64(sum.PendingLoans) / total

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	sum.Score = int32(score)
	sum.Level = levelFor(sum.Score)
	return sum
}

// paidOnTime approximates the due date: the installment schedule's next due
// date when one exists, the loan end date otherwise. With no resolvable due
// date, a loan that never went overdue counts as on time.
func paidOnTime(l *loandomain.Entity, entry *loandomain.PaymentEntry) bool {
	var due time.Time
	if entry.Type == loandomain.TypeInstallment && l.Installments != nil && l.Installments.NextDueDate != nil {
		due = *l.Installments.NextDueDate
	} else if !l.EndDate.IsZero() {
		due = l.EndDate
	}
	if due.IsZero() {
		return !l.Overdue.IsOverdue
	}
	return !entry.SubmittedAt.After(due)
}

func levelFor(score int32) Level {
	switch {
	case score >= 80:
		return LevelExcellent
	case score >= 65:
		return LevelGood
	case score >= 50:
		return LevelFair
	case score >= 35:
		return LevelBelowAverage
	default:
		return LevelPoor
	}
}
