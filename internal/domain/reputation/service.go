package reputation

import (
	"context"
	"time"

	loandomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/loan"
)

type LoanRepository interface {
	ListByIDNumber(ctx context.Context, idNumber string) ([]loandomain.Entity, error)
}

type Service struct {
	loanRepo LoanRepository
	now      func() time.Time
}

func NewService(loanRepo LoanRepository) *Service {
	return &Service{
		loanRepo: loanRepo,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) ScoreBorrower(ctx context.Context, idNumber string) (*Summary, error) {
	loans, err := s.loanRepo.ListByIDNumber(ctx, idNumber)
	if err != nil {
		return nil, err
	}
	sum := Score(loans, s.now())
	return &sum, nil
}
