package fraud

import (
	"context"
	"log/slog"
	"time"

	"github.com/codecraftwt/loan-backend-sub000/internal/domain/apperr"
	loandomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/loan"
	userdomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/user"
)

const maxHistory = 10

type LoanRepository interface {
	ListAcceptedByIDNumber(ctx context.Context, idNumber string) ([]loandomain.Entity, error)
	DistinctAcceptedIDNumbers(ctx context.Context) ([]string, error)
}

type UserRepository interface {
	GetByIDNumber(ctx context.Context, idNumber string) (*userdomain.Entity, error)
	SetFraudStatus(ctx context.Context, userID string, fs userdomain.FraudStatus) error
}

type Service struct {
	loanRepo LoanRepository
	userRepo UserRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(loanRepo LoanRepository, userRepo UserRepository, logger *slog.Logger) *Service {
	return &Service{
		loanRepo: loanRepo,
		userRepo: userRepo,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ScoreBorrower computes the assessment without touching stored state.
func (s *Service) ScoreBorrower(ctx context.Context, idNumber string) (*Assessment, error) {
	loans, err := s.loanRepo.ListAcceptedByIDNumber(ctx, idNumber)
	if err != nil {
		return nil, err
	}
	a := Score(loans, s.now())
	return &a, nil
}

// PersistStatus is the single state-mutating entry point: it scores the
// borrower and writes the result onto the user record, keeping a rolling
// history of at most ten assessments, newest first.
func (s *Service) PersistStatus(ctx context.Context, idNumber string) (*Assessment, error) {
	u, err := s.userRepo.GetByIDNumber(ctx, idNumber)
	if err != nil {
		return nil, apperr.NotFound("BORROWER_NOT_FOUND", "no registered borrower for that id number")
	}

	a, err := s.ScoreBorrower(ctx, idNumber)
	if err != nil {
		return nil, err
	}

	history := []userdomain.FraudAssessment{{
		Score:       a.Score,
		Level:       string(a.Level),
		GeneratedAt: a.GeneratedAt,
	}}
	if u.Fraud != nil {
		history = append(history, u.Fraud.History...)
	}
	if len(history) > maxHistory {
		history = history[:maxHistory]
	}

	fs := userdomain.FraudStatus{
		Score:          a.Score,
		Level:          string(a.Level),
		Flags:          a.Flags,
		Recommendation: a.Recommendation,
		UpdatedAt:      a.GeneratedAt,
		History:        history,
	}
	if err := s.userRepo.SetFraudStatus(ctx, u.ID, fs); err != nil {
		return nil, err
	}
	return a, nil
}

// SweepAll refreshes the fraud status of every borrower with at least one
// accepted loan. Unregistered borrowers are skipped; there is no user record
// to write to.
func (s *Service) SweepAll(ctx context.Context) (int, error) {
	idNumbers, err := s.loanRepo.DistinctAcceptedIDNumbers(ctx)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, idNumber := range idNumbers {
		if _, err := s.PersistStatus(ctx, idNumber); err != nil {
			if _, ok := err.(*apperr.Error); ok {
				continue
			}
			s.logger.Error("fraud sweep failed for borrower", "id_number", idNumber, "err", err)
			continue
		}
		updated++
	}
	return updated, nil
}
