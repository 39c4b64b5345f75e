package jobs

import (
	"context"
	"log/slog"
	"time"
)

type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) (int, error)
}

type FraudSweeper interface {
	SweepAll(ctx context.Context) (int, error)
}

// Sweeper runs the nightly maintenance passes. Each run is idempotent, so a
// crashed or doubled schedule only costs wasted work.
type Sweeper struct {
	overdue OverdueSweeper
	fraud   FraudSweeper
	logger  *slog.Logger
	timeout time.Duration
}

func NewSweeper(overdue OverdueSweeper, fraud FraudSweeper, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		overdue: overdue,
		fraud:   fraud,
		logger:  logger,
		timeout: 10 * time.Minute,
	}
}

func (s *Sweeper) RunOverdueSweep(ctx context.Context) error {
	defer s.recoverPanic("overdue_sweep")

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	updated, err := s.overdue.SweepOverdue(ctx)
	if err != nil {
		s.logger.Error("overdue sweep failed", "err", err)
		return err
	}
	s.logger.Info("overdue sweep complete", "updated", updated, "took", time.Since(started).String())
	return nil
}

func (s *Sweeper) RunFraudSweep(ctx context.Context) error {
	defer s.recoverPanic("fraud_sweep")

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	updated, err := s.fraud.SweepAll(ctx)
	if err != nil {
		s.logger.Error("fraud sweep failed", "err", err)
		return err
	}
	s.logger.Info("fraud sweep complete", "updated", updated, "took", time.Since(started).String())
	return nil
}

func (s *Sweeper) recoverPanic(job string) {
	if r := recover(); r != nil {
		s.logger.Error("sweep panicked", "job", job, "panic", r)
	}
}
