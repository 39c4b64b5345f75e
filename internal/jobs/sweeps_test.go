package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type stubOverdue struct {
	updated int
	err     error
	panics  bool
	calls   int
}

func (s *stubOverdue) SweepOverdue(context.Context) (int, error) {
	s.calls++
	if s.panics {
		panic("boom")
	}
	return s.updated, s.err
}

type stubFraud struct {
	updated int
	err     error
	calls   int
}

func (s *stubFraud) SweepAll(context.Context) (int, error) {
	s.calls++
	return s.updated, s.err
}

func newTestSweeper(overdue *stubOverdue, fraud *stubFraud) *Sweeper {
	return NewSweeper(overdue, fraud, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRunOverdueSweep(t *testing.T) {
	overdue := &stubOverdue{updated: 3}
	s := newTestSweeper(overdue, &stubFraud{})

	if err := s.RunOverdueSweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if overdue.calls != 1 {
		t.Fatalf("expected one sweep call, got %d", overdue.calls)
	}
}

func TestRunOverdueSweepPropagatesError(t *testing.T) {
	overdue := &stubOverdue{err: errors.New("db down")}
	s := newTestSweeper(overdue, &stubFraud{})

	if err := s.RunOverdueSweep(context.Background()); err == nil {
		t.Fatalf("expected the sweep error to surface")
	}
}

func TestRunOverdueSweepRecoversPanic(t *testing.T) {
	overdue := &stubOverdue{panics: true}
	s := newTestSweeper(overdue, &stubFraud{})

	// A panicking sweep must not take the scheduler down.
	if err := s.RunOverdueSweep(context.Background()); err != nil {
		t.Fatalf("recovered run should report no error, got %v", err)
	}
}

func TestRunFraudSweep(t *testing.T) {
	fraud := &stubFraud{updated: 5}
	s := newTestSweeper(&stubOverdue{}, fraud)

	if err := s.RunFraudSweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if fraud.calls != 1 {
		t.Fatalf("expected one sweep call, got %d", fraud.calls)
	}
}

func TestRunFraudSweepPropagatesError(t *testing.T) {
	fraud := &stubFraud{err: errors.New("db down")}
	s := newTestSweeper(&stubOverdue{}, fraud)

	if err := s.RunFraudSweep(context.Background()); err == nil {
		t.Fatalf("expected the sweep error to surface")
	}
}
