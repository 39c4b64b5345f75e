package notify

import (
	"context"
	"log/slog"
	"time"

	userdomain "github.com/codecraftwt/loan-backend-sub000/internal/domain/user"
)

type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*userdomain.Entity, error)
}

// Dispatcher persists a notification row and then pushes it to the user's
// devices. Delivery is fire-and-forget: failures are logged and never reach
// the caller, and nothing is retried.
type Dispatcher struct {
	repo    Repository
	push    PushSender
	users   UserDirectory
	logger  *slog.Logger
	timeout time.Duration
}

func NewDispatcher(repo Repository, push PushSender, users UserDirectory, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		repo:    repo,
		push:    push,
		users:   users,
		logger:  logger,
		timeout: 10 * time.Second,
	}
}

func (d *Dispatcher) Dispatch(userID, kind, title, body, loanID string) {
	go d.deliver(userID, kind, title, body, loanID)
}

func (d *Dispatcher) deliver(userID, kind, title, body, loanID string) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	n := &Notification{UserID: userID, Kind: kind, Title: title, Body: body}
	if loanID != "" {
		n.LoanID = &loanID
	}
	if _, err := d.repo.Create(ctx, n); err != nil {
		d.logger.Error("persist notification", "user_id", userID, "kind", kind, "err", err)
		return
	}

	u, err := d.users.GetByID(ctx, userID)
	if err != nil {
		d.logger.Error("load notification target", "user_id", userID, "err", err)
		return
	}
	if len(u.DeviceTokens) == 0 {
		return
	}
	data := map[string]string{"kind": kind}
	if loanID != "" {
		data["loan_id"] = loanID
	}
	if err := d.push.Push(ctx, u.DeviceTokens, title, body, data); err != nil {
		d.logger.Error("push notification", "user_id", userID, "kind", kind, "err", err)
	}
}
