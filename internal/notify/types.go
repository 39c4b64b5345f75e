package notify

import (
	"context"
	"time"
)

type Notification struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	LoanID    *string   `json:"loan_id,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository interface {
	Create(ctx context.Context, n *Notification) (*Notification, error)
	ListByUser(ctx context.Context, userID string, limit, offset int32) ([]Notification, int64, error)
	MarkRead(ctx context.Context, userID string, notificationID int64) error
	// ListSince feeds the websocket notifier's incremental poll.
	ListSince(ctx context.Context, lastID int64, limit int32) ([]Notification, error)
}
