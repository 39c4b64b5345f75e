package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/codecraftwt/loan-backend-sub000/internal/notify"
)

type NotificationFeed interface {
	ListSince(ctx context.Context, lastID int64, limit int32) ([]notify.Notification, error)
}

// Notifier tails the notifications table and fans new rows out to connected
// clients. Polling keeps the api process stateless; missed ticks are caught
// up on the next one because the cursor is the last seen row id.
type Notifier struct {
	feed         NotificationFeed
	hub          *Hub
	pollInterval time.Duration
	lastID       int64
}

func NewNotifier(feed NotificationFeed, hub *Hub, pollInterval time.Duration) *Notifier {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Notifier{feed: feed, hub: hub, pollInterval: pollInterval}
}

func (n *Notifier) Run(ctx context.Context) error {
	ticker := time.NewTicker(n.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := n.tick(ctx); err != nil {
				return err
			}
		}
	}
}

func (n *Notifier) tick(ctx context.Context) error {
	items, err := n.feed.ListSince(ctx, n.lastID, 100)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.ID > n.lastID {
			n.lastID = item.ID
		}
		payload, _ := json.Marshal(map[string]any{
			"event": "notification",
			"data": map[string]any{
				"id":         item.ID,
				"kind":       item.Kind,
				"title":      item.Title,
				"body":       item.Body,
				"loan_id":    item.LoanID,
				"created_at": item.CreatedAt.UTC().Format(time.RFC3339),
			},
		})
		n.hub.Publish(UserChannel(item.UserID), payload)
	}
	return nil
}
