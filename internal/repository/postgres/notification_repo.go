package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codecraftwt/loan-backend-sub000/internal/notify"
)

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) Create(ctx context.Context, n *notify.Notification) (*notify.Notification, error) {
	q := `
INSERT INTO notifications (user_id, kind, title, body, loan_id)
VALUES ($1,$2,$3,$4,$5)
RETURNING id, user_id, kind, title, body, loan_id, read, created_at`
	out := &notify.Notification{}
	err := r.pool.QueryRow(ctx, q, n.UserID, n.Kind, n.Title, n.Body, n.LoanID).Scan(
		&out.ID, &out.UserID, &out.Kind, &out.Title, &out.Body, &out.LoanID, &out.Read, &out.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit, offset int32) ([]notify.Notification, int64, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `
SELECT id, user_id, kind, title, body, loan_id, read, created_at
FROM notifications WHERE user_id = $1
ORDER BY id DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]notify.Notification, 0)
	for rows.Next() {
		var item notify.Notification
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.Kind, &item.Title, &item.Body,
			&item.LoanID, &item.Read, &item.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, item)
	}
	return out, total, rows.Err()
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID string, notificationID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`,
		notificationID, userID)
	return err
}

func (r *NotificationRepository) ListSince(ctx context.Context, lastID int64, limit int32) ([]notify.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `
SELECT id, user_id, kind, title, body, loan_id, read, created_at
FROM notifications WHERE id > $1
ORDER BY id LIMIT $2`
	rows, err := r.pool.Query(ctx, q, lastID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]notify.Notification, 0)
	for rows.Next() {
		var item notify.Notification
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.Kind, &item.Title, &item.Body,
			&item.LoanID, &item.Read, &item.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
