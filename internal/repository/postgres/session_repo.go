package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codecraftwt/loan-backend-sub000/internal/auth"
)

const sessionColumns = `id, user_id, refresh_token_hash, user_agent, ip_address,
       expires_at, revoked_at, created_at, updated_at`

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Create(ctx context.Context, userID, refreshHash, userAgent, ipAddress string, expiresAt time.Time) (*auth.Session, error) {
	q := `
INSERT INTO sessions (user_id, refresh_token_hash, user_agent, ip_address, expires_at)
VALUES ($1,$2,$3,$4,$5)
RETURNING ` + sessionColumns
	return scanSession(r.pool.QueryRow(ctx, q, userID, refreshHash, userAgent, ipAddress, expiresAt))
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*auth.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanSession(r.pool.QueryRow(ctx, q, sessionID))
}

func (r *SessionRepository) Revoke(ctx context.Context, sessionID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions SET revoked_at = NOW(), updated_at = NOW() WHERE id = $1 AND revoked_at IS NULL`,
		sessionID)
	return err
}

func (r *SessionRepository) UpdateRefreshHash(ctx context.Context, sessionID, refreshHash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions SET refresh_token_hash = $1, updated_at = NOW() WHERE id = $2`,
		refreshHash, sessionID)
	return err
}

func scanSession(row rowScanner) (*auth.Session, error) {
	out := &auth.Session{}
	err := row.Scan(
		&out.ID, &out.UserID, &out.RefreshTokenHash, &out.UserAgent, &out.IPAddress,
		&out.ExpiresAt, &out.RevokedAt, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}
