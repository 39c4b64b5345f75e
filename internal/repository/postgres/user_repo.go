package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codecraftwt/loan-backend-sub000/internal/domain/user"
)

const userColumns = `id, name, email, password_hash, role, id_number, mobile, address,
       device_tokens, plan_id, plan_purchased_at, plan_expires_at, fraud_status,
       created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, in user.CreateInput) (*user.Entity, error) {
	q := `
INSERT INTO users (name, email, password_hash, role, id_number, mobile, address)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q,
		in.Name, in.Email, in.PasswordHash, in.Role, in.IDNumber, in.Mobile, in.Address))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.Entity, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, q, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.Entity, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, q, email))
}

func (r *UserRepository) GetByIDNumber(ctx context.Context, idNumber string) (*user.Entity, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE role = 'borrower' AND id_number = $1`
	return scanUser(r.pool.QueryRow(ctx, q, idNumber))
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		passwordHash, userID)
	return err
}

func (r *UserRepository) AddDeviceToken(ctx context.Context, userID, token string) error {
	// Appends only when the token is not already present.
	q := `
UPDATE users
SET device_tokens = device_tokens || to_jsonb($1::text), updated_at = NOW()
WHERE id = $2 AND NOT device_tokens ? $1`
	_, err := r.pool.Exec(ctx, q, token, userID)
	return err
}

func (r *UserRepository) SetPlan(ctx context.Context, userID, planID string, purchasedAt, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET plan_id = $1, plan_purchased_at = $2, plan_expires_at = $3, updated_at = NOW() WHERE id = $4`,
		planID, purchasedAt, expiresAt, userID)
	return err
}

func (r *UserRepository) SetFraudStatus(ctx context.Context, userID string, fs user.FraudStatus) error {
	raw, err := json.Marshal(fs)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE users SET fraud_status = $1, updated_at = NOW() WHERE id = $2`,
		raw, userID)
	return err
}

func scanUser(row rowScanner) (*user.Entity, error) {
	out := &user.Entity{}
	var (
		tokensRaw []byte
		fraudRaw  []byte
	)
	err := row.Scan(
		&out.ID, &out.Name, &out.Email, &out.PasswordHash, &out.Role,
		&out.IDNumber, &out.Mobile, &out.Address,
		&tokensRaw, &out.PlanID, &out.PlanPurchasedAt, &out.PlanExpiresAt, &fraudRaw,
		&out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(tokensRaw) > 0 {
		if err := json.Unmarshal(tokensRaw, &out.DeviceTokens); err != nil {
			return nil, err
		}
	}
	if len(fraudRaw) > 0 {
		out.Fraud = &user.FraudStatus{}
		if err := json.Unmarshal(fraudRaw, out.Fraud); err != nil {
			return nil, err
		}
	}
	return out, nil
}
