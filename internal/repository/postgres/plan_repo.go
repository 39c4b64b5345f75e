package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codecraftwt/loan-backend-sub000/internal/domain/plan"
)

const planColumns = `id, name, description, duration_months, monthly_price, features, active, created_at, updated_at`

type PlanRepository struct {
	pool *pgxpool.Pool
}

func NewPlanRepository(pool *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{pool: pool}
}

func (r *PlanRepository) Create(ctx context.Context, in plan.CreateInput) (*plan.Entity, error) {
	features, err := json.Marshal(in.Features)
	if err != nil {
		return nil, err
	}
	q := `
INSERT INTO plans (name, description, duration_months, monthly_price, features)
VALUES ($1,$2,$3,$4,$5)
RETURNING ` + planColumns
	return scanPlan(r.pool.QueryRow(ctx, q,
		in.Name, in.Description, in.DurationMonths, in.MonthlyPrice, features))
}

func (r *PlanRepository) GetByID(ctx context.Context, id string) (*plan.Entity, error) {
	q := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`
	return scanPlan(r.pool.QueryRow(ctx, q, id))
}

func (r *PlanRepository) Update(ctx context.Context, e *plan.Entity) error {
	features, err := json.Marshal(e.Features)
	if err != nil {
		return err
	}
	q := `
UPDATE plans SET
  name = $1, description = $2, duration_months = $3, monthly_price = $4,
  features = $5, active = $6, updated_at = NOW()
WHERE id = $7`
	_, err = r.pool.Exec(ctx, q,
		e.Name, e.Description, e.DurationMonths, e.MonthlyPrice, features, e.Active, e.ID)
	return err
}

// Delete deactivates rather than removes; users may still reference the row.
func (r *PlanRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE plans SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *PlanRepository) List(ctx context.Context, activeOnly bool) ([]plan.Entity, error) {
	q := `SELECT ` + planColumns + ` FROM plans`
	if activeOnly {
		q += ` WHERE active`
	}
	q += ` ORDER BY monthly_price, duration_months`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]plan.Entity, 0)
	for rows.Next() {
		item, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

func (r *PlanRepository) ExistsDuplicate(ctx context.Context, name string, monthlyPrice int64, features plan.Features, excludeID string) (bool, error) {
	raw, err := json.Marshal(features)
	if err != nil {
		return false, err
	}
	q := `
SELECT EXISTS (
  SELECT 1 FROM plans
  WHERE name = $1 AND monthly_price = $2 AND features = $3::jsonb
    AND ($4 = '' OR id <> $4::uuid)
)`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, name, monthlyPrice, raw, excludeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func scanPlan(row rowScanner) (*plan.Entity, error) {
	out := &plan.Entity{}
	var featuresRaw []byte
	err := row.Scan(
		&out.ID, &out.Name, &out.Description, &out.DurationMonths, &out.MonthlyPrice,
		&featuresRaw, &out.Active, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(featuresRaw) > 0 {
		if err := json.Unmarshal(featuresRaw, &out.Features); err != nil {
			return nil, err
		}
	}
	return out, nil
}
