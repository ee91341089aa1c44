// internal/repository/postgres/plan_repo.go
package postgres

import (
	"context"
	"fmt"

	"mattepass-service/internal/domain/plan"
	xerrors "mattepass-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PlanRepository struct {
	db *pgxpool.Pool
}

func NewPlanRepository(db *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{db: db}
}

const planColumns = `id, name, description, price, item_a_quantity, item_b_quantity, created_at, updated_at`

func scanPlan(row pgx.Row) (*plan.Plan, error) {
	var p plan.Plan
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ItemAQuantity, &p.ItemBQuantity, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a plan
func (r *PlanRepository) Create(ctx context.Context, p *plan.Plan) error {
	query := `
		INSERT INTO plans (name, description, price, item_a_quantity, item_b_quantity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query, p.Name, p.Description, p.Price, p.ItemAQuantity, p.ItemBQuantity).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

// FindByID retrieves a plan by ID
func (r *PlanRepository) FindByID(ctx context.Context, id int64) (*plan.Plan, error) {
	p, err := scanPlan(r.db.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "failed to find plan")
	}
	return p, nil
}

// FindByIDWithTx retrieves a plan by ID inside a transaction
func (r *PlanRepository) FindByIDWithTx(ctx context.Context, tx pgx.Tx, id int64) (*plan.Plan, error) {
	p, err := scanPlan(tx.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "failed to find plan")
	}
	return p, nil
}

// List retrieves every plan ordered by price
func (r *PlanRepository) List(ctx context.Context) ([]plan.Plan, error) {
	rows, err := r.db.Query(ctx, `SELECT `+planColumns+` FROM plans ORDER BY price, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	plans := []plan.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, *p)
	}
	return plans, rows.Err()
}

// Update overwrites the mutable columns of a plan
func (r *PlanRepository) Update(ctx context.Context, p *plan.Plan) error {
	query := `
		UPDATE plans
		SET name = $1, description = $2, price = $3, item_a_quantity = $4, item_b_quantity = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query, p.Name, p.Description, p.Price, p.ItemAQuantity, p.ItemBQuantity, p.ID).Scan(&p.UpdatedAt)
	if err != nil {
		return notFoundOr(err, "failed to update plan")
	}
	return nil
}

// Delete removes a plan
func (r *PlanRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// CountSubscriptions counts subscriptions referencing a plan, optionally only active ones
func (r *PlanRepository) CountSubscriptions(ctx context.Context, planID int64, activeOnly bool) (int64, error) {
	query := `SELECT COUNT(*) FROM subscriptions WHERE plan_id = $1`
	if activeOnly {
		query += ` AND status = 'active'`
	}

	var count int64
	if err := r.db.QueryRow(ctx, query, planID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count plan subscriptions: %w", err)
	}
	return count, nil
}
