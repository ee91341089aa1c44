// internal/repository/postgres/subscription_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"mattepass-service/internal/domain/subscription"
	xerrors "mattepass-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `id, user_id, plan_id, status, start_date, end_date, auto_renew, created_at, updated_at`

func scanSubscription(row pgx.Row) (*subscription.Subscription, error) {
	var s subscription.Subscription
	err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.Status, &s.StartDate, &s.EndDate, &s.AutoRenew, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateWithTx creates a subscription within a transaction
func (r *SubscriptionRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, sub *subscription.Subscription) error {
	query := `
		INSERT INTO subscriptions (user_id, plan_id, status, start_date, end_date, auto_renew)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(ctx, query, sub.UserID, sub.PlanID, sub.Status, sub.StartDate, sub.EndDate, sub.AutoRenew).
		Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	if isUniqueViolation(err) {
		return xerrors.ErrActiveSubscriptionExists
	}
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// FindActiveByUserWithTx retrieves the active subscription for a user inside a transaction
func (r *SubscriptionRepository) FindActiveByUserWithTx(ctx context.Context, tx pgx.Tx, userID int64) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 AND status = 'active' LIMIT 1`

	sub, err := scanSubscription(tx.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, notFoundOr(err, "failed to find active subscription")
	}
	return sub, nil
}

// FindActiveByUser retrieves the active subscription for a user
func (r *SubscriptionRepository) FindActiveByUser(ctx context.Context, userID int64) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 AND status = 'active' LIMIT 1`

	sub, err := scanSubscription(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, notFoundOr(err, "failed to find active subscription")
	}
	return sub, nil
}

// FindByIDForUpdate retrieves a subscription and row-locks it for the rest of the transaction
func (r *SubscriptionRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1 FOR UPDATE`

	sub, err := scanSubscription(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "failed to find subscription")
	}
	return sub, nil
}

// UpdateStatusWithTx sets status and auto_renew within a transaction
func (r *SubscriptionRepository) UpdateStatusWithTx(ctx context.Context, tx pgx.Tx, id int64, status subscription.SubscriptionStatus, autoRenew bool) error {
	query := `UPDATE subscriptions SET status = $1, auto_renew = $2, updated_at = NOW() WHERE id = $3`

	result, err := tx.Exec(ctx, query, status, autoRenew, id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// UpdateAutoRenewWithTx toggles auto_renew within a transaction
func (r *SubscriptionRepository) UpdateAutoRenewWithTx(ctx context.Context, tx pgx.Tx, id int64, autoRenew bool) error {
	result, err := tx.Exec(ctx, `UPDATE subscriptions SET auto_renew = $1, updated_at = NOW() WHERE id = $2`, autoRenew, id)
	if err != nil {
		return fmt.Errorf("failed to update auto renew: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// ExtendWithTx moves end_date forward for a renewal
func (r *SubscriptionRepository) ExtendWithTx(ctx context.Context, tx pgx.Tx, id int64, endDate time.Time) error {
	result, err := tx.Exec(ctx, `UPDATE subscriptions SET end_date = $1, updated_at = NOW() WHERE id = $2`, endDate, id)
	if err != nil {
		return fmt.Errorf("failed to extend subscription: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// ListDue lists active subscriptions whose term ended at or before now
func (r *SubscriptionRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]subscription.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE status = 'active' AND end_date <= $1
		ORDER BY end_date
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []subscription.Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// FindActiveViewByUser returns the active subscription joined with its plan
func (r *SubscriptionRepository) FindActiveViewByUser(ctx context.Context, userID int64) (*subscription.ActiveSubscriptionView, error) {
	query := `
		SELECT s.id, s.plan_id, p.name, p.item_a_quantity, p.item_b_quantity,
		       s.start_date, s.end_date, s.auto_renew, s.status
		FROM subscriptions s
		JOIN plans p ON p.id = s.plan_id
		WHERE s.user_id = $1 AND s.status = 'active'
		LIMIT 1
	`

	var v subscription.ActiveSubscriptionView
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&v.ID, &v.PlanID, &v.PlanName, &v.ItemAQuantity, &v.ItemBQuantity,
		&v.StartDate, &v.EndDate, &v.AutoRenew, &v.Status,
	)
	if err != nil {
		return nil, notFoundOr(err, "failed to find active subscription")
	}
	return &v, nil
}
