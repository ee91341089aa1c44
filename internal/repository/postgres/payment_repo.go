// internal/repository/postgres/payment_repo.go
package postgres

import (
	"context"
	"fmt"

	"mattepass-service/internal/domain/subscription"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// CreateWithTx records a payment within a transaction
func (r *PaymentRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, p *subscription.Payment) error {
	query := `
		INSERT INTO payments (user_id, subscription_id, amount, payment_method, status, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := tx.QueryRow(ctx, query, p.UserID, p.SubscriptionID, p.Amount, p.PaymentMethod, p.Status, p.TransactionID).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// LatestMethodWithTx returns the method of the most recent payment for a subscription
func (r *PaymentRepository) LatestMethodWithTx(ctx context.Context, tx pgx.Tx, subscriptionID int64) (subscription.PaymentMethod, error) {
	query := `SELECT payment_method FROM payments WHERE subscription_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`

	var method subscription.PaymentMethod
	if err := tx.QueryRow(ctx, query, subscriptionID).Scan(&method); err != nil {
		return "", notFoundOr(err, "failed to find latest payment")
	}
	return method, nil
}

// ListHistoryByUser lists a user's payments newest first, joined with plan and subscription state
func (r *PaymentRepository) ListHistoryByUser(ctx context.Context, userID int64) ([]subscription.PaymentHistoryEntry, error) {
	query := `
		SELECT p.id, p.amount, p.payment_method, p.status, p.transaction_id, p.created_at,
		       pl.name, s.status
		FROM payments p
		JOIN subscriptions s ON s.id = p.subscription_id
		JOIN plans pl ON pl.id = s.plan_id
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC, p.id DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	history := []subscription.PaymentHistoryEntry{}
	for rows.Next() {
		var e subscription.PaymentHistoryEntry
		if err := rows.Scan(&e.ID, &e.Amount, &e.PaymentMethod, &e.Status, &e.TransactionID, &e.CreatedAt,
			&e.PlanName, &e.SubscriptionStatus); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		history = append(history, e)
	}
	return history, rows.Err()
}
