// internal/repository/postgres/redemption_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"mattepass-service/internal/domain/redemption"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RedemptionRepository only inserts and reads. Redemptions are never updated or deleted.
type RedemptionRepository struct {
	db *pgxpool.Pool
}

func NewRedemptionRepository(db *pgxpool.Pool) *RedemptionRepository {
	return &RedemptionRepository{db: db}
}

// CreateWithTx appends a redemption within a transaction
func (r *RedemptionRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, red *redemption.Redemption) error {
	query := `
		INSERT INTO redemptions (daily_code_id, vendor_id, item_a_quantity, item_b_quantity, redeemed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := tx.QueryRow(ctx, query, red.DailyCodeID, red.VendorID, red.ItemAQuantity, red.ItemBQuantity, red.RedeemedAt).
		Scan(&red.ID)
	if err != nil {
		return fmt.Errorf("failed to create redemption: %w", err)
	}
	return nil
}

const sumByCodeQuery = `
	SELECT COALESCE(SUM(item_a_quantity), 0), COALESCE(SUM(item_b_quantity), 0)
	FROM redemptions
	WHERE daily_code_id = $1
`

// SumByCodeWithTx totals the history of a daily code inside a transaction
func (r *RedemptionRepository) SumByCodeWithTx(ctx context.Context, tx pgx.Tx, codeID int64) (redemption.Tally, error) {
	var t redemption.Tally
	if err := tx.QueryRow(ctx, sumByCodeQuery, codeID).Scan(&t.ItemA, &t.ItemB); err != nil {
		return t, fmt.Errorf("failed to sum redemptions: %w", err)
	}
	return t, nil
}

// SumByCode totals the history of a daily code
func (r *RedemptionRepository) SumByCode(ctx context.Context, codeID int64) (redemption.Tally, error) {
	var t redemption.Tally
	if err := r.db.QueryRow(ctx, sumByCodeQuery, codeID).Scan(&t.ItemA, &t.ItemB); err != nil {
		return t, fmt.Errorf("failed to sum redemptions: %w", err)
	}
	return t, nil
}

// ListByVendorBetween lists a vendor's redemptions in [from, to). A nil vendorID lists every vendor.
func (r *RedemptionRepository) ListByVendorBetween(ctx context.Context, vendorID *int64, from, to time.Time) ([]redemption.Redemption, error) {
	query := `
		SELECT id, daily_code_id, vendor_id, item_a_quantity, item_b_quantity, redeemed_at
		FROM redemptions
		WHERE redeemed_at >= $1 AND redeemed_at < $2
		  AND ($3::BIGINT IS NULL OR vendor_id = $3)
		ORDER BY redeemed_at
	`

	rows, err := r.db.Query(ctx, query, from, to, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list redemptions: %w", err)
	}
	defer rows.Close()

	records := []redemption.Redemption{}
	for rows.Next() {
		var red redemption.Redemption
		if err := rows.Scan(&red.ID, &red.DailyCodeID, &red.VendorID, &red.ItemAQuantity, &red.ItemBQuantity, &red.RedeemedAt); err != nil {
			return nil, fmt.Errorf("failed to scan redemption: %w", err)
		}
		records = append(records, red)
	}
	return records, rows.Err()
}

// ListDetailedByVendorBetween lists a vendor's redemptions in [from, to) with the client's username, newest first
func (r *RedemptionRepository) ListDetailedByVendorBetween(ctx context.Context, vendorID int64, from, to time.Time) ([]redemption.VendorRedemption, error) {
	query := `
		SELECT r.id, u.username, r.item_a_quantity, r.item_b_quantity, r.redeemed_at
		FROM redemptions r
		JOIN daily_codes dc ON dc.id = r.daily_code_id
		JOIN users u ON u.id = dc.user_id
		WHERE r.vendor_id = $1 AND r.redeemed_at >= $2 AND r.redeemed_at < $3
		ORDER BY r.redeemed_at DESC
	`

	rows, err := r.db.Query(ctx, query, vendorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list redemptions: %w", err)
	}
	defer rows.Close()

	list := []redemption.VendorRedemption{}
	for rows.Next() {
		var v redemption.VendorRedemption
		if err := rows.Scan(&v.ID, &v.Username, &v.ItemAQuantity, &v.ItemBQuantity, &v.RedeemedAt); err != nil {
			return nil, fmt.Errorf("failed to scan redemption: %w", err)
		}
		list = append(list, v)
	}
	return list, rows.Err()
}
