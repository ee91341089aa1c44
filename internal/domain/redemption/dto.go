// internal/domain/redemption/dto.go
package redemption

import "time"

type RedeemRequest struct {
	Code          string `json:"code" binding:"required"`
	ItemAQuantity *int   `json:"item_a_quantity" binding:"required,min=0"`
	ItemBQuantity *int   `json:"item_b_quantity" binding:"required,min=0"`
}

// Result is returned after a successful redemption.
type Result struct {
	Redemption *Redemption `json:"redemption"`
	UserID     int64       `json:"user_id"`
	Username   string      `json:"user"`
	PlanName   string      `json:"plan_name"`
	ItemA      Balance     `json:"item_a"`
	ItemB      Balance     `json:"item_b"`
}

// VendorRedemption is a redemption row as listed to the vendor who performed it.
type VendorRedemption struct {
	ID            int64     `json:"id"`
	Username      string    `json:"user"`
	ItemAQuantity int       `json:"item_a_quantity"`
	ItemBQuantity int       `json:"item_b_quantity"`
	RedeemedAt    time.Time `json:"redeemed_at"`
}

type DailyRedemptions struct {
	Date             string             `json:"date"`
	TotalRedemptions int                `json:"total_redemptions"`
	TotalItemA       int                `json:"total_item_a"`
	TotalItemB       int                `json:"total_item_b"`
	Redemptions      []VendorRedemption `json:"redemptions"`
}
