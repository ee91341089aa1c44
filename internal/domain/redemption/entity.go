// internal/domain/redemption/entity.go
package redemption

import (
	"time"

	"mattepass-service/internal/domain/plan"
)

const (
	ItemA = "item_a"
	ItemB = "item_b"
)

// Redemption is an immutable record of quantities handed out by a vendor against a daily code.
type Redemption struct {
	ID            int64     `json:"id" db:"id"`
	DailyCodeID   int64     `json:"daily_code_id" db:"daily_code_id"`
	VendorID      int64     `json:"vendor_id" db:"vendor_id"`
	ItemAQuantity int       `json:"item_a_quantity" db:"item_a_quantity"`
	ItemBQuantity int       `json:"item_b_quantity" db:"item_b_quantity"`
	RedeemedAt    time.Time `json:"redeemed_at" db:"redeemed_at"`
}

// Tally is the summed history of a daily code.
type Tally struct {
	ItemA int `json:"item_a"`
	ItemB int `json:"item_b"`
}

// Sum folds a set of redemptions into a tally.
func Sum(records []Redemption) Tally {
	var t Tally
	for _, r := range records {
		t.ItemA += r.ItemAQuantity
		t.ItemB += r.ItemBQuantity
	}
	return t
}

// Remaining returns the plan allowance minus the tally for each item.
func (t Tally) Remaining(p *plan.Plan) (int, int) {
	return p.ItemAQuantity - t.ItemA, p.ItemBQuantity - t.ItemB
}

// Exhausted is true once every item has reached its allowance.
func (t Tally) Exhausted(p *plan.Plan) bool {
	return t.ItemA >= p.ItemAQuantity && t.ItemB >= p.ItemBQuantity
}

// Balances expands the tally into per-item balances against p.
func (t Tally) Balances(p *plan.Plan) (Balance, Balance) {
	return NewBalance(p.ItemAQuantity, t.ItemA), NewBalance(p.ItemBQuantity, t.ItemB)
}

// Balance is one item's allowance state on a daily code.
type Balance struct {
	Total     int `json:"total"`
	Redeemed  int `json:"redeemed"`
	Remaining int `json:"remaining"`
}

func NewBalance(total, redeemed int) Balance {
	remaining := total - redeemed
	if remaining < 0 {
		remaining = 0
	}
	return Balance{Total: total, Redeemed: redeemed, Remaining: remaining}
}
