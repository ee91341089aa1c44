// internal/domain/plan/entity.go
package plan

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan grants a daily allowance of item A and item B for a price.
type Plan struct {
	ID            int64           `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Description   string          `json:"description" db:"description"`
	Price         decimal.Decimal `json:"price" db:"price"`
	ItemAQuantity int             `json:"item_a_quantity" db:"item_a_quantity"`
	ItemBQuantity int             `json:"item_b_quantity" db:"item_b_quantity"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}
