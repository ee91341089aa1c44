// internal/domain/plan/dto.go
package plan

import "github.com/shopspring/decimal"

type CreatePlanRequest struct {
	Name          string          `json:"name" binding:"required,max=100"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price" binding:"required"`
	ItemAQuantity int             `json:"item_a_quantity" binding:"min=0"`
	ItemBQuantity int             `json:"item_b_quantity" binding:"min=0"`
}

// UpdatePlanRequest carries optional fields; nil means unchanged.
type UpdatePlanRequest struct {
	Name          *string          `json:"name" binding:"omitempty,max=100"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	ItemAQuantity *int             `json:"item_a_quantity" binding:"omitempty,min=0"`
	ItemBQuantity *int             `json:"item_b_quantity" binding:"omitempty,min=0"`
}

// ChangesAllowance reports whether the update touches price or daily allowances.
func (r *UpdatePlanRequest) ChangesAllowance(p *Plan) bool {
	if r.Price != nil && !r.Price.Equal(p.Price) {
		return true
	}
	if r.ItemAQuantity != nil && *r.ItemAQuantity != p.ItemAQuantity {
		return true
	}
	return r.ItemBQuantity != nil && *r.ItemBQuantity != p.ItemBQuantity
}

// Apply copies the set fields onto p.
func (r *UpdatePlanRequest) Apply(p *Plan) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.ItemAQuantity != nil {
		p.ItemAQuantity = *r.ItemAQuantity
	}
	if r.ItemBQuantity != nil {
		p.ItemBQuantity = *r.ItemBQuantity
	}
}
