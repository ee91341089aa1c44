// internal/domain/subscription/dto.go
package subscription

import (
	"time"

	"github.com/shopspring/decimal"
)

type SubscribeRequest struct {
	PlanID        int64         `json:"plan_id" binding:"required"`
	PaymentMethod PaymentMethod `json:"payment_method" binding:"required,oneof=card pix"`
}

type SubscribeResult struct {
	Subscription *Subscription `json:"subscription"`
	Payment      *Payment      `json:"payment"`
}

type AutoRenewRequest struct {
	AutoRenew *bool `json:"auto_renew" binding:"required"`
}

// ActiveSubscriptionView is the active subscription joined with its plan.
type ActiveSubscriptionView struct {
	ID            int64              `json:"id"`
	PlanID        int64              `json:"plan_id"`
	PlanName      string             `json:"plan_name"`
	ItemAQuantity int                `json:"item_a_quantity"`
	ItemBQuantity int                `json:"item_b_quantity"`
	StartDate     time.Time          `json:"start_date"`
	EndDate       time.Time          `json:"end_date"`
	AutoRenew     bool               `json:"auto_renew"`
	Status        SubscriptionStatus `json:"status"`
}

// PaymentHistoryEntry is one row of a user's payment history.
type PaymentHistoryEntry struct {
	ID                 int64              `json:"id"`
	Amount             decimal.Decimal    `json:"amount"`
	PaymentMethod      PaymentMethod      `json:"payment_method"`
	Status             PaymentStatus      `json:"status"`
	TransactionID      string             `json:"transaction_id"`
	CreatedAt          time.Time          `json:"created_at"`
	PlanName           string             `json:"plan_name"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
}

// SweepResult summarises one lifecycle run.
type SweepResult struct {
	Renewed int `json:"renewed"`
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
}
