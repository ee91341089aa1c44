// internal/domain/subscription/entity.go
package subscription

import (
	"time"

	"github.com/shopspring/decimal"
)

type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusExpired   SubscriptionStatus = "expired"
)

type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodPix  PaymentMethod = "pix"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCard || m == PaymentMethodPix
}

type PaymentStatus string

const PaymentStatusApproved PaymentStatus = "approved"

// Period is the length of one paid subscription term.
const Period = 30 * 24 * time.Hour

type Subscription struct {
	ID        int64              `json:"id" db:"id"`
	UserID    int64              `json:"user_id" db:"user_id"`
	PlanID    int64              `json:"plan_id" db:"plan_id"`
	Status    SubscriptionStatus `json:"status" db:"status"`
	StartDate time.Time          `json:"start_date" db:"start_date"`
	EndDate   time.Time          `json:"end_date" db:"end_date"`
	AutoRenew bool               `json:"auto_renew" db:"auto_renew"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" db:"updated_at"`
}

func (s *Subscription) IsActive() bool { return s.Status == StatusActive }

// Payment records a simulated, always-approved charge.
type Payment struct {
	ID             int64           `json:"id" db:"id"`
	UserID         int64           `json:"user_id" db:"user_id"`
	SubscriptionID int64           `json:"subscription_id" db:"subscription_id"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	PaymentMethod  PaymentMethod   `json:"payment_method" db:"payment_method"`
	Status         PaymentStatus   `json:"status" db:"status"`
	TransactionID  string          `json:"transaction_id" db:"transaction_id"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}
