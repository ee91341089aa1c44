// internal/domain/dailycode/entity.go
package dailycode

import (
	"time"

	"mattepass-service/internal/domain/redemption"
)

// DailyCode is the single redemption token a user holds for one UTC calendar day.
type DailyCode struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	Token      string    `json:"code" db:"token"`
	ValidDay   time.Time `json:"valid_day" db:"valid_day"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	ValidUntil time.Time `json:"valid_until" db:"valid_until"`
}

// ExpiredAt reports whether the code can no longer be redeemed at now.
func (c *DailyCode) ExpiredAt(now time.Time) bool {
	return now.After(c.ValidUntil)
}

// CodeResult is what a client receives when asking for today's code.
type CodeResult struct {
	Code       string             `json:"code"`
	ValidUntil time.Time          `json:"valid_until"`
	ItemA      redemption.Balance `json:"item_a"`
	ItemB      redemption.Balance `json:"item_b"`
	Created    bool               `json:"-"`
	QRImage    string             `json:"qr_image,omitempty"`
}
