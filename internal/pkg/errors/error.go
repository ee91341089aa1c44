// internal/pkg/errors/error.go
package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflict: resource already exists")
	ErrInternal       = errors.New("internal server error")
	ErrRateLimited    = errors.New("too many requests")
	ErrSessionExpired = errors.New("session expired or invalid")
	ErrBadRequest     = errors.New("bad request")
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// Quota and redemption errors
var (
	ErrNoActiveSubscription     = errors.New("no active subscription")
	ErrQuotaExhausted           = errors.New("daily quota exhausted")
	ErrInvalidCode              = errors.New("invalid code")
	ErrCodeExpired              = errors.New("code expired")
	ErrInsufficientBalance      = errors.New("insufficient balance")
	ErrDuplicateCodeRace        = errors.New("daily code created concurrently")
	ErrActiveSubscriptionExists = errors.New("user already has an active subscription")
	ErrPlanInUse                = errors.New("plan is referenced by subscriptions")
)

// QuotaExhaustedError is returned when both items of today's code are fully redeemed.
type QuotaExhaustedError struct {
	ItemARedeemed int `json:"item_a_redeemed"`
	ItemATotal    int `json:"item_a_total"`
	ItemBRedeemed int `json:"item_b_redeemed"`
	ItemBTotal    int `json:"item_b_total"`
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("%s: item_a %d/%d, item_b %d/%d",
		ErrQuotaExhausted, e.ItemARedeemed, e.ItemATotal, e.ItemBRedeemed, e.ItemBTotal)
}

func (e *QuotaExhaustedError) Unwrap() error { return ErrQuotaExhausted }

// InsufficientBalanceError names the item whose balance cannot cover the request.
type InsufficientBalanceError struct {
	Item      string `json:"item"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("%s: %s available %d, requested %d", ErrInsufficientBalance, e.Item, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
