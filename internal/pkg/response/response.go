// internal/pkg/response/response.go
package response

import (
	"net/http"

	xerrors "mattepass-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Response defines the standard API response format.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends a standardized error response.
func Error(c *gin.Context, code int, message string, err error, data ...interface{}) {
	// CRITICAL: Abort FIRST before writing response
	c.Abort()

	response := Response{
		Success: false,
		Message: message,
	}

	if err != nil {
		response.Error = err.Error()
	}

	if len(data) > 0 {
		response.Data = data[0]
	}

	c.JSON(code, response)
}

// ValidationError sends a 400 Bad Request response for invalid input.
func ValidationError(c *gin.Context, message string, err error) {
	Error(c, http.StatusBadRequest, message, err)
}

// FromError maps a service error to its HTTP status and writes the envelope.
// Typed domain errors travel in data so clients can render the detail.
func FromError(c *gin.Context, err error) {
	var exhausted *xerrors.QuotaExhaustedError
	if xerrors.As(err, &exhausted) {
		Error(c, http.StatusBadRequest, "daily quota exhausted", xerrors.ErrQuotaExhausted, exhausted)
		return
	}

	var insufficient *xerrors.InsufficientBalanceError
	if xerrors.As(err, &insufficient) {
		Error(c, http.StatusBadRequest, "insufficient balance", xerrors.ErrInsufficientBalance, insufficient)
		return
	}

	status, message := StatusFor(err)
	if status == http.StatusInternalServerError {
		Error(c, status, message, xerrors.ErrInternal)
		return
	}
	Error(c, status, message, err)
}

// StatusFor returns the HTTP status and message for a domain error.
func StatusFor(err error) (int, string) {
	switch {
	case xerrors.Is(err, xerrors.ErrInvalidInput), xerrors.Is(err, xerrors.ErrBadRequest):
		return http.StatusBadRequest, "invalid request"
	case xerrors.Is(err, xerrors.ErrNoActiveSubscription):
		return http.StatusBadRequest, "no active subscription"
	case xerrors.Is(err, xerrors.ErrQuotaExhausted):
		return http.StatusBadRequest, "daily quota exhausted"
	case xerrors.Is(err, xerrors.ErrInsufficientBalance):
		return http.StatusBadRequest, "insufficient balance"
	case xerrors.Is(err, xerrors.ErrCodeExpired):
		return http.StatusBadRequest, "code expired"
	case xerrors.Is(err, xerrors.ErrInvalidCode):
		return http.StatusNotFound, "invalid code"
	case xerrors.Is(err, xerrors.ErrNotFound):
		return http.StatusNotFound, "resource not found"
	case xerrors.Is(err, xerrors.ErrActiveSubscriptionExists):
		return http.StatusConflict, "active subscription exists"
	case xerrors.Is(err, xerrors.ErrPlanInUse):
		return http.StatusConflict, "plan in use"
	case xerrors.Is(err, xerrors.ErrDuplicateEntry), xerrors.Is(err, xerrors.ErrConflict):
		return http.StatusConflict, "resource already exists"
	case xerrors.Is(err, xerrors.ErrUnauthorized), xerrors.Is(err, xerrors.ErrSessionExpired):
		return http.StatusUnauthorized, "unauthorized"
	case xerrors.Is(err, xerrors.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case xerrors.Is(err, xerrors.ErrRateLimited):
		return http.StatusTooManyRequests, "too many requests"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
