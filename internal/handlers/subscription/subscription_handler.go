// internal/handlers/subscription/subscription_handler.go
package subscription

import (
	"context"
	"net/http"

	"mattepass-service/internal/domain/subscription"
	"mattepass-service/internal/middleware"
	"mattepass-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SubscriptionService interface {
	Subscribe(ctx context.Context, userID int64, req *subscription.SubscribeRequest) (*subscription.SubscribeResult, error)
	Cancel(ctx context.Context, userID int64) error
	SetAutoRenew(ctx context.Context, userID int64, autoRenew bool) error
	GetActive(ctx context.Context, userID int64) (*subscription.ActiveSubscriptionView, error)
	PaymentHistory(ctx context.Context, userID int64) ([]subscription.PaymentHistoryEntry, error)
}

type SubscriptionHandler struct {
	service SubscriptionService
	logger  *zap.Logger
}

func NewSubscriptionHandler(service SubscriptionService, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: service,
		logger:  logger,
	}
}

// Subscribe starts a subscription with a simulated payment
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	var req subscription.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.service.Subscribe(c.Request.Context(), userID, &req)
	if err != nil {
		h.logger.Warn("subscribe failed",
			zap.Int64("user_id", userID),
			zap.Int64("plan_id", req.PlanID),
			zap.Error(err),
		)
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "subscription created", result)
}

// GetActive returns the caller's active subscription
func (h *SubscriptionHandler) GetActive(c *gin.Context) {
	view, err := h.service.GetActive(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "subscription retrieved", view)
}

// Cancel ends the caller's active subscription
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), middleware.MustGetUserID(c)); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "subscription cancelled", nil)
}

// SetAutoRenew toggles renewal on the caller's active subscription
func (h *SubscriptionHandler) SetAutoRenew(c *gin.Context) {
	var req subscription.AutoRenewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	if err := h.service.SetAutoRenew(c.Request.Context(), middleware.MustGetUserID(c), *req.AutoRenew); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "auto renew updated", gin.H{"auto_renew": *req.AutoRenew})
}

// Payments lists the caller's payment history
func (h *SubscriptionHandler) Payments(c *gin.Context) {
	history, err := h.service.PaymentHistory(c.Request.Context(), middleware.MustGetUserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "payment history retrieved", history)
}
