// internal/handlers/code/code_handler.go
package code

import (
	"context"
	"net/http"
	"time"

	"mattepass-service/internal/domain/dailycode"
	"mattepass-service/internal/domain/redemption"
	"mattepass-service/internal/middleware"
	"mattepass-service/internal/pkg/clock"
	"mattepass-service/internal/pkg/qrimage"
	"mattepass-service/internal/pkg/response"
	"mattepass-service/internal/service/quota"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Issuer interface {
	IssueOrGet(ctx context.Context, userID int64, now time.Time) (*dailycode.CodeResult, error)
}

type Redeemer interface {
	Redeem(ctx context.Context, cmd quota.RedeemCommand) (*redemption.Result, error)
}

type RedemptionLister interface {
	DailyRedemptions(ctx context.Context, vendorID int64, dateStr string) (*redemption.DailyRedemptions, error)
}

type CodeHandler struct {
	issuer   Issuer
	redeemer Redeemer
	lister   RedemptionLister
	clock    clock.Clock
	logger   *zap.Logger
}

func NewCodeHandler(issuer Issuer, redeemer Redeemer, lister RedemptionLister, clk clock.Clock, logger *zap.Logger) *CodeHandler {
	return &CodeHandler{
		issuer:   issuer,
		redeemer: redeemer,
		lister:   lister,
		clock:    clk,
		logger:   logger,
	}
}

// Today returns the caller's code for the current day, creating it on first request
func (h *CodeHandler) Today(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	result, err := h.issuer.IssueOrGet(c.Request.Context(), userID, h.clock.Now())
	if err != nil {
		response.FromError(c, err)
		return
	}

	qr, err := qrimage.DataURI(result.Code)
	if err != nil {
		h.logger.Warn("failed to render qr image", zap.Int64("user_id", userID), zap.Error(err))
	} else {
		result.QRImage = qr
	}

	if result.Created {
		response.Success(c, http.StatusCreated, "daily code created", result)
		return
	}
	response.Success(c, http.StatusOK, "daily code retrieved", result)
}

// Redeem records a vendor hand-out against a daily code
func (h *CodeHandler) Redeem(c *gin.Context) {
	vendorID := middleware.MustGetUserID(c)

	var req redemption.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.redeemer.Redeem(c.Request.Context(), quota.RedeemCommand{
		Token:    req.Code,
		ItemA:    *req.ItemAQuantity,
		ItemB:    *req.ItemBQuantity,
		VendorID: vendorID,
		Now:      h.clock.Now(),
	})
	if err != nil {
		h.logger.Info("redemption rejected",
			zap.Int64("vendor_id", vendorID),
			zap.Error(err),
		)
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "redemption recorded", result)
}

// Redemptions lists the calling vendor's redemptions for one day (?date=YYYY-MM-DD, default today)
func (h *CodeHandler) Redemptions(c *gin.Context) {
	vendorID := middleware.MustGetUserID(c)

	result, err := h.lister.DailyRedemptions(c.Request.Context(), vendorID, c.Query("date"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "redemptions retrieved", result)
}
