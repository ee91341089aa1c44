// internal/handlers/admin/admin_handler.go
package admin

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"mattepass-service/internal/domain/auth"
	"mattepass-service/internal/domain/report"
	"mattepass-service/internal/middleware"
	xerrors "mattepass-service/internal/pkg/errors"
	"mattepass-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AccountService interface {
	RegisterVendor(ctx context.Context, req *auth.RegisterRequest) (*auth.UserInfo, error)
	ListVendors(ctx context.Context) ([]auth.UserInfo, error)
	PromoteToAdmin(ctx context.Context, userID, promotedBy int64) (*auth.UserInfo, error)
	CreateFirstAdmin(ctx context.Context, req *auth.RegisterRequest) (*auth.UserInfo, error)
}

type ReportService interface {
	Range(startStr, endStr string) (time.Time, time.Time, error)
	VendorReport(ctx context.Context, vendorID int64, start, end time.Time) (*report.VendorReport, error)
	AllVendorsReport(ctx context.Context, start, end time.Time) ([]report.VendorReport, error)
}

type AdminHandler struct {
	accounts AccountService
	reports  ReportService
	logger   *zap.Logger
}

func NewAdminHandler(accounts AccountService, reports ReportService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		accounts: accounts,
		reports:  reports,
		logger:   logger,
	}
}

// ========== Vendors ==========

func (h *AdminHandler) CreateVendor(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	vendor, err := h.accounts.RegisterVendor(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.logger.Info("vendor created by admin",
		zap.Int64("vendor_id", vendor.ID),
		zap.Int64("admin_id", middleware.MustGetUserID(c)),
	)
	response.Success(c, http.StatusCreated, "vendor created", vendor)
}

func (h *AdminHandler) ListVendors(c *gin.Context) {
	vendors, err := h.accounts.ListVendors(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "vendors retrieved", vendors)
}

// ========== Users ==========

func (h *AdminHandler) PromoteUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.FromError(c, fmt.Errorf("%w: id must be a positive integer", xerrors.ErrInvalidInput))
		return
	}

	user, err := h.accounts.PromoteToAdmin(c.Request.Context(), id, middleware.MustGetUserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "user promoted to admin", user)
}

// Bootstrap creates the first admin. It is public and refuses once any admin exists.
func (h *AdminHandler) Bootstrap(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	admin, err := h.accounts.CreateFirstAdmin(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, "admin created", admin)
}

// ========== Reports ==========

// Reports returns one vendor's report when vendor_id is given, otherwise every vendor's
func (h *AdminHandler) Reports(c *gin.Context) {
	var filters report.ReportFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid query", err)
		return
	}

	start, end, err := h.reports.Range(filters.StartDate, filters.EndDate)
	if err != nil {
		response.FromError(c, err)
		return
	}

	ctx := c.Request.Context()
	if filters.VendorID != nil {
		rep, err := h.reports.VendorReport(ctx, *filters.VendorID, start, end)
		if err != nil {
			response.FromError(c, err)
			return
		}
		response.Success(c, http.StatusOK, "report retrieved", rep)
		return
	}

	reps, err := h.reports.AllVendorsReport(ctx, start, end)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "reports retrieved", reps)
}
