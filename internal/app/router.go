// internal/app/router.go
package app

import (
	"net/http"

	"mattepass-service/internal/authorization"
	adminHandler "mattepass-service/internal/handlers/admin"
	authHandler "mattepass-service/internal/handlers/auth"
	codeHandler "mattepass-service/internal/handlers/code"
	planHandler "mattepass-service/internal/handlers/plan"
	subscriptionHandler "mattepass-service/internal/handlers/subscription"
	vendorHandler "mattepass-service/internal/handlers/vendor"
	"mattepass-service/internal/metrics"
	"mattepass-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	AuthHandler         *authHandler.AuthHandler
	PlanHandler         *planHandler.PlanHandler
	SubscriptionHandler *subscriptionHandler.SubscriptionHandler
	CodeHandler         *codeHandler.CodeHandler
	VendorHandler       *vendorHandler.VendorHandler
	AdminHandler        *adminHandler.AdminHandler
	AuthMiddleware      *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, metricsPath string, h *Handlers) {
	metrics.MustRegister()
	r.GET(metricsPath, gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	m := h.AuthMiddleware

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ==================== Auth ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/register", h.AuthHandler.Register)
		authPublic.POST("/login", h.AuthHandler.Login)
	}

	authProtected := api.Group("/auth")
	authProtected.Use(m.Auth())
	{
		authProtected.POST("/logout", h.AuthHandler.Logout)
		authProtected.GET("/me", h.AuthHandler.Me)
	}

	// ==================== Plans ====================
	plans := api.Group("/plans")
	{
		plans.GET("", h.PlanHandler.List)
		plans.GET("/:id", h.PlanHandler.Get)
	}

	// ==================== Subscriptions ====================
	subscriptions := api.Group("/subscriptions", m.Require(authorization.ObjectSubscription, authorization.ActionSubscriptionManage)...)
	{
		subscriptions.POST("", h.SubscriptionHandler.Subscribe)
		subscriptions.GET("", h.SubscriptionHandler.GetActive)
		subscriptions.POST("/cancel", h.SubscriptionHandler.Cancel)
		subscriptions.PUT("/auto-renew", h.SubscriptionHandler.SetAutoRenew)
		subscriptions.GET("/payments", h.SubscriptionHandler.Payments)
	}

	// ==================== Codes ====================
	codes := api.Group("/codes", m.Auth())
	{
		codes.GET("/today", m.RequireAction(authorization.ObjectCode, authorization.ActionCodeIssue), h.CodeHandler.Today)
		codes.POST("/redeem", m.RequireAction(authorization.ObjectCode, authorization.ActionCodeRedeem), h.CodeHandler.Redeem)
		codes.GET("/redemptions", m.RequireAction(authorization.ObjectRedemption, authorization.ActionRedemptionList), h.CodeHandler.Redemptions)
	}

	// ==================== Vendor ====================
	vendor := api.Group("/vendor", m.Auth())
	{
		vendor.GET("/dashboard", m.RequireAction(authorization.ObjectDashboard, authorization.ActionDashboardView), h.VendorHandler.Dashboard)
		vendor.GET("/reports", m.RequireAction(authorization.ObjectReport, authorization.ActionReportViewOwn), h.VendorHandler.Report)
	}

	// ==================== Admin ====================
	admin := api.Group("/admin")
	admin.POST("/bootstrap", h.AdminHandler.Bootstrap)

	adminPlans := admin.Group("/plans", m.Require(authorization.ObjectPlan, authorization.ActionPlanManage)...)
	{
		adminPlans.POST("", h.PlanHandler.Create)
		adminPlans.PUT("/:id", h.PlanHandler.Update)
		adminPlans.DELETE("/:id", h.PlanHandler.Delete)
	}

	adminVendors := admin.Group("/vendors", m.Require(authorization.ObjectVendor, authorization.ActionVendorManage)...)
	{
		adminVendors.POST("", h.AdminHandler.CreateVendor)
		adminVendors.GET("", h.AdminHandler.ListVendors)
	}

	admin.POST("/users/:id/promote", append(m.Require(authorization.ObjectUser, authorization.ActionUserPromote), h.AdminHandler.PromoteUser)...)
	admin.GET("/reports", append(m.Require(authorization.ObjectReport, authorization.ActionReportViewAll), h.AdminHandler.Reports)...)
}
