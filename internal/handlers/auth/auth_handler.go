// internal/handlers/auth/auth_handler.go
package auth

import (
	"context"
	"net/http"

	"mattepass-service/internal/domain/auth"
	"mattepass-service/internal/domain/subscription"
	"mattepass-service/internal/middleware"
	xerrors "mattepass-service/internal/pkg/errors"
	"mattepass-service/internal/pkg/jwt"
	"mattepass-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthService interface {
	Register(ctx context.Context, req *auth.RegisterRequest) (*auth.UserInfo, error)
	Login(ctx context.Context, req *auth.LoginRequest) (*auth.LoginResponse, error)
	Logout(ctx context.Context, claims *jwt.Claims) error
	GetProfile(ctx context.Context, userID int64) (*auth.UserInfo, error)
}

type SubscriptionReader interface {
	GetActive(ctx context.Context, userID int64) (*subscription.ActiveSubscriptionView, error)
}

type AuthHandler struct {
	authService         AuthService
	subscriptionService SubscriptionReader
	logger              *zap.Logger
}

func NewAuthHandler(authService AuthService, subscriptionService SubscriptionReader, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:         authService,
		subscriptionService: subscriptionService,
		logger:              logger,
	}
}

// Profile is the authenticated user with the active subscription, if any.
type Profile struct {
	User         *auth.UserInfo                       `json:"user"`
	Subscription *subscription.ActiveSubscriptionView `json:"subscription"`
}

// ========== Registration ==========

// Register handles client registration (public endpoint)
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("registration failed",
			zap.String("username", req.Username),
			zap.Error(err),
		)
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "registration successful", user)
}

// ========== Login ==========

// Login handles username/password login
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	// Set IP and User-Agent
	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	loginResp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("login failed",
			zap.String("username", req.Username),
			zap.String("ip", req.IPAddress),
			zap.Error(err),
		)
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "login successful", loginResp)
}

// ========== Logout ==========

// Logout handles user logout (requires auth)
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.MustGetClaims(c)

	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		h.logger.Error("logout failed",
			zap.Int64("user_id", claims.UserID),
			zap.Error(err),
		)
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "logout successful", nil)
}

// ========== Profile ==========

// Me returns the caller's profile and active subscription
func (h *AuthHandler) Me(c *gin.Context) {
	userID := middleware.MustGetUserID(c)
	ctx := c.Request.Context()

	user, err := h.authService.GetProfile(ctx, userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	profile := Profile{User: user}
	active, err := h.subscriptionService.GetActive(ctx, userID)
	switch {
	case err == nil:
		profile.Subscription = active
	case !xerrors.Is(err, xerrors.ErrNoActiveSubscription):
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "profile retrieved", profile)
}
