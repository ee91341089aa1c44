// internal/middleware/auth_middleware.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"mattepass-service/internal/pkg/jwt"
	"mattepass-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID   = "user_id"
	ctxUsername = "username"
	ctxRole     = "role"
	ctxJTI      = "jti"
	ctxClaims   = "claims"
)

type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
}

// Authorizer answers whether a role may perform an action on an object.
type Authorizer interface {
	Can(role, object, action string) bool
}

type AuthMiddleware struct {
	authService TokenValidator
	policy      Authorizer
}

func NewAuthMiddleware(authService TokenValidator, policy Authorizer) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		policy:      policy,
	}
}

// Auth is the base authentication middleware that validates JWT tokens
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "missing authorization token", nil)
			return
		}

		claims, err := m.authService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid or expired token", err)
			return
		}

		// Set user context
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUsername, claims.Username)
		c.Set(ctxRole, claims.Role)
		c.Set(ctxJTI, claims.ID)
		c.Set(ctxClaims, claims)

		c.Next()
	}
}

// RequireAction consults the access policy for the caller's role
// MUST be used after Auth() middleware
func (m *AuthMiddleware) RequireAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		if role == "" {
			response.Error(c, http.StatusForbidden, "no role found - authentication required", nil)
			return
		}

		if !m.policy.Can(role, object, action) {
			err := errors.New("role is not allowed to perform this action")
			response.Error(c, http.StatusForbidden, "insufficient permissions", err, map[string]interface{}{
				"role":   role,
				"action": action,
			})
			return
		}

		c.Next()
	}
}

// Require returns middlewares for policy-guarded routes (Auth + RequireAction)
func (m *AuthMiddleware) Require(object, action string) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.Auth(),
		m.RequireAction(object, action),
	}
}

// extractToken extracts Bearer token from Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Fields(authHeader)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

// GetUserID returns the authenticated user ID from context
func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}

	id, ok := userID.(int64)
	return id, ok
}

// GetRole returns the authenticated role, or "" when unauthenticated
func GetRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}

// GetClaims returns the verified token claims from context
func GetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(ctxClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}
