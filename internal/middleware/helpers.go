// internal/middleware/helpers.go
package middleware

import (
	"mattepass-service/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// MustGetUserID gets the user ID from context or panics
func MustGetUserID(c *gin.Context) int64 {
	userID, exists := GetUserID(c)
	if !exists {
		panic("user_id not found in context")
	}
	return userID
}

// MustGetClaims gets the token claims from context or panics
func MustGetClaims(c *gin.Context) *jwt.Claims {
	claims, exists := GetClaims(c)
	if !exists {
		panic("claims not found in context")
	}
	return claims
}

// GetUsername gets the username from context
func GetUsername(c *gin.Context) string {
	return c.GetString(ctxUsername)
}
