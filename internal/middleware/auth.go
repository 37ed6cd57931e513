package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yilunzh/household-finance-sub002/internal/auth"
)

const (
	authMemberKey   = "auth_member_id"
	authUsernameKey = "auth_username"
	authRoleKey     = "auth_role"
)

// RequireAuth validates JWT token and sets member context
func RequireAuth(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Extract token from Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		// Check for Bearer token format
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format. Use: Bearer <token>"})
			c.Abort()
			return
		}

		tokenString := parts[1]

		// Validate token
		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			if err == auth.ErrExpiredToken {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token has expired"})
			} else {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			c.Abort()
			return
		}

		// A token for another household is answered with 404, not 403, so a
		// caller can never confirm a foreign household exists.
		household, exists := GetHousehold(c)
		if exists && household.ID != claims.HouseholdID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Household not found"})
			c.Abort()
			return
		}

		// Store member info in context
		c.Set(authMemberKey, claims.MemberID)
		c.Set(authUsernameKey, claims.Username)
		c.Set(authRoleKey, claims.Role)

		c.Next()
	}
}

// RequireOwner ensures the authenticated member is the household owner
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(authRoleKey)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		if role.(string) != "owner" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Owner access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetAuthMemberID retrieves the authenticated member ID from context
func GetAuthMemberID(c *gin.Context) (uuid.UUID, bool) {
	memberID, exists := c.Get(authMemberKey)
	if !exists {
		return uuid.Nil, false
	}
	return memberID.(uuid.UUID), true
}

// GetAuthUsername retrieves the authenticated username from context
func GetAuthUsername(c *gin.Context) (string, bool) {
	username, exists := c.Get(authUsernameKey)
	if !exists {
		return "", false
	}
	return username.(string), true
}

// GetAuthRole retrieves the authenticated member's role from context
func GetAuthRole(c *gin.Context) (string, bool) {
	role, exists := c.Get(authRoleKey)
	if !exists {
		return "", false
	}
	return role.(string), true
}
