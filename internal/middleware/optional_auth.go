package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"trentora-system/internal/utils"
)

// OptionalAuth populates the auth context when a valid bearer token is
// present and treats everything else as an anonymous visitor. Public
// catalog routes use it so logged-in B2B users see their tier pricing
// while guests fall under the price-hiding rules.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.Next()
			return
		}

		claims, err := utils.ParseToken(parts[1])
		if err != nil {
			c.Next()
			return
		}

		c.Set(authUserKey, claims.UserId)
		c.Set(authEmailKey, claims.Email)
		c.Set(authRoleKey, claims.Role)

		c.Next()
	}
}
