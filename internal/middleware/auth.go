package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"trentora-system/internal/database/models"
	"trentora-system/internal/gate"
	"trentora-system/internal/utils"
)

const (
	authUserKey  = "auth_user_id"
	authEmailKey = "auth_email"
	authRoleKey  = "auth_role"
)

// RequireAuth validates the bearer token and then re-checks account
// status against the database. The re-check is deliberate on every
// request: suspension must bite no later than the next request, even
// for tokens issued before it.
func RequireAuth(resolver *gate.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse("Authorization header required"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse("Invalid authorization format. Use: Bearer <token>"))
			return
		}

		claims, err := utils.ParseToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse("Invalid or expired token"))
			return
		}

		denial, err := resolver.Check(c.Request.Context(), claims.UserId, claims.Role)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to verify account status"))
			return
		}
		if denial != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, utils.CodedErrorResponse(denial.Code, denial.Message))
			return
		}

		c.Set(authUserKey, claims.UserId)
		c.Set(authEmailKey, claims.Email)
		c.Set(authRoleKey, claims.Role)

		c.Next()
	}
}

// RequireRole restricts a route group to one of the given roles.
// Failures report a generic message, never the required role.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := GetAuthRole(c)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse("Authentication required"))
			return
		}
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, utils.ErrorResponse("Permission denied."))
	}
}

func RequireSiteAdmin() gin.HandlerFunc {
	return RequireRole(models.RoleSiteAdmin)
}

func RequireCompanyAdmin() gin.HandlerFunc {
	return RequireRole(models.RoleCompanyAdmin)
}

func GetAuthUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(authUserKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func GetAuthRole(c *gin.Context) (string, bool) {
	v, exists := c.Get(authRoleKey)
	if !exists {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}

func GetAuthEmail(c *gin.Context) (string, bool) {
	v, exists := c.Get(authEmailKey)
	if !exists {
		return "", false
	}
	email, ok := v.(string)
	return email, ok
}
