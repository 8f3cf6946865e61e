package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const contextUserKey = "current_user"

// Middleware validates the bearer token and attaches the principal to the
// request context.
func Middleware(service *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := service.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(contextUserKey, CurrentUser{
			ID:           claims.Subject,
			Name:         claims.Name,
			DepartmentID: claims.DepartmentID,
			Role:         claims.Role,
		})
		c.Next()
	}
}

// UserFromContext returns the authenticated principal set by Middleware.
func UserFromContext(c *gin.Context) (CurrentUser, bool) {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return CurrentUser{}, false
	}
	user, ok := v.(CurrentUser)
	return user, ok
}
