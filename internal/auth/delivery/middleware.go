package delivery

import (
	"net/http"
	"strings"

	authdomain "taskflow-backend/internal/auth/domain"
	"taskflow-backend/internal/auth/usecase"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

func AuthMiddleware(tokenUsecase usecase.TokenUsecase) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		principal, err := tokenUsecase.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// PrincipalFrom returns the authenticated caller, or nil when auth is disabled
func PrincipalFrom(c *gin.Context) *authdomain.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(*authdomain.Principal); ok {
			return p
		}
	}
	return nil
}
