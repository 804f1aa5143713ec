package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/servease/booking-api/internal/handler"
	"github.com/servease/booking-api/pkg/auth"
	"github.com/servease/booking-api/pkg/errors"
	"github.com/servease/booking-api/pkg/httputil"
)

const ContextUserRole = "userRole"

type AuthMiddleware struct {
	tokens *auth.TokenManager
}

func NewAuthMiddleware(tokens *auth.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate verifies the bearer token and sets the caller identity in context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWith(c, errors.Unauthorized(fmt.Errorf("missing authorization header")))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWith(c, errors.Unauthorized(fmt.Errorf("invalid authorization format")))
			return
		}

		claims, err := m.tokens.Validate(parts[1])
		if err != nil {
			abortWith(c, errors.Unauthorized(err))
			return
		}

		c.Set(handler.ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}

// RequireRole rejects requests whose token does not carry the given role.
func (m *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetString(ContextUserRole)
		if !strings.EqualFold(got, role) {
			abortWith(c, errors.Forbidden("insufficient role", nil))
			return
		}
		c.Next()
	}
}

func abortWith(c *gin.Context, err *errors.AppError) {
	httputil.RespondWithError(c, err)
	c.Abort()
}
