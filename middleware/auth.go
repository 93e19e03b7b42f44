package middleware

import (
	"errors"
	"net/http"

	"quizzy/models"
	"quizzy/services"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// AuthMiddleware requires a bearer token, from the Authorization header or a
// token query parameter, and stores the caller's identity on the context.
func AuthMiddleware(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			identity *models.Identity
			err      error
		)
		if header := c.GetHeader("Authorization"); header != "" {
			identity, err = auth.ValidateHeader(header)
		} else {
			identity, err = auth.Validate(c.Query("token"))
		}
		if err != nil {
			status := http.StatusForbidden
			if errors.Is(err, models.ErrUnauthorized) {
				status = http.StatusUnauthorized
			}
			c.AbortWithStatusJSON(status, gin.H{"message": err.Error()})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// IdentityFrom returns the identity set by AuthMiddleware, or nil.
func IdentityFrom(c *gin.Context) *models.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*models.Identity)
	return identity
}
