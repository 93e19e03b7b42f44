package handlers

import (
	"net/http"

	"quizzy/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// IssueToken signs whatever claims the body carries.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var claims map[string]any
	if err := c.ShouldBindJSON(&claims); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "request body must be a JSON object"})
		return
	}

	token, err := h.authService.Issue(claims)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
