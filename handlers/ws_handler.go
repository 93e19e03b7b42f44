package handlers

import (
	"net/http"

	"quizzy/logger"
	"quizzy/middleware"
	"quizzy/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type ProgressHandler struct {
	hub *services.Hub
}

func NewProgressHandler(hub *services.Hub) *ProgressHandler {
	return &ProgressHandler{hub: hub}
}

// Watch streams progress events for one quiz. Runs behind AuthMiddleware.
func (h *ProgressHandler) Watch(c *gin.Context) {
	quizID := c.Param("id")
	identity := middleware.IdentityFrom(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", zap.String("quiz", quizID), zap.Error(err))
		return
	}

	email := ""
	if identity != nil {
		email = identity.Email
	}
	h.hub.RegisterClient(conn, quizID, email)
}
