package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cleversamer/chatting-app/internal/config"
	"github.com/cleversamer/chatting-app/internal/service"
	"github.com/cleversamer/chatting-app/pkg/apperr"
	"github.com/cleversamer/chatting-app/pkg/logger"
)

type Handlers struct {
	Health     *HealthHandler
	Room       *RoomHandler
	Message    *MessageHandler
	Assignment *AssignmentHandler
	WebSocket  *WebSocketHandler
}

func NewHandlers(services *service.Services, hub *Hub, files service.FileStore, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:     NewHealthHandler(cfg),
		Room:       NewRoomHandler(services.Room, services.Lifecycle, log),
		Message:    NewMessageHandler(services.Message, files, log),
		Assignment: NewAssignmentHandler(services.Assignment, files, log),
		WebSocket:  NewWebSocketHandler(hub, services.Room, log),
	}
}

func currentUserID(c *gin.Context) uuid.UUID {
	v, _ := c.Get("user_id")
	id, _ := v.(uuid.UUID)
	return id
}

func respondError(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), gin.H{"error": err.Error()})
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
