package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cleversamer/chatting-app/internal/service"
	"github.com/cleversamer/chatting-app/pkg/logger"
)

type RoomHandler struct {
	roomService      service.RoomService
	lifecycleService service.LifecycleService
	log              logger.Logger
}

func NewRoomHandler(roomService service.RoomService, lifecycleService service.LifecycleService, log logger.Logger) *RoomHandler {
	return &RoomHandler{
		roomService:      roomService,
		lifecycleService: lifecycleService,
		log:              log,
	}
}

type CreateRoomRequest struct {
	Name       string `json:"name" binding:"required"`
	Visibility string `json:"visibility" binding:"required"`
	JoinCode   string `json:"join_code"`
}

func (h *RoomHandler) Create(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.roomService.Create(c.Request.Context(), currentUserID(c), req.Name, req.Visibility, req.JoinCode)
	if err != nil {
		respondError(c, err)
		return
	}

	h.lifecycleService.ScheduleRoomMaintenance(room.ID)

	c.JSON(http.StatusCreated, room)
}

type JoinRoomRequest struct {
	Name     string `json:"name" binding:"required"`
	JoinCode string `json:"join_code"`
}

func (h *RoomHandler) Join(c *gin.Context) {
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.roomService.Join(c.Request.Context(), currentUserID(c), req.Name, req.JoinCode)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

type MembersRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" binding:"required,min=1"`
}

func (h *RoomHandler) Leave(c *gin.Context) {
	roomID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req MembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.roomService.Leave(c.Request.Context(), currentUserID(c), roomID, req.UserIDs); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Left room"})
}

type BlockRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" binding:"required,min=1"`
	Blocked bool        `json:"blocked"`
}

func (h *RoomHandler) SetBlocked(c *gin.Context) {
	roomID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.roomService.SetBlocked(c.Request.Context(), roomID, currentUserID(c), req.UserIDs, req.Blocked)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) ToggleChatDisabled(c *gin.Context) {
	roomID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	room, err := h.roomService.ToggleChatDisabled(c.Request.Context(), roomID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) ToggleShowName(c *gin.Context) {
	roomID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	room, err := h.roomService.ToggleShowName(c.Request.Context(), roomID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) PinMessage(c *gin.Context) {
	roomID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	messageID, ok := parseIDParam(c, "messageId")
	if !ok {
		return
	}

	room, err := h.roomService.PinMessage(c.Request.Context(), roomID, currentUserID(c), messageID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) GetByID(c *gin.Context) {
	roomID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	room, err := h.roomService.GetByID(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) GetMembers(c *gin.Context) {
	roomID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	members, err := h.roomService.GetMembers(c.Request.Context(), currentUserID(c), roomID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, members)
}

func (h *RoomHandler) ListPublic(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if skip < 0 {
		skip = 0
	}

	rooms, err := h.roomService.ListPublic(c.Request.Context(), skip)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rooms)
}

func (h *RoomHandler) Search(c *gin.Context) {
	query := c.Query("name")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name query parameter required"})
		return
	}

	result, err := h.roomService.Search(c.Request.Context(), currentUserID(c), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *RoomHandler) Delete(c *gin.Context) {
	roomID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.lifecycleService.DeleteRoom(c.Request.Context(), currentUserID(c), roomID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Room deleted"})
}

func (h *RoomHandler) Reset(c *gin.Context) {
	roomID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.lifecycleService.ResetRoom(c.Request.Context(), currentUserID(c), roomID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Room reset"})
}

func (h *RoomHandler) DeleteMessages(c *gin.Context) {
	roomID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.lifecycleService.DeleteRoomMessages(c.Request.Context(), currentUserID(c), roomID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Chat cleared"})
}
