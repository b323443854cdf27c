package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cleversamer/chatting-app/internal/domain"
	"github.com/cleversamer/chatting-app/internal/service"
	"github.com/cleversamer/chatting-app/pkg/logger"
)

type MessageHandler struct {
	messageService service.MessageService
	files          service.FileStore
	log            logger.Logger
}

func NewMessageHandler(messageService service.MessageService, files service.FileStore, log logger.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		files:          files,
		log:            log,
	}
}

type SendMessageRequest struct {
	Type        string     `json:"type" form:"type" binding:"required"`
	Text        string     `json:"text" form:"text"`
	PollOptions []string   `json:"poll_options" form:"poll_options"`
	IsReply     bool       `json:"is_reply" form:"is_reply"`
	RepliedTo   *uuid.UUID `json:"replied_to" form:"replied_to"`
	IsPinned    bool       `json:"is_pinned" form:"is_pinned"`
}

// Send accepts JSON for text and poll messages and multipart form data for
// media, with the file under the "file" field.
func (h *MessageHandler) Send(c *gin.Context) {
	roomID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req SendMessageRequest
	in := service.SendInput{RoomID: roomID, SenderID: currentUserID(c)}

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
			return
		}
		name, data, err := readUpload(fileHeader)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
			return
		}
		in.FileName = name
		in.FileData = data
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	in.Type = domain.MessageType(req.Type)
	in.Text = req.Text
	in.PollOptions = req.PollOptions
	in.IsReply = req.IsReply
	in.RepliedTo = req.RepliedTo
	in.IsPinned = req.IsPinned

	msg, err := h.messageService.Send(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) List(c *gin.Context) {
	roomID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	messages, err := h.messageService.ListRoom(c.Request.Context(), currentUserID(c), roomID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

type VoteRequest struct {
	Option *int `json:"option" binding:"required"`
}

func (h *MessageHandler) Vote(c *gin.Context) {
	messageID, ok := parseIDParam(c, "messageId")
	if !ok {
		return
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messageService.Vote(c.Request.Context(), currentUserID(c), messageID, *req.Option)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, msg)
}

func (h *MessageHandler) Delete(c *gin.Context) {
	messageID, ok := parseIDParam(c, "messageId")
	if !ok {
		return
	}

	msg, err := h.messageService.Delete(c.Request.Context(), currentUserID(c), messageID)
	if err != nil {
		respondError(c, err)
		return
	}

	// The record is gone either way; losing the blob only leaks disk.
	if domain.IsMediaType(msg.Type) {
		if file := msg.File(); file != nil {
			if err := h.files.Delete(file.Path); err != nil {
				h.log.Warn("failed to delete message file", "path", file.Path, "error", err)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Message deleted"})
}
