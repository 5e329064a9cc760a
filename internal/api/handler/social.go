package handler

import (
	"errors"
	"net/http"

	"campusmind/backend/internal/chathub"
	"campusmind/backend/internal/config"

	"github.com/gin-gonic/gin"
)

// ListPeers returns the caller's saved chat partners.
func (h *Handler) ListPeers(c *gin.Context) {
	id, ok := h.bearerIdentity(c)
	if !ok {
		return
	}
	peers, err := h.Storage.ListPeers(id.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list peers"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"peers": peers})
}

// ListRooms returns the group chatrooms.
func (h *Handler) ListRooms(c *gin.Context) {
	if _, ok := h.bearerIdentity(c); !ok {
		return
	}
	rooms, err := h.Storage.ListRooms()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list rooms"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// JoinRoom adds the caller to a group chatroom.
func (h *Handler) JoinRoom(c *gin.Context) {
	id, ok := h.bearerIdentity(c)
	if !ok {
		return
	}
	roomID := c.Param("id")

	if _, err := h.Storage.GetRoomByID(roomID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	if err := h.Storage.JoinRoom(roomID, id.UserID, id.Alias); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join room"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GetRoomMessages returns the room's recent-message window, oldest first.
func (h *Handler) GetRoomMessages(c *gin.Context) {
	if _, ok := h.bearerIdentity(c); !ok {
		return
	}
	roomID := c.Param("id")

	if _, err := h.Storage.GetRoomByID(roomID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	messages, err := h.Storage.GetMessageWindow(roomID, config.MessageWindowSize)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Chat service is temporarily unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// SendRoomMessage posts a message to a group chatroom through the same
// moderation pipeline as 1:1 chat. A crisis notice, when due, rides back on
// the response.
func (h *Handler) SendRoomMessage(c *gin.Context) {
	id, ok := h.bearerIdentity(c)
	if !ok {
		return
	}
	roomID := c.Param("id")

	if _, err := h.Storage.GetRoomByID(roomID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	rec, notice, err := h.Hub.SendRoomMessage(roomID, id.UserID, id.Alias, body.Text)
	if err != nil {
		if errors.Is(err, chathub.ErrMessageBlocked) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Your message contains inappropriate content and cannot be sent."})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{"message": rec}
	if notice != nil {
		resp["crisis_notice"] = notice
		resp["crisis_notice_ms"] = config.CrisisNoticeDuration.Milliseconds()
	}
	c.JSON(http.StatusCreated, resp)
}
