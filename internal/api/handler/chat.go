package handler

import (
	"net/http"
	"strconv"

	"campusmind/backend/internal/config"

	"github.com/gin-gonic/gin"
)

// GetMatchMessages returns the bounded recent-message window of a match, in
// ascending timestamp order. Only a participant may read it.
func (h *Handler) GetMatchMessages(c *gin.Context) {
	id, ok := h.bearerIdentity(c)
	if !ok {
		return
	}
	matchID := c.Param("id")

	match, err := h.Storage.GetMatchByID(matchID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
		return
	}
	if !match.HasParticipant(id.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot access messages. Please try reconnecting."})
		return
	}

	messages, err := h.Storage.GetMessageWindow(matchID, config.MessageWindowSize)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Chat service is temporarily unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// GetFlaggedMessages lists unreviewed flagged messages for moderation.
func (h *Handler) GetFlaggedMessages(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	messages, err := h.Storage.GetFlaggedMessages(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list flagged messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// ReviewMessage marks a flagged message as reviewed.
func (h *Handler) ReviewMessage(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	if err := h.Storage.MarkMessageReviewed(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark message reviewed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
