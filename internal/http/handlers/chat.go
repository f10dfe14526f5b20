package handlers

import (
	"net/http"

	"pixelcanvas/internal/domain"
	"pixelcanvas/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// RecentChat returns the latest messages, oldest first.
func (h *Handler) RecentChat(c *gin.Context) {
	msgs, err := h.Chat.Recent(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to load chat")
		return
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *Handler) SendChat(c *gin.Context) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing auth token"})
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty message"})
		return
	}

	msg, err := h.Chat.Send(c.Request.Context(), id, body.Text)
	if err != nil {
		respondError(c, err, "failed to send message")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": msg})
}
