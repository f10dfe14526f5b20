package handlers

import (
	"net/http"
	"strings"

	"pixelcanvas/internal/service"

	"github.com/gin-gonic/gin"
)

type devAuthRequest struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DevAuth mints a token for any uid. It only answers when DEV_MODE is on.
func (h *Handler) DevAuth(c *gin.Context) {
	if !h.DevMode {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
		return
	}

	var req devAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	req.UID = strings.TrimSpace(req.UID)
	if req.UID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uid is required"})
		return
	}

	id := service.Identity{UID: req.UID, Name: req.Name, Email: req.Email}
	token, err := service.GenerateJWT(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	user, err := h.Users.Provision(c.Request.Context(), id, service.ProfileUpdate{DisplayName: req.Name})
	if err != nil {
		respondError(c, err, "failed to create user")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}
