package handlers

import (
	"net/http"

	"pixelcanvas/internal/http/middleware"
	"pixelcanvas/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateUser provisions the caller on first sign-in and returns the stored user either way.
func (h *Handler) CreateUser(c *gin.Context) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no token"})
		return
	}

	var body service.ProfileUpdate
	// body is optional
	_ = c.ShouldBindJSON(&body)

	user, err := h.Users.Provision(c.Request.Context(), id, body)
	if err != nil {
		respondError(c, err, "failed to create user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// MyStats returns the caller's counters.
func (h *Handler) MyStats(c *gin.Context) {
	uid, ok := callerUID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	stats, err := h.Users.Stats(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err, "failed to get stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetUser returns a public profile.
func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.Users.Get(c.Request.Context(), c.Param("uid"))
	if err != nil {
		respondError(c, err, "failed to get user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// SearchUsers matches display names by prefix.
func (h *Handler) SearchUsers(c *gin.Context) {
	users, err := h.Users.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err, "search failed")
		return
	}
	c.JSON(http.StatusOK, users)
}

// UpdateBio lets a user edit their own bio.
func (h *Handler) UpdateBio(c *gin.Context) {
	uid, ok := callerUID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body struct {
		Bio string `json:"bio"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	if err := h.Users.UpdateBio(c.Request.Context(), uid, c.Param("uid"), body.Bio); err != nil {
		respondError(c, err, "failed to update bio")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// UpdateProfile lets a user edit their own display name and avatar.
func (h *Handler) UpdateProfile(c *gin.Context) {
	uid, ok := callerUID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body service.ProfileUpdate
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	if err := h.Users.UpdateProfile(c.Request.Context(), uid, c.Param("uid"), body); err != nil {
		respondError(c, err, "failed to update profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DeleteUser removes a user. Admin only.
func (h *Handler) DeleteUser(c *gin.Context) {
	uid, ok := callerUID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if err := h.Users.Delete(c.Request.Context(), uid, c.Param("uid")); err != nil {
		respondError(c, err, "failed to delete user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
