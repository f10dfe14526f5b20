package handlers

import (
	"net/http"
	"strconv"

	"pixelcanvas/internal/domain"
	"pixelcanvas/internal/service"

	"github.com/gin-gonic/gin"
)

// GetLeaderboard returns the top users of the requested range (today, month or year).
func (h *Handler) GetLeaderboard(c *gin.Context) {
	period, err := domain.ParseRange(c.Query("range"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid range"})
		return
	}

	limit := service.DefaultLeaderboardLimit
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	top, err := h.Leaderboard.Top(c.Request.Context(), period, limit)
	if err != nil {
		respondError(c, err, "failed to get leaderboard")
		return
	}
	if top == nil {
		top = []domain.LeaderboardEntry{}
	}
	c.JSON(http.StatusOK, top)
}

// GetMyRank returns the caller's rank in the requested range. Rank 0 means no placements yet.
func (h *Handler) GetMyRank(c *gin.Context) {
	uid, ok := callerUID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	period, err := domain.ParseRange(c.Query("range"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid range"})
		return
	}

	rank, count, err := h.Leaderboard.Rank(c.Request.Context(), period, uid)
	if err != nil {
		respondError(c, err, "failed to get rank")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"range": string(period),
		"rank":  rank,
		"count": count,
	})
}
