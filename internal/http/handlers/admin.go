package handlers

import (
	"net/http"

	"pixelcanvas/internal/domain"

	"github.com/gin-gonic/gin"
)

// GetAdminStats returns the board overview. Admins only.
func (h *Handler) GetAdminStats(c *gin.Context) {
	uid, ok := callerUID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	stats, err := h.Admin.GetStats(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err, "failed to load stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

type grantRequest struct {
	Source string `json:"source"`
	Amount int64  `json:"amount"`
}

// GrantCredits adjusts one balance of the user in the path.
func (h *Handler) GrantCredits(c *gin.Context) {
	uid, ok := callerUID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Source == "" {
		req.Source = string(domain.SourceFreePixels)
	}

	u, err := h.Admin.GrantCredits(c.Request.Context(), uid, c.Param("uid"), domain.BalanceSource(req.Source), req.Amount)
	if err != nil {
		respondError(c, err, "failed to grant credits")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": u})
}

// AdminAudit lists audit entries, filtered by ?category= or ?uid=.
func (h *Handler) AdminAudit(c *gin.Context) {
	uid, ok := callerUID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	limit, err := intQuery(c, "limit", 50)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	logs, err := h.Admin.RecentAudit(c.Request.Context(), uid, c.Query("category"), c.Query("uid"), limit)
	if err != nil {
		respondError(c, err, "failed to load audit log")
		return
	}
	if logs == nil {
		logs = []*domain.AuditLog{}
	}
	c.JSON(http.StatusOK, logs)
}
