package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"pixelcanvas/internal/grid"

	"github.com/gin-gonic/gin"
)

const AppName = "pixelcanvas"

// Version answers GET /version.
func (h *Handler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"name": AppName, "version": h.AppVersion})
}

// EnvJS exposes public client settings as window.env. Never put secrets here.
func (h *Handler) EnvJS(c *gin.Context) {
	env := map[string]any{
		"GRID_SIZE":                       grid.Size,
		"TILE_SIZE":                       grid.TileSize,
		"COOLDOWN_MS":                     h.Placement.Cooldown().Milliseconds(),
		"STRIPE_PRICE_COLORS_60":          h.Prices.Colors60,
		"STRIPE_PRICE_COLORS_120":         h.Prices.Colors120,
		"STRIPE_PRICE_COLORS_ALL_MONTHLY": h.Prices.ColorsAllMonth,
		"STRIPE_PRICE_PIXELS_100":         h.Prices.Pixels100,
	}
	body, err := json.Marshal(env)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "application/javascript", []byte("window.env = "+string(body)+";"))
}

// NotFound answers unknown /api paths with JSON and everything else with the SPA index.
func NotFound(staticDir string) gin.HandlerFunc {
	index := filepath.Join(staticDir, "index.html")
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
			return
		}
		if _, err := os.Stat(index); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
			return
		}
		c.File(index)
	}
}
