package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"pixelcanvas/internal/domain"
	"pixelcanvas/internal/grid"
	"pixelcanvas/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	DefaultBoxLimit = 1000
	DefaultBoxSpan  = 100
)

type placeRequest struct {
	X     *int   `json:"x"`
	Y     *int   `json:"y"`
	Color string `json:"color"`
}

// PlacePixel handles POST /api/pixels/place.
func (h *Handler) PlacePixel(c *gin.Context) {
	uid, ok := callerUID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
		return
	}

	var req placeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.X == nil || req.Y == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid coordinates"})
		return
	}

	res, err := h.Placement.Place(c.Request.Context(), uid, *req.X, *req.Y, req.Color)
	if err != nil {
		status, body := placeErrorResponse(err, h.Placement.Cooldown().Milliseconds())
		if status == http.StatusInternalServerError {
			logger.WithContext(c.Request.Context()).Errorw("place pixel failed", "uid", uid, "error", err)
		}
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "cooldownUntil": res.CooldownUntil})
}

// placeErrorResponse is the single translation point from placement errors to the wire.
func placeErrorResponse(err error, cooldownMs int64) (int, gin.H) {
	var (
		cd *domain.CooldownError
		ve *domain.ValidationError
	)
	switch {
	case errors.As(err, &cd):
		wait := cd.WaitMs
		if wait <= 0 {
			wait = cooldownMs
		}
		return http.StatusTooManyRequests, gin.H{"success": false, "error": "Cooldown", "waitMs": wait}
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusPaymentRequired, gin.H{"success": false, "error": "No free pixels or play points"}
	case errors.Is(err, domain.ErrColorLocked):
		return http.StatusForbidden, gin.H{"success": false, "error": "Color locked by your plan"}
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, gin.H{"success": false, "error": "User not found"}
	case errors.As(err, &ve):
		msg := "Invalid coordinates"
		if ve.Field == "color" {
			msg = "Invalid color format. Use #RRGGBB"
		}
		return http.StatusBadRequest, gin.H{"success": false, "error": msg}
	default:
		return http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to place pixel"}
	}
}

// PixelsBox handles GET /api/pixels/box. Bounds are inclusive.
func (h *Handler) PixelsBox(c *gin.Context) {
	left, err1 := intQuery(c, "left", 0)
	top, err2 := intQuery(c, "top", 0)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid box"})
		return
	}
	right, err1 := intQuery(c, "right", min(left+DefaultBoxSpan, grid.Size-1))
	bottom, err2 := intQuery(c, "bottom", min(top+DefaultBoxSpan, grid.Size-1))
	limit, err3 := intQuery(c, "limit", DefaultBoxLimit)
	if err1 != nil || err2 != nil || err3 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid box"})
		return
	}

	for _, v := range []struct {
		name string
		val  int
	}{{"left", left}, {"top", top}, {"right", right}, {"bottom", bottom}} {
		if !grid.InBounds(v.val) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + v.name})
			return
		}
	}
	if right-left > grid.MaxBoxSpan || bottom-top > grid.MaxBoxSpan {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Box too large"})
		return
	}
	if limit <= 0 {
		limit = DefaultBoxLimit
	}
	limit = min(limit, grid.MaxBoxPixels)

	box := grid.Box{Left: left, Top: top, Right: right, Bottom: bottom}
	pixels, err := h.Pixels.PixelsInBox(c.Request.Context(), box, limit)
	if err != nil {
		respondError(c, err, "Failed to fetch pixels")
		return
	}
	if pixels == nil {
		pixels = []domain.Pixel{}
	}
	c.JSON(http.StatusOK, pixels)
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
