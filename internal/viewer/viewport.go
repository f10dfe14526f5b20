package viewer

import (
	"math"

	"pixelcanvas/internal/grid"
)

const (
	MinZoom = 0.05
	MaxZoom = 8
)

// Viewport maps world cells to screen pixels. The world point (CX, CY) sits at the screen center.
type Viewport struct {
	CX, CY float64
	Zoom   float64
	Width  int
	Height int
}

func (v Viewport) WorldToScreen(wx, wy float64) (float64, float64) {
	return float64(v.Width)/2 + (wx-v.CX)*v.Zoom, float64(v.Height)/2 + (wy-v.CY)*v.Zoom
}

// ScreenToWorld returns the cell under a screen position.
func (v Viewport) ScreenToWorld(sx, sy float64) (int, int) {
	wx := (sx-float64(v.Width)/2)/v.Zoom + v.CX
	wy := (sy-float64(v.Height)/2)/v.Zoom + v.CY
	return int(math.Floor(wx)), int(math.Floor(wy))
}

// VisibleBox is the world area on screen grown by paddingTiles tiles on each side. It may extend past the board.
func (v Viewport) VisibleBox(paddingTiles int) grid.Box {
	halfW := float64(v.Width) / 2 / v.Zoom
	halfH := float64(v.Height) / 2 / v.Zoom
	pad := paddingTiles * grid.TileSize
	return grid.Box{
		Left:   int(math.Floor(v.CX-halfW)) - pad,
		Top:    int(math.Floor(v.CY-halfH)) - pad,
		Right:  int(math.Ceil(v.CX+halfW)) + pad,
		Bottom: int(math.Ceil(v.CY+halfH)) + pad,
	}
}

// TilesInView lists the on-board tiles intersecting VisibleBox(paddingTiles).
func (v Viewport) TilesInView(paddingTiles int) []grid.TileKey {
	return grid.TilesIntersecting(v.VisibleBox(paddingTiles))
}

// Pan moves the view by a screen-space drag of (dx, dy).
func (v *Viewport) Pan(dx, dy float64) {
	v.CX -= dx / v.Zoom
	v.CY -= dy / v.Zoom
}

// ZoomAt scales by factor keeping the world point under (sx, sy) fixed on screen.
func (v *Viewport) ZoomAt(factor, sx, sy float64) {
	wx := (sx-float64(v.Width)/2)/v.Zoom + v.CX
	wy := (sy-float64(v.Height)/2)/v.Zoom + v.CY

	v.Zoom = math.Max(MinZoom, math.Min(MaxZoom, v.Zoom*factor))

	v.CX = wx - (sx-float64(v.Width)/2)/v.Zoom
	v.CY = wy - (sy-float64(v.Height)/2)/v.Zoom
}

func (v *Viewport) Resize(width, height int) {
	v.Width, v.Height = width, height
}

// CellSize is the on-screen side of one cell, never below one pixel.
func (v Viewport) CellSize() int {
	return max(1, int(math.Floor(v.Zoom)))
}
