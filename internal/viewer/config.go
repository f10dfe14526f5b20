// Package viewer is a headless client for the canvas: it caches tiles fetched over HTTP,
// applies realtime deltas, tracks optimistic placements and renders a viewport onto a Surface.
package viewer

import (
	"time"

	"pixelcanvas/internal/grid"
)

// Config tunes a Renderer. Zero fields take the defaults of DefaultConfig, except the center:
// a zero center is the board origin. Start from DefaultConfig to center on the board.
type Config struct {
	Width  int
	Height int
	// Zoom is screen pixels per cell.
	Zoom float64
	// CenterX and CenterY are the world coordinates at the middle of the screen.
	CenterX float64
	CenterY float64

	CacheTiles    int
	FetchDebounce time.Duration
	FetchParallel int
	PaddingTiles  int

	Cooldown      time.Duration
	SweepInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Width:         1024,
		Height:        768,
		Zoom:          0.5,
		CenterX:       grid.Size / 2,
		CenterY:       grid.Size / 2,
		CacheTiles:    500,
		FetchDebounce: 120 * time.Millisecond,
		FetchParallel: 4,
		PaddingTiles:  1,
		Cooldown:      10 * time.Second,
		SweepInterval: 250 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Width <= 0 {
		c.Width = d.Width
	}
	if c.Height <= 0 {
		c.Height = d.Height
	}
	if c.Zoom <= 0 {
		c.Zoom = d.Zoom
	}
	if c.CacheTiles <= 0 {
		c.CacheTiles = d.CacheTiles
	}
	if c.FetchDebounce <= 0 {
		c.FetchDebounce = d.FetchDebounce
	}
	if c.FetchParallel <= 0 {
		c.FetchParallel = d.FetchParallel
	}
	if c.PaddingTiles < 0 {
		c.PaddingTiles = 0
	}
	if c.Cooldown <= 0 {
		c.Cooldown = d.Cooldown
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = d.SweepInterval
	}
	return c
}
