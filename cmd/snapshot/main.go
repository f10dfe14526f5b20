package main

import (
	"context"
	"flag"
	"image"
	"image/png"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pixelcanvas/internal/grid"
	"pixelcanvas/internal/logger"
	"pixelcanvas/internal/viewer"

	"github.com/jonboulle/clockwork"
	"golang.org/x/image/draw"
)

// Renders a region of a running canvas to PNG. With -follow it keeps the realtime stream open
// for that long before rendering, so the image includes live placements.
func main() {
	base := flag.String("base", "http://127.0.0.1:8080", "server base url")
	token := flag.String("token", "", "bearer token (optional)")
	cx := flag.Float64("x", grid.Size/2, "world x at image center")
	cy := flag.Float64("y", grid.Size/2, "world y at image center")
	zoom := flag.Float64("zoom", 1, "screen pixels per cell")
	width := flag.Int("w", 512, "image width")
	height := flag.Int("h", 512, "image height")
	scale := flag.Int("scale", 1, "integer upscale of the output")
	follow := flag.Duration("follow", 0, "listen for realtime updates before rendering")
	out := flag.String("out", "snapshot.png", "output file")
	flag.Parse()

	logger.Init("info", false)
	defer logger.Sync()

	cfg := viewer.DefaultConfig()
	cfg.Width, cfg.Height = *width, *height
	cfg.Zoom = *zoom
	cfg.CenterX, cfg.CenterY = *cx, *cy
	cfg.PaddingTiles = 0

	r := viewer.NewRenderer(cfg, viewer.NewAPIClient(*base, *token), clockwork.NewRealClock())
	defer r.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.RequestFetch()
	r.FlushFetch()
	logger.Info("tiles loaded", "tiles", r.CachedTiles())

	if *follow > 0 {
		wsURL := "ws" + strings.TrimPrefix(strings.TrimRight(*base, "/"), "http") + "/ws"
		followCtx, cancel := context.WithTimeout(ctx, *follow)
		sub := viewer.NewSubscriber(wsURL, *token)
		_ = sub.Run(followCtx, r)
		cancel()
	}

	surface := viewer.NewImageSurface(*width, *height)
	r.Render(surface)

	var img image.Image = surface.Img
	if *scale > 1 {
		dst := image.NewRGBA(image.Rect(0, 0, *width*(*scale), *height*(*scale)))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), surface.Img, surface.Img.Bounds(), draw.Src, nil)
		img = dst
	}

	f, err := os.Create(*out)
	if err != nil {
		logger.Fatal("create output", "error", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		logger.Fatal("encode png", "error", err)
	}
	logger.Info("snapshot written", "file", *out, "at", time.Now().Format(time.RFC3339))
}
