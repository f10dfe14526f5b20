package viewer

import (
	"image"
	"image/color"
	"image/draw"
	"strconv"
)

// Surface is a raster the renderer paints on.
type Surface interface {
	Size() (width, height int)
	Clear(c color.Color)
	FillRect(x, y, w, h int, c color.Color)
}

// ImageSurface paints into an RGBA image.
type ImageSurface struct {
	Img *image.RGBA
}

func NewImageSurface(width, height int) *ImageSurface {
	return &ImageSurface{Img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

func (s *ImageSurface) Size() (int, int) {
	b := s.Img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *ImageSurface) Clear(c color.Color) {
	draw.Draw(s.Img, s.Img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// FillRect composites c over the rectangle, so translucent colors blend.
func (s *ImageSurface) FillRect(x, y, w, h int, c color.Color) {
	r := image.Rect(x, y, x+w, y+h).Intersect(s.Img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(s.Img, r, image.NewUniform(c), image.Point{}, draw.Over)
}

// parseHex decodes #RRGGBB. Malformed input yields black.
func parseHex(s string, alpha uint8) color.Color {
	if len(s) != 7 || s[0] != '#' {
		return color.NRGBA{A: alpha}
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.NRGBA{A: alpha}
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: alpha}
}
