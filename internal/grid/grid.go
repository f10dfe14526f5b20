// Package grid defines the bounded integer plane shared by the server and the viewer,
// and the tiling scheme used to cache and fetch it.
package grid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// Size is the side of the square board: valid coordinates are 0..Size-1.
	Size = 10000
	// TileSize is the side of a tile in cells.
	TileSize = 64
	// MaxBoxSpan is the widest/tallest box the box query accepts.
	MaxBoxSpan = 2000
	// MaxBoxPixels caps both the result size of a box query and the area of one fetch request.
	MaxBoxPixels = 2000

	colorLength = 7
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// InBounds reports whether n is a valid coordinate on either axis.
func InBounds(n int) bool {
	return n >= 0 && n < Size
}

// ValidColor reports whether s is a #RRGGBB color. Case is not normalised.
func ValidColor(s string) bool {
	return len(s) == colorLength && hexColor.MatchString(s)
}

// Point is a single cell.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string {
	return strconv.Itoa(p.X) + "_" + strconv.Itoa(p.Y)
}

// InBounds reports whether both coordinates are on the board.
func (p Point) InBounds() bool {
	return InBounds(p.X) && InBounds(p.Y)
}

// Box is an axis-aligned rectangle with inclusive edges.
type Box struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

func (b Box) Width() int  { return b.Right - b.Left + 1 }
func (b Box) Height() int { return b.Bottom - b.Top + 1 }

// Area is the number of cells; empty boxes have area 0.
func (b Box) Area() int {
	if b.Empty() {
		return 0
	}
	return b.Width() * b.Height()
}

func (b Box) Empty() bool {
	return b.Right < b.Left || b.Bottom < b.Top
}

func (b Box) Contains(p Point) bool {
	return p.X >= b.Left && p.X <= b.Right && p.Y >= b.Top && p.Y <= b.Bottom
}

func (b Box) Intersects(o Box) bool {
	if b.Empty() || o.Empty() {
		return false
	}
	return b.Left <= o.Right && o.Left <= b.Right && b.Top <= o.Bottom && o.Top <= b.Bottom
}

// Clamp restricts the box to the board.
func (b Box) Clamp() Box {
	return Box{
		Left:   clamp(b.Left, 0, Size-1),
		Top:    clamp(b.Top, 0, Size-1),
		Right:  clamp(b.Right, 0, Size-1),
		Bottom: clamp(b.Bottom, 0, Size-1),
	}
}

// Split cuts the box into sub-boxes whose area never exceeds maxArea and whose union is b.
// Tall boxes are cut into row bands first, then every band into vertical strips.
func (b Box) Split(maxArea int) []Box {
	if b.Empty() {
		return nil
	}
	if maxArea < 1 {
		maxArea = 1
	}
	if b.Area() <= maxArea {
		return []Box{b}
	}

	rows := min(b.Height(), maxArea)
	cols := max(1, maxArea/rows)

	var out []Box
	for top := b.Top; top <= b.Bottom; top += rows {
		bottom := min(b.Bottom, top+rows-1)
		for left := b.Left; left <= b.Right; left += cols {
			out = append(out, Box{Left: left, Top: top, Right: min(b.Right, left+cols-1), Bottom: bottom})
		}
	}
	return out
}

// TileKey identifies a TileSize×TileSize region.
type TileKey struct {
	TX int
	TY int
}

// TileOf returns the tile containing the cell.
func TileOf(x, y int) TileKey {
	return TileKey{TX: floorDiv(x, TileSize), TY: floorDiv(y, TileSize)}
}

func (k TileKey) String() string {
	return strconv.Itoa(k.TX) + "_" + strconv.Itoa(k.TY)
}

// Bounds returns the cells covered by the tile.
func (k TileKey) Bounds() Box {
	left := k.TX * TileSize
	top := k.TY * TileSize
	return Box{Left: left, Top: top, Right: left + TileSize - 1, Bottom: top + TileSize - 1}
}

// ParseTileKey parses the "tx_ty" form produced by String.
func ParseTileKey(s string) (TileKey, error) {
	a, b, ok := strings.Cut(s, "_")
	if !ok {
		return TileKey{}, fmt.Errorf("tile key %q: missing separator", s)
	}
	tx, err := strconv.Atoi(a)
	if err != nil {
		return TileKey{}, fmt.Errorf("tile key %q: %w", s, err)
	}
	ty, err := strconv.Atoi(b)
	if err != nil {
		return TileKey{}, fmt.Errorf("tile key %q: %w", s, err)
	}
	return TileKey{TX: tx, TY: ty}, nil
}

// TilesIntersecting lists, row by row, the on-board tiles whose bounds intersect b.
func TilesIntersecting(b Box) []TileKey {
	c := b.Clamp()
	if b.Empty() || !c.Intersects(b) {
		return nil
	}
	first := TileOf(c.Left, c.Top)
	last := TileOf(c.Right, c.Bottom)

	keys := make([]TileKey, 0, (last.TX-first.TX+1)*(last.TY-first.TY+1))
	for ty := first.TY; ty <= last.TY; ty++ {
		for tx := first.TX; tx <= last.TX; tx++ {
			keys = append(keys, TileKey{TX: tx, TY: ty})
		}
	}
	return keys
}

func clamp(n, lo, hi int) int {
	return max(lo, min(hi, n))
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
