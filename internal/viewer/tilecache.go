package viewer

import (
	"time"

	"pixelcanvas/internal/grid"

	"github.com/golang/groupcache/lru"
)

// Tile is the cached content of one tile. Absent cells are unpainted.
type Tile struct {
	Pixels      map[grid.Point]string
	LastTouched time.Time
}

// TileCache is a bounded LRU of tiles. It is not safe for concurrent use; Renderer guards it.
type TileCache struct {
	lru     *lru.Cache
	present map[grid.TileKey]*Tile
	now     func() time.Time
}

func NewTileCache(maxTiles int, now func() time.Time) *TileCache {
	if now == nil {
		now = time.Now
	}
	c := &TileCache{lru: lru.New(maxTiles), present: make(map[grid.TileKey]*Tile), now: now}
	c.lru.OnEvicted = func(key lru.Key, _ interface{}) {
		delete(c.present, key.(grid.TileKey))
	}
	return c
}

// Get returns the tile and marks it most recently used.
func (c *TileCache) Get(k grid.TileKey) (*Tile, bool) {
	v, ok := c.lru.Get(k)
	if !ok {
		return nil, false
	}
	t := v.(*Tile)
	t.LastTouched = c.now()
	return t, true
}

// Has reports presence without touching recency.
func (c *TileCache) Has(k grid.TileKey) bool {
	_, ok := c.present[k]
	return ok
}

// Peek returns the tile without touching recency.
func (c *TileCache) Peek(k grid.TileKey) (*Tile, bool) {
	t, ok := c.present[k]
	return t, ok
}

// Put stores pixels as the full content of tile k, evicting the least recently used tile past the bound.
func (c *TileCache) Put(k grid.TileKey, pixels map[grid.Point]string) {
	if pixels == nil {
		pixels = make(map[grid.Point]string)
	}
	t := &Tile{Pixels: pixels, LastTouched: c.now()}
	c.present[k] = t
	c.lru.Add(k, t)
}

// Upsert sets one cell if its tile is cached and reports whether it did.
func (c *TileCache) Upsert(p grid.Point, color string) bool {
	t, ok := c.Get(grid.TileOf(p.X, p.Y))
	if !ok {
		return false
	}
	t.Pixels[p] = color
	return true
}

func (c *TileCache) Len() int {
	return c.lru.Len()
}
