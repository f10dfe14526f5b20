package viewer

import (
	"context"
	"errors"
	"image/color"
	"math"
	"sync"
	"time"

	"pixelcanvas/internal/grid"
	"pixelcanvas/internal/logger"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

const (
	fetchTimeout    = 30 * time.Second
	minConfirmDelay = 50 * time.Millisecond

	pendingAlpha  = 0x88
	progressAlpha = 0x66
	progressBarPx = 3
)

// ErrInvalidColor is returned by Click for a color that is not #RRGGBB. No request is made.
var ErrInvalidColor = errors.New("invalid color format, use #RRGGBB")

// Renderer owns the client-side view of the board: tile cache, viewport, pending placements
// and the fetch scheduler. All state sits behind one mutex; network calls run outside it.
type Renderer struct {
	cfg   Config
	api   API
	clock clockwork.Clock

	mu       sync.Mutex
	view     Viewport
	cache    *TileCache
	pending  *pendingSet
	onChange func()
	confirms map[int]clockwork.Timer
	nextID   int
	closed   bool
	// stale makes the next load refetch cached tiles too.
	stale bool

	fetcher *Debouncer
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewRenderer(cfg Config, api API, clock clockwork.Clock) *Renderer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	cfg = cfg.withDefaults()

	r := &Renderer{
		cfg:   cfg,
		api:   api,
		clock: clock,
		view: Viewport{
			CX:     cfg.CenterX,
			CY:     cfg.CenterY,
			Zoom:   math.Max(MinZoom, math.Min(MaxZoom, cfg.Zoom)),
			Width:  cfg.Width,
			Height: cfg.Height,
		},
		cache:    NewTileCache(cfg.CacheTiles, clock.Now),
		pending:  newPendingSet(),
		confirms: make(map[int]clockwork.Timer),
		done:     make(chan struct{}),
	}
	r.fetcher = NewDebouncer(clock, cfg.FetchDebounce, r.loadVisible)
	return r
}

// OnChange registers fn to run after every state change. fn must not call back into a locked path.
func (r *Renderer) OnChange(fn func()) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

func (r *Renderer) notify() {
	r.mu.Lock()
	fn := r.onChange
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Start launches the pending sweeper.
func (r *Renderer) Start() {
	ticker := r.clock.NewTicker(r.cfg.SweepInterval)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-r.done:
				return
			case <-ticker.Chan():
				r.Sweep()
			}
		}
	}()
}

// Close stops the sweeper, the fetch scheduler and pending confirmations. In-flight fetches finish on their own.
func (r *Renderer) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for id, t := range r.confirms {
		t.Stop()
		delete(r.confirms, id)
	}
	r.mu.Unlock()

	r.fetcher.Stop()
	close(r.done)
	r.wg.Wait()
}

// Viewport returns a copy of the current view.
func (r *Renderer) Viewport() Viewport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

func (r *Renderer) Pan(dx, dy float64) {
	r.updateView(func(v *Viewport) { v.Pan(dx, dy) })
}

func (r *Renderer) ZoomAt(factor, sx, sy float64) {
	r.updateView(func(v *Viewport) { v.ZoomAt(factor, sx, sy) })
}

func (r *Renderer) Resize(width, height int) {
	r.updateView(func(v *Viewport) { v.Resize(width, height) })
}

// CenterOn moves the view so (x, y) is at the screen center.
func (r *Renderer) CenterOn(x, y float64) {
	r.updateView(func(v *Viewport) { v.CX, v.CY = x, y })
}

func (r *Renderer) updateView(fn func(v *Viewport)) {
	r.mu.Lock()
	fn(&r.view)
	r.mu.Unlock()

	r.fetcher.Trigger()
	r.notify()
}

// RequestFetch schedules loading of the visible tiles.
func (r *Renderer) RequestFetch() {
	r.fetcher.Trigger()
}

// RequestRefresh schedules a load that also refetches the visible tiles already cached.
// Used after the realtime stream was interrupted, when cached tiles may have missed deltas.
func (r *Renderer) RequestRefresh() {
	r.mu.Lock()
	r.stale = true
	r.mu.Unlock()
	r.fetcher.Trigger()
}

// FlushFetch runs a scheduled load now and waits for it.
func (r *Renderer) FlushFetch() {
	r.fetcher.Flush()
}

// loadVisible fetches the uncached tiles in the padded view, or all of them after RequestRefresh.
func (r *Renderer) loadVisible() {
	r.mu.Lock()
	refresh := r.stale
	r.stale = false
	var keys []grid.TileKey
	for _, k := range r.view.TilesInView(r.cfg.PaddingTiles) {
		if !refresh && r.cache.Has(k) {
			r.cache.Get(k)
			continue
		}
		keys = append(keys, k)
	}
	r.mu.Unlock()

	if len(keys) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	if err := r.fetchTiles(ctx, keys); err != nil {
		logger.Warn("tile fetch failed", "tiles", len(keys), "error", err)
	}
	r.notify()
}

// fetchTiles loads keys with bounded parallelism. A failing tile does not cancel the others.
func (r *Renderer) fetchTiles(ctx context.Context, keys []grid.TileKey) error {
	var g errgroup.Group
	g.SetLimit(r.cfg.FetchParallel)
	for _, k := range keys {
		g.Go(func() error {
			pixels, err := r.fetchTile(ctx, k)
			if err != nil {
				return err
			}
			r.storeTile(k, pixels)
			return nil
		})
	}
	return g.Wait()
}

// fetchTile reads one tile in requests no larger than the server's box cap.
func (r *Renderer) fetchTile(ctx context.Context, k grid.TileKey) (map[grid.Point]string, error) {
	pixels := make(map[grid.Point]string)
	for _, part := range k.Bounds().Clamp().Split(grid.MaxBoxPixels) {
		got, err := r.api.FetchBox(ctx, part)
		if err != nil {
			return nil, err
		}
		for _, p := range got {
			pixels[grid.Point{X: p.X, Y: p.Y}] = p.Color
		}
	}
	return pixels, nil
}

// storeTile installs authoritative tile content. The last response for a tile wins.
func (r *Renderer) storeTile(k grid.TileKey, pixels map[grid.Point]string) {
	r.mu.Lock()
	r.cache.Put(k, pixels)
	r.pending.clearBox(k.Bounds())
	r.mu.Unlock()
}

// RefreshTile refetches one tile regardless of cache state.
func (r *Renderer) RefreshTile(ctx context.Context, k grid.TileKey) error {
	pixels, err := r.fetchTile(ctx, k)
	if err != nil {
		return err
	}
	r.storeTile(k, pixels)
	r.notify()
	return nil
}

// ApplyDelta applies a realtime placement. Cells of uncached tiles are dropped.
func (r *Renderer) ApplyDelta(x, y int, c string) bool {
	r.mu.Lock()
	ok := r.cache.Upsert(grid.Point{X: x, Y: y}, c)
	r.mu.Unlock()

	if ok {
		r.notify()
	}
	return ok
}

// Click places color at a screen position. The cell shows as pending until the server answers;
// a refusal removes it and is returned as *PlaceError.
func (r *Renderer) Click(ctx context.Context, sx, sy float64, c string) (*PlaceResponse, error) {
	r.mu.Lock()
	x, y := r.view.ScreenToWorld(sx, sy)
	pt := grid.Point{X: x, Y: y}
	if !pt.InBounds() {
		r.mu.Unlock()
		return nil, ErrOutOfBounds
	}
	if !grid.ValidColor(c) {
		r.mu.Unlock()
		return nil, ErrInvalidColor
	}
	start := r.clock.Now()
	r.pending.add(Pending{Point: pt, Color: c, Start: start, Expiry: start.Add(r.cfg.Cooldown)})
	r.mu.Unlock()
	r.notify()

	res, err := r.api.Place(ctx, x, y, c)
	if err != nil {
		r.mu.Lock()
		r.pending.remove(pt)
		r.mu.Unlock()
		r.notify()
		return nil, err
	}

	until := start.Add(r.cfg.Cooldown)
	if res.CooldownUntil > 0 {
		until = time.UnixMilli(res.CooldownUntil)
	}
	r.mu.Lock()
	r.pending.retime(pt, until)
	r.mu.Unlock()
	r.notify()

	r.scheduleConfirm(grid.TileOf(x, y), max(minConfirmDelay, until.Sub(r.clock.Now())))
	return res, nil
}

// scheduleConfirm refetches tile k after delay so the placement is shown from server data.
func (r *Renderer) scheduleConfirm(k grid.TileKey, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	id := r.nextID
	r.nextID++
	r.confirms[id] = r.clock.AfterFunc(delay, func() {
		r.mu.Lock()
		_, live := r.confirms[id]
		delete(r.confirms, id)
		r.mu.Unlock()
		if !live {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		if err := r.RefreshTile(ctx, k); err != nil {
			logger.Warn("confirm refetch failed", "tile", k.String(), "error", err)
		}
	})
}

// Sweep drops expired pending entries and reports how many went.
func (r *Renderer) Sweep() int {
	r.mu.Lock()
	n := r.pending.sweep(r.clock.Now())
	r.mu.Unlock()
	if n > 0 {
		r.notify()
	}
	return n
}

// Pending lists the pending placements.
func (r *Renderer) Pending() []Pending {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending.list()
}

// CachedTiles reports the number of tiles in the cache.
func (r *Renderer) CachedTiles() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}

// Cell returns the cached color at (x, y), if its tile is cached and the cell painted.
func (r *Renderer) Cell(x, y int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.cache.Peek(grid.TileOf(x, y))
	if !ok {
		return "", false
	}
	c, ok := t.Pixels[grid.Point{X: x, Y: y}]
	return c, ok
}

// Render paints the current view: white background, cached cells, then pending overlays.
func (r *Renderer) Render(s Surface) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := r.view
	w, h := float64(v.Width), float64(v.Height)
	size := v.CellSize()
	fsize := float64(size)

	s.Clear(color.White)

	for _, k := range v.TilesInView(0) {
		t, ok := r.cache.Peek(k)
		if !ok {
			continue
		}
		for pt, c := range t.Pixels {
			sx, sy := v.WorldToScreen(float64(pt.X), float64(pt.Y))
			if sx+fsize < 0 || sx-fsize > w || sy+fsize < 0 || sy-fsize > h {
				continue
			}
			s.FillRect(int(math.Round(sx)), int(math.Round(sy)), size, size, parseHex(c, 0xff))
		}
	}

	now := r.clock.Now()
	for _, p := range r.pending.list() {
		if !now.Before(p.Expiry) {
			continue
		}
		sx, sy := v.WorldToScreen(float64(p.Point.X), float64(p.Point.Y))
		x, y := int(math.Round(sx)), int(math.Round(sy))
		s.FillRect(x, y, size, size, parseHex(p.Color, pendingAlpha))

		bar := max(1, int(math.Floor(fsize*p.Progress(now))))
		s.FillRect(x, y+size-progressBarPx, bar, progressBarPx, color.NRGBA{A: progressAlpha})
	}
}
