package viewer

import (
	"sort"
	"time"

	"pixelcanvas/internal/grid"
)

// Pending is an optimistic placement awaiting server confirmation.
type Pending struct {
	Point  grid.Point
	Color  string
	Start  time.Time
	Expiry time.Time
}

// Progress is the elapsed fraction of the pending window, in [0, 1].
func (p Pending) Progress(now time.Time) float64 {
	total := p.Expiry.Sub(p.Start)
	if total <= 0 {
		return 1
	}
	f := float64(now.Sub(p.Start)) / float64(total)
	return min(1, max(0, f))
}

// pendingSet is guarded by Renderer.mu.
type pendingSet struct {
	items map[grid.Point]Pending
}

func newPendingSet() *pendingSet {
	return &pendingSet{items: make(map[grid.Point]Pending)}
}

func (s *pendingSet) add(p Pending) {
	s.items[p.Point] = p
}

func (s *pendingSet) retime(pt grid.Point, expiry time.Time) bool {
	p, ok := s.items[pt]
	if !ok {
		return false
	}
	p.Expiry = expiry
	s.items[pt] = p
	return true
}

func (s *pendingSet) remove(pt grid.Point) bool {
	_, ok := s.items[pt]
	delete(s.items, pt)
	return ok
}

// sweep drops entries whose expiry is not after now and returns how many it dropped.
func (s *pendingSet) sweep(now time.Time) int {
	n := 0
	for pt, p := range s.items {
		if !now.Before(p.Expiry) {
			delete(s.items, pt)
			n++
		}
	}
	return n
}

// clearBox drops entries inside b, used when authoritative tile data arrives.
func (s *pendingSet) clearBox(b grid.Box) int {
	n := 0
	for pt := range s.items {
		if b.Contains(pt) {
			delete(s.items, pt)
			n++
		}
	}
	return n
}

// list returns entries ordered by row then column so rendering is deterministic.
func (s *pendingSet) list() []Pending {
	out := make([]Pending, 0, len(s.items))
	for _, p := range s.items {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Point.Y != out[j].Point.Y {
			return out[i].Point.Y < out[j].Point.Y
		}
		return out[i].Point.X < out[j].Point.X
	})
	return out
}

func (s *pendingSet) len() int {
	return len(s.items)
}
