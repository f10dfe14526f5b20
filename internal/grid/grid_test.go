package grid

import "testing"

func TestInBounds(t *testing.T) {
	cases := []struct {
		n    int
		want bool
	}{
		{0, true},
		{Size - 1, true},
		{Size, false},
		{-1, false},
	}

	for _, tc := range cases {
		if got := InBounds(tc.n); got != tc.want {
			t.Fatalf("InBounds(%d) = %v; want %v", tc.n, got, tc.want)
		}
	}
}

func TestValidColor(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"#ff0000", true},
		{"#FFaa00", true},
		{"ff0000", false},
		{"#ff000", false},
		{"#ff00000", false},
		{"#gg0000", false},
		{"#ff0000\n", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := ValidColor(tc.in); got != tc.want {
			t.Fatalf("ValidColor(%q) = %v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestTileOfAndBounds(t *testing.T) {
	k := TileOf(130, 63)
	if k != (TileKey{TX: 2, TY: 0}) {
		t.Fatalf("TileOf(130,63) = %v", k)
	}
	b := k.Bounds()
	if b != (Box{Left: 128, Top: 0, Right: 191, Bottom: 63}) {
		t.Fatalf("bounds = %+v", b)
	}
	if TileOf(-1, -64) != (TileKey{TX: -1, TY: -1}) {
		t.Fatalf("negative coordinates must floor")
	}

	parsed, err := ParseTileKey(k.String())
	if err != nil || parsed != k {
		t.Fatalf("ParseTileKey(%q) = %v, %v", k.String(), parsed, err)
	}
	if _, err := ParseTileKey("12"); err == nil {
		t.Fatalf("expected error for key without separator")
	}
}

func TestTilesIntersecting(t *testing.T) {
	keys := TilesIntersecting(Box{Left: 60, Top: 0, Right: 70, Bottom: 64})
	want := []TileKey{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	if len(keys) != len(want) {
		t.Fatalf("got %v; want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("got %v; want %v", keys, want)
		}
	}

	// boxes partly off the board are clamped
	keys = TilesIntersecting(Box{Left: -500, Top: -500, Right: 10, Bottom: 10})
	if len(keys) != 1 || keys[0] != (TileKey{}) {
		t.Fatalf("clamped box tiles = %v", keys)
	}

	if keys := TilesIntersecting(Box{Left: Size + 10, Top: 0, Right: Size + 20, Bottom: 5}); len(keys) != 0 {
		t.Fatalf("off-board box should have no tiles, got %v", keys)
	}
}

func TestSplitCapsAreaAndCovers(t *testing.T) {
	boxes := []Box{
		TileKey{TX: 3, TY: 7}.Bounds(),
		{Left: 0, Top: 0, Right: 4, Bottom: 699},
		{Left: 10, Top: 10, Right: 10, Bottom: 4500},
		{Left: 0, Top: 0, Right: 9, Bottom: 9},
	}

	for _, b := range boxes {
		parts := b.Split(MaxBoxPixels)
		seen := make(map[Point]int)
		for _, p := range parts {
			if p.Area() > MaxBoxPixels {
				t.Fatalf("part %+v of %+v has area %d", p, b, p.Area())
			}
			for y := p.Top; y <= p.Bottom; y++ {
				for x := p.Left; x <= p.Right; x++ {
					seen[Point{x, y}]++
				}
			}
		}
		if len(seen) != b.Area() {
			t.Fatalf("split of %+v covers %d cells; want %d", b, len(seen), b.Area())
		}
		for pt, n := range seen {
			if n != 1 || !b.Contains(pt) {
				t.Fatalf("cell %v covered %d times", pt, n)
			}
		}
	}
}

func TestBoxGeometry(t *testing.T) {
	b := Box{Left: 0, Top: 0, Right: 2500, Bottom: 0}
	if b.Width() != 2501 || b.Height() != 1 || b.Area() != 2501 {
		t.Fatalf("geometry = %d x %d", b.Width(), b.Height())
	}
	if (Box{Left: 5, Right: 4}).Area() != 0 {
		t.Fatalf("inverted box must be empty")
	}
	if b.Intersects(Box{Left: 2501, Top: 0, Right: 2600, Bottom: 0}) {
		t.Fatalf("adjacent boxes do not intersect")
	}
	if c := (Box{Left: -3, Top: 4, Right: Size + 3, Bottom: Size}).Clamp(); c != (Box{0, 4, Size - 1, Size - 1}) {
		t.Fatalf("clamp = %+v", c)
	}
}
