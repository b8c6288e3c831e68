package contour

import (
	"image"

	"mask2coco/internal/mask"
	"mask2coco/pkg/geometry"
)

// Native traces outlines with Suzuki-Abe border following in pure Go.
type Native struct{}

// Name implements Tracer.
func (Native) Name() string { return "native" }

// Trace implements Tracer.
func (Native) Trace(g *mask.Grid) []geometry.Polygon {
	if g.Width == 0 || g.Height == 0 {
		return nil
	}

	s := newScanner(g)
	var polys []geometry.Polygon
	s.scan(func(chain []image.Point) {
		polys = append(polys, compress(chain))
	})
	return keepRegions(polys)
}

// Neighbour offsets, counter-clockwise on screen (y down) starting east.
var dirs = [8]image.Point{
	{X: 1, Y: 0},   // E
	{X: 1, Y: -1},  // NE
	{X: 0, Y: -1},  // N
	{X: -1, Y: -1}, // NW
	{X: -1, Y: 0},  // W
	{X: -1, Y: 1},  // SW
	{X: 0, Y: 1},   // S
	{X: 1, Y: 1},   // SE
}

const (
	dirEast = 0
	dirWest = 4
)

// dirIndex maps a unit step to its index in dirs.
func dirIndex(dx, dy int) int {
	return dirLookup[dy+1][dx+1]
}

var dirLookup = [3][3]int{
	{3, 2, 1},
	{4, -1, 0},
	{5, 6, 7},
}

type borderKind uint8

const (
	kindHole borderKind = iota
	kindOuter
)

type border struct {
	kind   borderKind
	parent int32
}

// scanner holds the labelled, zero-padded copy of a grid. A cell is 0 for
// background, 1 for unvisited foreground, and ±n once border n has passed
// through it (negative where the border's right side is background).
type scanner struct {
	w, h    int
	f       []int32
	borders []border // index is the border number; 1 is the frame
}

func newScanner(g *mask.Grid) *scanner {
	w, h := g.Width+2, g.Height+2
	s := &scanner{
		w:       w,
		h:       h,
		f:       make([]int32, w*h),
		borders: []border{{}, {kind: kindHole}},
	}
	for y := 0; y < g.Height; y++ {
		row := g.Cells[y*g.Width : (y+1)*g.Width]
		for x, set := range row {
			if set {
				s.f[(y+1)*w+x+1] = 1
			}
		}
	}
	return s
}

func (s *scanner) at(x, y int) int32 {
	return s.f[y*s.w+x]
}

// scan walks the grid in raster order, follows every border it meets and
// hands external outer borders to emit in discovery order.
func (s *scanner) scan(emit func(chain []image.Point)) {
	for y := 1; y < s.h-1; y++ {
		lnbd := int32(1)
		for x := 1; x < s.w-1; x++ {
			v := s.at(x, y)
			if v == 0 {
				continue
			}

			var kind borderKind
			var from int
			start := false
			switch {
			case v == 1 && s.at(x-1, y) == 0:
				kind, from, start = kindOuter, dirWest, true
			case v >= 1 && s.at(x+1, y) == 0:
				kind, from, start = kindHole, dirEast, true
				if v > 1 {
					lnbd = v
				}
			}

			if start {
				nbd := int32(len(s.borders))
				parent := s.parentOf(kind, lnbd)
				s.borders = append(s.borders, border{kind: kind, parent: parent})
				chain := s.follow(x, y, from, nbd)
				if kind == kindOuter && parent == 1 {
					emit(chain)
				}
			}

			if v := s.at(x, y); v != 1 {
				if v < 0 {
					v = -v
				}
				lnbd = v
			}
		}
	}
}

// parentOf decides the parent of a new border from the last border met on
// the current row.
func (s *scanner) parentOf(kind borderKind, lnbd int32) int32 {
	last := s.borders[lnbd]
	if kind == last.kind {
		return last.parent
	}
	return lnbd
}

// follow traces border nbd starting at (x0, y0), where from points at the
// background neighbour that triggered the start. It relabels the cells it
// passes and returns the border pixels in unpadded coordinates.
func (s *scanner) follow(x0, y0, from int, nbd int32) []image.Point {
	d1 := -1
	for k := 0; k < 8; k++ {
		d := (from - k + 8) % 8
		if s.at(x0+dirs[d].X, y0+dirs[d].Y) != 0 {
			d1 = d
			break
		}
	}
	if d1 < 0 {
		// isolated pixel
		s.f[y0*s.w+x0] = -nbd
		return []image.Point{{X: x0 - 1, Y: y0 - 1}}
	}

	x1, y1 := x0+dirs[d1].X, y0+dirs[d1].Y
	x2, y2 := x1, y1
	x3, y3 := x0, y0
	chain := []image.Point{{X: x0 - 1, Y: y0 - 1}}

	for {
		back := dirIndex(x2-x3, y2-y3)
		eastZero := false
		var x4, y4 int
		for k := 1; k <= 8; k++ {
			d := (back + k) % 8
			nx, ny := x3+dirs[d].X, y3+dirs[d].Y
			if s.at(nx, ny) != 0 {
				x4, y4 = nx, ny
				break
			}
			if d == dirEast {
				eastZero = true
			}
		}

		i3 := y3*s.w + x3
		if eastZero {
			s.f[i3] = -nbd
		} else if s.f[i3] == 1 {
			s.f[i3] = nbd
		}

		if x4 == x0 && y4 == y0 && x3 == x1 && y3 == y1 {
			break
		}
		x2, y2 = x3, y3
		x3, y3 = x4, y4
		chain = append(chain, image.Point{X: x3 - 1, Y: y3 - 1})
	}

	return chain
}

// compress keeps the first pixel and every pixel where the step direction
// changes.
func compress(chain []image.Point) geometry.Polygon {
	n := len(chain)
	poly := geometry.Polygon{geometry.FromImagePoint(chain[0])}
	if n < 3 {
		for _, p := range chain[1:] {
			poly = append(poly, geometry.FromImagePoint(p))
		}
		return poly
	}

	for i := 1; i < n; i++ {
		prev, cur, next := chain[i-1], chain[i], chain[(i+1)%n]
		if cur.Sub(prev) != next.Sub(cur) {
			poly = append(poly, geometry.FromImagePoint(cur))
		}
	}
	return poly
}
