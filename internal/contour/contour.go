// Package contour extracts the outer outlines of connected regions in an
// occupancy grid.
//
// Foreground is 8-connected. Only external borders are reported: holes are
// not traced as polygons, and a region lying inside a hole of another region
// is not reported at all. Each outline keeps only the pixels where the chain
// direction changes, starts at the region's first pixel in raster order and
// runs down the left side first. Outlines with fewer than MinVertices
// vertices are dropped.
package contour

import (
	"fmt"
	"sort"

	"mask2coco/internal/mask"
	"mask2coco/pkg/geometry"
)

// MinVertices is the smallest outline kept.
const MinVertices = 3

// Tracer extracts outlines from a grid. Implementations must be safe for
// concurrent use.
type Tracer interface {
	Name() string
	Trace(g *mask.Grid) []geometry.Polygon
}

// New returns the tracer registered under name.
func New(name string) (Tracer, error) {
	switch name {
	case "", "native":
		return Native{}, nil
	case "opencv":
		return OpenCV{}, nil
	default:
		return nil, fmt.Errorf("unknown tracer %q", name)
	}
}

// keepRegions drops degenerate outlines and orders the rest by the raster
// position of their first vertex.
func keepRegions(polys []geometry.Polygon) []geometry.Polygon {
	kept := polys[:0]
	for _, p := range polys {
		if len(p) >= MinVertices {
			kept = append(kept, p)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i][0], kept[j][0]
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return kept
}
